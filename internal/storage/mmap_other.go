//go:build !unix

// Package storage provides the page storage channel for the oodb index engine.
package storage

// OpenMmapRegion falls back to a read-only file region on platforms without
// the unix mmap interface.
func OpenMmapRegion(path string) (Region, error) {
	return OpenFileRegion(path, true)
}
