//go:build unix

// Package storage provides the page storage channel for the oodb index engine.
package storage

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// MmapRegion is a read-only Region over a memory-mapped file. Reads copy out
// of the mapping without a system call per page.
type MmapRegion struct {
	file *os.File
	data []byte
}

// OpenMmapRegion maps the file at path read-only.
func OpenMmapRegion(path string) (Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open region file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat region file: %w", err)
	}

	r := &MmapRegion{file: f}
	if fi.Size() == 0 {
		return r, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to map region file: %w", err)
	}
	// Index pages are visited in key order, not file order.
	_ = unix.Madvise(data, unix.MADV_RANDOM)

	r.data = data
	return r, nil
}

// ReadAt implements io.ReaderAt.
func (r *MmapRegion) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt always fails: mapped regions are read-only.
func (r *MmapRegion) WriteAt(_ []byte, _ int64) (int, error) {
	return 0, ErrReadOnly
}

// Size returns the mapped length.
func (r *MmapRegion) Size() (int64, error) {
	return int64(len(r.data)), nil
}

// Sync is a no-op for read-only mappings.
func (r *MmapRegion) Sync() error {
	return nil
}

// Close unmaps the file and closes it.
func (r *MmapRegion) Close() error {
	var err error
	if r.data != nil {
		err = unix.Munmap(r.data)
		r.data = nil
	}
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}
