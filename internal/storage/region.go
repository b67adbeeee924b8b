// Package storage provides the page storage channel for the oodb index engine.
package storage

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Region is the backing byte store of a channel: a file or an in-memory buffer.
type Region interface {
	io.ReaderAt
	io.WriterAt
	// Size returns the current length of the region in bytes.
	Size() (int64, error)
	// Sync makes previous writes durable.
	Sync() error
	// Close releases the region.
	Close() error
}

// FileRegion is a Region backed by an operating system file.
type FileRegion struct {
	file *os.File
	path string
}

// OpenFileRegion opens or creates the file at path.
func OpenFileRegion(path string, readOnly bool) (*FileRegion, error) {
	flags := os.O_RDWR | os.O_CREATE
	if readOnly {
		flags = os.O_RDONLY
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open region file: %w", err)
	}

	return &FileRegion{file: f, path: path}, nil
}

// ReadAt implements io.ReaderAt.
func (r *FileRegion) ReadAt(p []byte, off int64) (int, error) {
	return r.file.ReadAt(p, off)
}

// WriteAt implements io.WriterAt.
func (r *FileRegion) WriteAt(p []byte, off int64) (int, error) {
	return r.file.WriteAt(p, off)
}

// Size returns the file size.
func (r *FileRegion) Size() (int64, error) {
	fi, err := r.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat region file: %w", err)
	}
	return fi.Size(), nil
}

// Sync flushes the file to stable storage.
func (r *FileRegion) Sync() error {
	return r.file.Sync()
}

// Close closes the file.
func (r *FileRegion) Close() error {
	return r.file.Close()
}

// Path returns the file path.
func (r *FileRegion) Path() string {
	return r.path
}

// MemRegion is a Region held entirely in memory. It grows on writes past the end.
type MemRegion struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemRegion creates an empty in-memory region.
func NewMemRegion() *MemRegion {
	return &MemRegion{}
}

// ReadAt implements io.ReaderAt.
func (r *MemRegion) ReadAt(p []byte, off int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt.
func (r *MemRegion) WriteAt(p []byte, off int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	end := off + int64(len(p))
	if end > int64(len(r.data)) {
		if end > int64(cap(r.data)) {
			grown := make([]byte, end, 2*end)
			copy(grown, r.data)
			r.data = grown
		} else {
			r.data = r.data[:end]
		}
	}
	return copy(r.data[off:], p), nil
}

// Size returns the region length.
func (r *MemRegion) Size() (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.data)), nil
}

// Sync is a no-op for memory regions.
func (r *MemRegion) Sync() error {
	return nil
}

// Close is a no-op for memory regions; the content stays readable so a
// region can be reopened by another channel.
func (r *MemRegion) Close() error {
	return nil
}
