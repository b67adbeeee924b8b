// Package storage provides the page storage channel for the oodb index engine.
package storage

import (
	"fmt"
)

// Page size bounds. The lower bound keeps at least four entries per leaf
// and a usable region header; the upper bound is set by the uint16 count
// field of the page header.
const (
	DefaultPageSize = 4096
	MinPageSize     = 80
	MaxPageSize     = 1 << 16
)

// Options configures a Channel.
type Options struct {
	// PageSize is the size of each page in bytes. It is fixed for the
	// lifetime of a region and must match the size recorded in its header.
	// Default: 4096 bytes.
	PageSize int

	// CacheSize is the byte budget of the clean page cache.
	// Zero disables the cache.
	// Default: 8MB.
	CacheSize int64

	// Checksums enables page checksum stamping on flush and validation on read.
	// Default: true.
	Checksums bool

	// SyncOnWrite forces an fsync of the region at the end of each flush.
	// Default: false.
	SyncOnWrite bool

	// ReadOnly rejects allocation, writes and flushes.
	// Default: false.
	ReadOnly bool

	// Mmap maps the region file into memory for reading. Only honoured
	// together with ReadOnly by OpenFile.
	// Default: false.
	Mmap bool

	// ReuseDelay is the number of generations that must retire after a page
	// is freed before the free-space manager may hand it out again.
	// Default: 1.
	ReuseDelay uint64
}

// DefaultOptions returns the default channel options.
func DefaultOptions() Options {
	return Options{
		PageSize:    DefaultPageSize,
		CacheSize:   8 << 20,
		Checksums:   true,
		SyncOnWrite: false,
		ReadOnly:    false,
		ReuseDelay:  1,
	}
}

// Validate fills zero values with defaults and rejects page sizes that
// cannot hold the page layout.
func (o *Options) Validate() error {
	if o.PageSize == 0 {
		o.PageSize = DefaultPageSize
	}
	if o.PageSize < MinPageSize || o.PageSize > MaxPageSize {
		return fmt.Errorf("%w: page size %d outside [%d, %d]",
			ErrCapacityExceeded, o.PageSize, MinPageSize, MaxPageSize)
	}
	if o.CacheSize < 0 {
		o.CacheSize = 0
	}
	if o.ReuseDelay == 0 {
		o.ReuseDelay = 1
	}
	return nil
}

// WithPageSize sets the page size.
func (o Options) WithPageSize(size int) Options {
	o.PageSize = size
	return o
}

// WithCacheSize sets the page cache budget in bytes.
func (o Options) WithCacheSize(size int64) Options {
	o.CacheSize = size
	return o
}

// WithChecksums enables or disables page checksums.
func (o Options) WithChecksums(enabled bool) Options {
	o.Checksums = enabled
	return o
}

// WithSyncOnWrite enables or disables sync on flush.
func (o Options) WithSyncOnWrite(sync bool) Options {
	o.SyncOnWrite = sync
	return o
}

// WithReadOnly enables or disables read-only mode.
func (o Options) WithReadOnly(readOnly bool) Options {
	o.ReadOnly = readOnly
	return o
}

// WithMmap enables or disables memory-mapped reads for read-only opens.
func (o Options) WithMmap(enabled bool) Options {
	o.Mmap = enabled
	return o
}

// WithReuseDelay sets the free page reuse delay in generations.
func (o Options) WithReuseDelay(generations uint64) Options {
	o.ReuseDelay = generations
	return o
}
