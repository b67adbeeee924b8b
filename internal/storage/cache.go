// Package storage provides the page storage channel for the oodb index engine.
package storage

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// pageCache caches the bytes of clean (flushed) pages read from the region.
// Entries are immutable; a page id is evicted from the cache whenever the
// channel writes new content for it.
type pageCache struct {
	cache    *ristretto.Cache[uint64, []byte]
	pageSize int64
}

// newPageCache creates a cache holding up to budget bytes of pages.
// Returns nil when budget is too small to hold a single page.
func newPageCache(budget int64, pageSize int) (*pageCache, error) {
	if budget < int64(pageSize) {
		return nil, nil
	}

	items := budget / int64(pageSize)
	counters := items * 10
	if counters < 100 {
		counters = 100
	}

	c, err := ristretto.NewCache(&ristretto.Config[uint64, []byte]{
		NumCounters:        counters,
		MaxCost:            budget,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create page cache: %w", err)
	}

	return &pageCache{cache: c, pageSize: int64(pageSize)}, nil
}

// get returns the cached bytes of a page.
func (pc *pageCache) get(id PageID) ([]byte, bool) {
	if pc == nil {
		return nil, false
	}
	return pc.cache.Get(uint64(id))
}

// put offers page bytes to the cache. Admission is best effort.
func (pc *pageCache) put(id PageID, data []byte) {
	if pc == nil {
		return
	}
	pc.cache.Set(uint64(id), data, pc.pageSize)
}

// invalidate drops a page whose content is about to change.
func (pc *pageCache) invalidate(id PageID) {
	if pc == nil {
		return
	}
	pc.cache.Del(uint64(id))
}

// sync blocks until buffered sets and deletes have been applied, so that
// no pending admission of old content outlives an invalidation.
func (pc *pageCache) sync() {
	if pc == nil {
		return
	}
	pc.cache.Wait()
}

// close stops the cache's background goroutines.
func (pc *pageCache) close() {
	if pc == nil {
		return
	}
	pc.cache.Close()
}
