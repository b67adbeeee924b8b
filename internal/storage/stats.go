// Package storage provides the page storage channel for the oodb index engine.
package storage

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ChannelStats holds counters and sizes of a channel.
type ChannelStats struct {
	PageSize        int
	PageCount       uint64
	Generation      uint64
	TxID            uint64
	DirtyPages      int
	FreshPages      int
	ReusablePages   int
	PinnedSnapshots int
	PagesRead       uint64
	PagesWritten    uint64
	CacheHits       uint64
	Allocations     uint64
	Extensions      uint64
	Flushes         uint64
	RegionBytes     int64
}

// Stats returns a snapshot of the channel counters.
func (ch *Channel) Stats() ChannelStats {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	pinned := 0
	for _, n := range ch.pins {
		pinned += n
	}

	var regionBytes int64
	if !ch.closed {
		if size, err := ch.region.Size(); err == nil {
			regionBytes = size
		}
	}

	return ChannelStats{
		PageSize:        ch.opts.PageSize,
		PageCount:       ch.pageCount,
		Generation:      ch.generation,
		TxID:            ch.txID,
		DirtyPages:      len(ch.dirty),
		FreshPages:      len(ch.fresh),
		ReusablePages:   len(ch.reusable),
		PinnedSnapshots: pinned,
		PagesRead:       ch.pagesRead,
		PagesWritten:    ch.pagesWritten,
		CacheHits:       ch.cacheHits,
		Allocations:     ch.allocated,
		Extensions:      ch.extended,
		Flushes:         ch.flushes,
		RegionBytes:     regionBytes,
	}
}

// CacheHitRatio returns cache hits over all page reads that missed the
// dirty buffer.
func (s ChannelStats) CacheHitRatio() float64 {
	total := s.CacheHits + s.PagesRead
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// String renders the stats for humans.
func (s ChannelStats) String() string {
	return fmt.Sprintf(
		"pages=%s (%s, %s region) generation=%d tx=%d dirty=%d reads=%s writes=%s cache_hits=%s (%.1f%%) flushes=%s",
		humanize.Comma(int64(s.PageCount)),
		humanize.IBytes(uint64(s.PageSize)*s.PageCount),
		humanize.IBytes(uint64(s.RegionBytes)),
		s.Generation,
		s.TxID,
		s.DirtyPages,
		humanize.Comma(int64(s.PagesRead)),
		humanize.Comma(int64(s.PagesWritten)),
		humanize.Comma(int64(s.CacheHits)),
		s.CacheHitRatio()*100,
		humanize.Comma(int64(s.Flushes)),
	)
}
