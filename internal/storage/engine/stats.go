package engine

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/KilimcininKorOglu/oodb/internal/storage"
	"github.com/KilimcininKorOglu/oodb/internal/storage/btree"
	"github.com/KilimcininKorOglu/oodb/internal/storage/fsm"
)

// FieldIndexStats holds the statistics of one field index.
type FieldIndexStats struct {
	ID   uint32
	Kind string
	btree.Stats
}

// Stats holds statistics about a store.
type Stats struct {
	Channel      storage.ChannelStats
	FreeSpace    fsm.Stats
	OIDIndex     btree.Stats
	Catalog      btree.Stats
	FieldIndices []FieldIndexStats
}

// Stats returns statistics about the store. Loaded trees are walked once
// to count their pages.
func (s *Store) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return Stats{}, err
	}

	st := Stats{
		Channel:   s.ch.Stats(),
		FreeSpace: s.fsm.Stats(),
	}

	var err error
	if st.OIDIndex, err = s.oids.Stats(); err != nil {
		return Stats{}, err
	}
	if st.Catalog, err = s.catalog.Stats(); err != nil {
		return Stats{}, err
	}

	ids, err := s.fieldIndexIDs()
	if err != nil {
		return Stats{}, err
	}
	for _, id := range ids {
		x, err := s.fieldIndex(id)
		if err != nil {
			return Stats{}, err
		}
		ts, err := x.Stats()
		if err != nil {
			return Stats{}, err
		}
		st.FieldIndices = append(st.FieldIndices, FieldIndexStats{ID: id, Kind: x.Kind().String(), Stats: ts})
	}
	return st, nil
}

// String renders the statistics as an indented report.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "channel:    %s\n", s.Channel)
	fmt.Fprintf(&b, "free space: %s pages, %s eligible, reuse delay %d\n",
		humanize.Comma(int64(s.FreeSpace.FreePages)),
		humanize.Comma(int64(s.FreeSpace.Eligible)),
		s.FreeSpace.ReuseDelay)
	writeTree(&b, "oid index", s.OIDIndex)
	writeTree(&b, "catalog", s.Catalog)
	for _, f := range s.FieldIndices {
		writeTree(&b, fmt.Sprintf("field %d (%s)", f.ID, f.Kind), f.Stats)
	}
	return b.String()
}

func writeTree(b *strings.Builder, name string, t btree.Stats) {
	fmt.Fprintf(b, "%-11s %s entries, depth %d, %s inner / %s leaf pages, fill %.0f%%\n",
		name+":",
		humanize.Comma(t.Entries),
		t.Depth,
		humanize.Comma(t.InnerPages),
		humanize.Comma(t.LeafPages),
		t.FillRatio*100)
}
