package btree

import (
	"math"

	"github.com/KilimcininKorOglu/oodb/internal/storage"
)

// FindValue returns the value stored under key. On a non-unique tree it
// returns the smallest value of the key.
func (t *Tree) FindValue(key int64) (int64, error) {
	e, ok, err := t.seekFirst(Entry{Key: key, Value: math.MinInt64})
	if err != nil {
		return 0, err
	}
	if !ok || e.Key != key {
		return 0, ErrEntryNotFound
	}
	return e.Value, nil
}

// Contains reports whether the exact (key, value) pair is stored.
func (t *Tree) Contains(key, value int64) (bool, error) {
	target := Entry{Key: key, Value: value}
	e, ok, err := t.seekFirst(target)
	if err != nil {
		return false, err
	}
	return ok && e == target, nil
}

// seekFirst returns the first entry >= target. A stale separator can leave
// the covering leaf without such an entry, so the cursor moves on to the
// following leaves.
func (t *Tree) seekFirst(target Entry) (Entry, bool, error) {
	c := cursor{t: t, asc: true}
	if err := c.seek(target); err != nil {
		return Entry{}, false, err
	}
	return c.next()
}

// MaxKey returns the greatest key, or math.MinInt64 when the tree is empty.
// After the maximum is removed, the next call finds the new one with a
// single descent along the rightmost path.
func (t *Tree) MaxKey() (int64, error) {
	if t.maxValid {
		return t.maxKey, nil
	}

	n, err := t.node(t.root)
	if err != nil {
		return 0, err
	}
	depth := 0
	for !n.leaf {
		if n, err = t.node(n.children[len(n.children)-1]); err != nil {
			return 0, err
		}
		depth++
	}
	t.depth = depth

	t.maxKey = math.MinInt64
	if len(n.entries) > 0 {
		t.maxKey = n.lastEntry().Key
	}
	t.maxValid = true
	return t.maxKey, nil
}

// Depth returns the number of inner levels above the leaves: 0 when the
// root is a leaf.
func (t *Tree) Depth() (int, error) {
	if t.depth >= 0 {
		return t.depth, nil
	}

	n, err := t.node(t.root)
	if err != nil {
		return 0, err
	}
	depth := 0
	for !n.leaf {
		if n, err = t.node(n.children[0]); err != nil {
			return 0, err
		}
		depth++
	}
	t.depth = depth
	return depth, nil
}

// Height returns the number of levels, Depth()+1. A root-to-leaf path
// touches Height pages.
func (t *Tree) Height() (int, error) {
	d, err := t.Depth()
	if err != nil {
		return 0, err
	}
	return d + 1, nil
}

// Len returns the number of entries.
func (t *Tree) Len() (int64, error) {
	if err := t.ensureStats(); err != nil {
		return 0, err
	}
	return t.entries, nil
}

// InnerPageCount returns the number of inner pages.
func (t *Tree) InnerPageCount() (int64, error) {
	if err := t.ensureStats(); err != nil {
		return 0, err
	}
	return t.innerPages, nil
}

// LeafPageCount returns the number of leaf pages.
func (t *Tree) LeafPageCount() (int64, error) {
	if err := t.ensureStats(); err != nil {
		return 0, err
	}
	return t.leafPages, nil
}

// WrittenPageCount returns how many pages Write has handed to the channel
// over the life of this handle.
func (t *Tree) WrittenPageCount() uint64 {
	return t.written
}

// Stats holds structural statistics of a tree.
type Stats struct {
	Policy       string
	Root         storage.PageID
	Depth        int
	Entries      int64
	InnerPages   int64
	LeafPages    int64
	DirtyPages   int
	WrittenPages uint64
	// FillRatio is entries over leaf capacity.
	FillRatio float64
}

// Stats returns structural statistics, walking the tree once after Load.
func (t *Tree) Stats() (Stats, error) {
	if err := t.ensureStats(); err != nil {
		return Stats{}, err
	}
	depth, err := t.Depth()
	if err != nil {
		return Stats{}, err
	}

	s := Stats{
		Policy:       t.policy.Name(),
		Root:         t.root,
		Depth:        depth,
		Entries:      t.entries,
		InnerPages:   t.innerPages,
		LeafPages:    t.leafPages,
		DirtyPages:   len(t.dirty),
		WrittenPages: t.written,
	}
	if t.leafPages > 0 {
		s.FillRatio = float64(t.entries) / float64(t.leafPages*int64(LeafCapacity(t.ch.PageSize())))
	}
	return s, nil
}

// ensureStats counts pages and entries of a loaded tree once; mutations
// keep the counters current afterwards.
func (t *Tree) ensureStats() error {
	if t.statsKnown {
		return nil
	}

	var entries, inner, leaves int64
	err := t.walk(func(n *node, _ int) error {
		if n.leaf {
			leaves++
			entries += int64(len(n.entries))
		} else {
			inner++
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.entries, t.innerPages, t.leafPages = entries, inner, leaves
	t.statsKnown = true
	return nil
}
