package btree

import (
	"fmt"

	"github.com/KilimcininKorOglu/oodb/internal/storage"
)

// Verify checks the structure of the whole tree: entries ordered within
// every page, every entry inside its parent's separator bounds, all leaves
// at one depth, no empty page below the root and every page within
// capacity. Violations wrap ErrInvalidTree.
func (t *Tree) Verify() error {
	if t.root == storage.InvalidPageID {
		return nil
	}

	type item struct {
		id     storage.PageID
		level  int
		lo, hi *Entry
	}

	pageSize := t.ch.PageSize()
	leafLevel := -1
	var entries int64
	stack := []item{{id: t.root}}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, err := t.node(it.id)
		if err != nil {
			return err
		}
		if err := t.verifyNode(n, it.level, it.lo, it.hi, pageSize); err != nil {
			return err
		}

		if n.leaf {
			if leafLevel < 0 {
				leafLevel = it.level
			} else if leafLevel != it.level {
				return fmt.Errorf("%w: leaf %d at level %d, expected %d", ErrInvalidTree, n.id, it.level, leafLevel)
			}
			entries += int64(len(n.entries))
			continue
		}

		for i, child := range n.children {
			next := item{id: child, level: it.level + 1, lo: it.lo, hi: it.hi}
			if i > 0 {
				next.lo = &n.entries[i-1]
			}
			if i < len(n.entries) {
				next.hi = &n.entries[i]
			}
			stack = append(stack, next)
		}
	}

	if t.statsKnown && entries != t.entries {
		return fmt.Errorf("%w: counted %d entries, tracking %d", ErrInvalidTree, entries, t.entries)
	}
	if leafLevel >= 0 && t.depth >= 0 && leafLevel != t.depth {
		return fmt.Errorf("%w: leaves at level %d, depth %d", ErrInvalidTree, leafLevel, t.depth)
	}
	return nil
}

// verifyNode checks one node against the bounds its parent imposes:
// lo < e <= hi.
func (t *Tree) verifyNode(n *node, level int, lo, hi *Entry, pageSize int) error {
	root := level == 0

	if n.leaf {
		if len(n.entries) > LeafCapacity(pageSize) {
			return fmt.Errorf("%w: leaf %d over capacity", ErrInvalidTree, n.id)
		}
		if !root && len(n.entries) == 0 {
			return fmt.Errorf("%w: empty leaf %d below root", ErrInvalidTree, n.id)
		}
	} else {
		if len(n.entries) > InnerCapacity(pageSize, t.policy) {
			return fmt.Errorf("%w: inner %d over capacity", ErrInvalidTree, n.id)
		}
		if len(n.entries) == 0 {
			return fmt.Errorf("%w: inner %d has a single child", ErrInvalidTree, n.id)
		}
		if len(n.children) != len(n.entries)+1 {
			return fmt.Errorf("%w: inner %d has %d separators and %d children",
				ErrInvalidTree, n.id, len(n.entries), len(n.children))
		}
	}

	for i, e := range n.entries {
		if i > 0 && t.policy.compare(n.entries[i-1], e) >= 0 {
			return fmt.Errorf("%w: page %d out of order at %d", ErrInvalidTree, n.id, i)
		}
		if lo != nil && t.policy.compare(e, *lo) <= 0 {
			return fmt.Errorf("%w: page %d entry %v not above bound %v", ErrInvalidTree, n.id, e, *lo)
		}
		if hi != nil && t.policy.compare(e, *hi) > 0 {
			return fmt.Errorf("%w: page %d entry %v above bound %v", ErrInvalidTree, n.id, e, *hi)
		}
	}
	return nil
}
