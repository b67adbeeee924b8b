package btree

import (
	"math"

	"github.com/KilimcininKorOglu/oodb/internal/storage"
)

// frame is one level of a cursor's position. For a leaf, idx is the next
// entry to yield; for an inner node, idx is the child currently entered.
type frame struct {
	n   *node
	idx int
}

// cursor walks the leaves in key order through a stack of frames, so no
// sibling pointers are needed. Empty leaves are skipped.
type cursor struct {
	t     *Tree
	asc   bool
	stack []frame
}

// seek positions the cursor at the first entry >= e when ascending, or the
// last entry <= e when descending.
func (c *cursor) seek(e Entry) error {
	c.stack = c.stack[:0]
	if c.t.root == storage.InvalidPageID {
		return nil
	}

	n, err := c.t.node(c.t.root)
	if err != nil {
		return err
	}
	for !n.leaf {
		i := n.childIndex(c.t.policy, e)
		c.stack = append(c.stack, frame{n, i})
		if n, err = c.t.node(n.children[i]); err != nil {
			return err
		}
	}

	pos := n.search(c.t.policy, e)
	if !c.asc {
		// Last entry <= e.
		if pos < len(n.entries) && c.t.policy.compare(n.entries[pos], e) == 0 {
			pos++
		}
		pos--
	}
	c.stack = append(c.stack, frame{n, pos})
	return nil
}

// descendEdge enters the subtree at id along its first (ascending) or last
// (descending) path.
func (c *cursor) descendEdge(id storage.PageID) error {
	for {
		n, err := c.t.node(id)
		if err != nil {
			return err
		}
		if n.leaf {
			idx := 0
			if !c.asc {
				idx = len(n.entries) - 1
			}
			c.stack = append(c.stack, frame{n, idx})
			return nil
		}
		idx := 0
		if !c.asc {
			idx = len(n.children) - 1
		}
		c.stack = append(c.stack, frame{n, idx})
		id = n.children[idx]
	}
}

// next returns the entry at the cursor and advances it.
func (c *cursor) next() (Entry, bool, error) {
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]

		if top.n.leaf {
			if top.idx >= 0 && top.idx < len(top.n.entries) {
				e := top.n.entries[top.idx]
				if c.asc {
					top.idx++
				} else {
					top.idx--
				}
				return e, true, nil
			}
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}

		if c.asc {
			top.idx++
		} else {
			top.idx--
		}
		if top.idx < 0 || top.idx >= len(top.n.children) {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		if err := c.descendEdge(top.n.children[top.idx]); err != nil {
			return Entry{}, false, err
		}
	}
	return Entry{}, false, nil
}

func (c *cursor) reset() {
	c.stack = nil
}

// Iterator yields the entries of a key range in ascending or descending
// order. It fails fast: once the tree is modified, or the channel starts a
// different transaction, Next returns false and Err reports
// ErrConcurrentModification or storage.ErrInvalidTransactionContext.
//
// Usage:
//
//	it := tree.Iterator(lo, hi)
//	defer it.Close()
//	for it.Next() {
//	    e := it.Entry()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	tree     *Tree
	cur      cursor
	lo, hi   Entry
	snap     *storage.Snapshot
	modCount uint64
	entry    Entry
	err      error
	done     bool
	closed   bool
}

// Iterator returns an ascending iterator over entries with min <= key <= max.
func (t *Tree) Iterator(min, max int64) *Iterator {
	return t.newIterator(true, min, max)
}

// DescendingIterator returns a descending iterator over entries with
// min <= key <= max, starting at max.
func (t *Tree) DescendingIterator(max, min int64) *Iterator {
	return t.newIterator(false, min, max)
}

func (t *Tree) newIterator(asc bool, min, max int64) *Iterator {
	it := &Iterator{
		tree:     t,
		cur:      cursor{t: t, asc: asc},
		lo:       Entry{Key: min, Value: math.MinInt64},
		hi:       Entry{Key: max, Value: math.MaxInt64},
		snap:     t.ch.Pin(),
		modCount: t.modCount,
	}

	if min > max {
		it.finish()
		return it
	}

	start := it.lo
	if !asc {
		start = it.hi
	}
	if err := it.cur.seek(start); err != nil {
		it.err = err
		it.finish()
	}
	return it
}

// Next advances to the next entry. It returns false at the end of the
// range, after Close, or on error.
func (it *Iterator) Next() bool {
	if it.closed || it.done || it.err != nil {
		return false
	}
	if it.tree.modCount != it.modCount {
		it.fail(ErrConcurrentModification)
		return false
	}
	if !it.snap.Valid() {
		it.fail(storage.ErrInvalidTransactionContext)
		return false
	}

	e, ok, err := it.cur.next()
	if err != nil {
		it.fail(err)
		return false
	}
	if !ok || it.outOfRange(e) {
		it.finish()
		return false
	}
	it.entry = e
	return true
}

func (it *Iterator) outOfRange(e Entry) bool {
	p := it.tree.policy
	if it.cur.asc {
		return p.compare(e, it.hi) > 0
	}
	return p.compare(e, it.lo) < 0
}

// Entry returns the entry Next moved to.
func (it *Iterator) Entry() Entry {
	return it.entry
}

// Err returns the error that stopped the iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Close releases the iterator's pages and snapshot. It is idempotent.
func (it *Iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.finish()
	return nil
}

// Collect drains the iterator into a slice and closes it.
func (it *Iterator) Collect() ([]Entry, error) {
	defer it.Close()

	var out []Entry
	for it.Next() {
		out = append(out, it.Entry())
	}
	return out, it.Err()
}

func (it *Iterator) fail(err error) {
	it.err = err
	it.finish()
}

func (it *Iterator) finish() {
	it.done = true
	it.cur.reset()
	it.snap.Release()
}
