package btree

import (
	"math"

	"github.com/KilimcininKorOglu/oodb/internal/storage"
)

// Remove deletes key from a unique tree and returns the value it held.
// Non-unique trees need the value too; use RemoveEntry.
func (t *Tree) Remove(key int64) (int64, error) {
	if !t.policy.Unique() {
		return 0, ErrValueRequired
	}
	e, err := t.remove(Entry{Key: key}, false)
	if err != nil {
		return 0, err
	}
	return e.Value, nil
}

// RemoveEntry deletes the exact (key, value) pair.
func (t *Tree) RemoveEntry(key, value int64) error {
	_, err := t.remove(Entry{Key: key, Value: value}, true)
	return err
}

// remove deletes the entry matching target and rebalances the path.
//
// Algorithm:
//  1. Descend to the covering leaf; a missing entry changes nothing.
//  2. Clone the path pages the current generation does not own.
//  3. Remove the entry, then walk up while the node is underfull:
//     merge with the left or right sibling when the pair fits one page,
//     otherwise let an inner node left with one child borrow a child.
//  4. Collapse inner roots with a single child.
func (t *Tree) remove(target Entry, matchValue bool) (Entry, error) {
	if t.root == storage.InvalidPageID {
		return Entry{}, ErrEntryNotFound
	}

	path, idxs, _, err := t.descend(target)
	if err != nil {
		return Entry{}, err
	}

	leaf := path[len(path)-1]
	pos := leaf.search(t.policy, target)
	if pos == len(leaf.entries) || t.policy.compare(leaf.entries[pos], target) != 0 {
		return Entry{}, ErrEntryNotFound
	}
	if matchValue && leaf.entries[pos].Value != target.Value {
		return Entry{}, ErrEntryNotFound
	}

	if err := t.makeWritable(path, idxs); err != nil {
		return Entry{}, err
	}
	removed := leaf.removeEntry(pos)
	t.entries--
	t.modCount++
	if t.maxValid && removed.Key == t.maxKey {
		t.maxValid = false
	}

	if err := t.rebalance(path, idxs); err != nil {
		return Entry{}, err
	}
	if err := t.collapseRoot(); err != nil {
		return Entry{}, err
	}

	if root := t.dirty[t.root]; root != nil && root.leaf && len(root.entries) == 0 {
		t.maxKey = math.MinInt64
		t.maxValid = true
	}
	return removed, nil
}

func (t *Tree) underflows(n *node, pageSize int) bool {
	if n.leaf {
		return len(n.entries) < LeafCapacity(pageSize)/2
	}
	return len(n.entries) < InnerCapacity(pageSize, t.policy)/2
}

// fits reports whether the content of a and b fits one page. Merging inner
// nodes pulls their parent separator down between them.
func (t *Tree) fits(a, b *node, pageSize int) bool {
	if a.leaf {
		return len(a.entries)+len(b.entries) <= LeafCapacity(pageSize)
	}
	return len(a.entries)+1+len(b.entries) <= InnerCapacity(pageSize, t.policy)
}

// rebalance walks up the writable path after a removal.
func (t *Tree) rebalance(path []*node, idxs []int) error {
	pageSize := t.ch.PageSize()

	for level := len(path) - 1; level > 0; level-- {
		n := path[level]
		if !t.underflows(n, pageSize) {
			return nil
		}
		parent := path[level-1]
		ci := idxs[level-1]

		if ci > 0 {
			left, err := t.node(parent.children[ci-1])
			if err != nil {
				return err
			}
			if t.fits(left, n, pageSize) {
				if err := t.mergeLeft(parent, ci, left, n); err != nil {
					return err
				}
				continue
			}
		}

		if ci < len(parent.children)-1 {
			right, err := t.node(parent.children[ci+1])
			if err != nil {
				return err
			}
			if t.fits(n, right, pageSize) {
				if err := t.mergeRight(parent, ci, n, right); err != nil {
					return err
				}
				continue
			}
		}

		if !n.leaf && len(n.entries) == 0 {
			return t.borrow(parent, ci, n)
		}
		return nil
	}
	return nil
}

// mergeLeft moves the content of left into n, which sits at parent.children[ci].
// n keeps its page; left's page is freed.
func (t *Tree) mergeLeft(parent *node, ci int, left, n *node) error {
	merged := make([]Entry, 0, len(left.entries)+1+len(n.entries))
	merged = append(merged, left.entries...)
	if !n.leaf {
		merged = append(merged, parent.entries[ci-1])
		n.children = append(append([]storage.PageID(nil), left.children...), n.children...)
	}
	n.entries = append(merged, n.entries...)

	parent.removeEntry(ci - 1)
	parent.removeChild(ci - 1)
	return t.freeNode(left)
}

// mergeRight moves the content of right into n, which sits at parent.children[ci].
func (t *Tree) mergeRight(parent *node, ci int, n, right *node) error {
	if !n.leaf {
		n.entries = append(n.entries, parent.entries[ci])
		n.children = append(n.children, right.children...)
	}
	n.entries = append(n.entries, right.entries...)

	parent.removeEntry(ci)
	parent.removeChild(ci + 1)
	return t.freeNode(right)
}

// borrow rotates one child from a full sibling into the inner node n, which
// was left with a single child and no separator.
func (t *Tree) borrow(parent *node, ci int, n *node) error {
	if ci > 0 {
		left, err := t.writableChild(parent, ci-1)
		if err != nil {
			return err
		}
		last := len(left.children) - 1
		n.entries = append([]Entry{parent.entries[ci-1]}, n.entries...)
		n.children = append([]storage.PageID{left.children[last]}, n.children...)
		parent.entries[ci-1] = left.lastEntry()
		left.entries = left.entries[:len(left.entries)-1]
		left.children = left.children[:last]
		return nil
	}

	right, err := t.writableChild(parent, ci+1)
	if err != nil {
		return err
	}
	n.entries = append(n.entries, parent.entries[ci])
	n.children = append(n.children, right.children[0])
	parent.entries[ci] = right.entries[0]
	right.entries = append([]Entry(nil), right.entries[1:]...)
	right.children = append([]storage.PageID(nil), right.children[1:]...)
	return nil
}

// writableChild returns parent.children[i] ready for modification. The
// parent must already be writable.
func (t *Tree) writableChild(parent *node, i int) (*node, error) {
	n, err := t.node(parent.children[i])
	if err != nil {
		return nil, err
	}
	if err := t.own(n); err != nil {
		return nil, err
	}
	parent.children[i] = n.id
	return n, nil
}

// collapseRoot replaces inner roots that have a single child by that child.
func (t *Tree) collapseRoot() error {
	for {
		root, err := t.node(t.root)
		if err != nil {
			return err
		}
		if root.leaf || len(root.entries) > 0 {
			return nil
		}
		child := root.children[0]
		if err := t.freeNode(root); err != nil {
			return err
		}
		t.root = child
		if t.depth > 0 {
			t.depth--
		}
	}
}
