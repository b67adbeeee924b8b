package btree

// Insert adds an entry. On a unique tree an existing key gets the new value;
// on a non-unique tree inserting an existing pair changes nothing.
//
// Algorithm:
//  1. Descend to the covering leaf without modifying anything.
//  2. Clone every page on the path the current generation does not own.
//  3. Insert into the leaf and split overflowing nodes bottom-up.
//  4. A root split adds a level.
func (t *Tree) Insert(key, value int64) error {
	if err := t.ensureRoot(); err != nil {
		return err
	}

	e := Entry{Key: key, Value: value}
	path, idxs, rightmost, err := t.descend(e)
	if err != nil {
		return err
	}
	t.modCount++

	leaf := path[len(path)-1]
	pos := leaf.search(t.policy, e)
	if pos < len(leaf.entries) && t.policy.compare(leaf.entries[pos], e) == 0 {
		if leaf.entries[pos].Value == value {
			return nil
		}
		if err := t.makeWritable(path, idxs); err != nil {
			return err
		}
		leaf.entries[pos].Value = value
		return nil
	}

	if err := t.makeWritable(path, idxs); err != nil {
		return err
	}
	leaf.insertEntry(pos, e)
	t.entries++
	if t.maxValid && key > t.maxKey {
		t.maxKey = key
	}

	appending := rightmost && pos == len(leaf.entries)-1
	return t.splitPath(path, idxs, appending)
}

// splitPath splits overflowing nodes from the leaf up. When appending, the
// entry went to the end of the rightmost leaf and each split keeps the left
// node full, so sequential loads leave packed pages behind.
func (t *Tree) splitPath(path []*node, idxs []int, appending bool) error {
	pageSize := t.ch.PageSize()

	for level := len(path) - 1; level >= 0; level-- {
		n := path[level]
		if !t.overflows(n, pageSize) {
			return nil
		}

		right, sep, err := t.split(n, appending)
		if err != nil {
			return err
		}

		if level == 0 {
			root, err := t.allocNode(false)
			if err != nil {
				return err
			}
			root.entries = []Entry{sep}
			root.children = append(root.children, n.id, right.id)
			t.root = root.id
			t.depth = len(path)
			return nil
		}

		parent := path[level-1]
		ci := idxs[level-1]
		parent.insertChild(ci, sep, right.id)
		appending = appending && ci == len(parent.children)-2
	}
	return nil
}

func (t *Tree) overflows(n *node, pageSize int) bool {
	if n.leaf {
		return len(n.entries) > LeafCapacity(pageSize)
	}
	return len(n.entries) > InnerCapacity(pageSize, t.policy)
}

// split moves the upper part of n to a new right sibling and returns it with
// the separator to insert into the parent. The separator is the greatest
// entry left in n.
func (t *Tree) split(n *node, appending bool) (*node, Entry, error) {
	right, err := t.allocNode(n.leaf)
	if err != nil {
		return nil, Entry{}, err
	}
	count := len(n.entries)

	if n.leaf {
		mid := count / 2
		if appending {
			mid = count - 1
		}
		right.entries = append([]Entry(nil), n.entries[mid:]...)
		n.entries = n.entries[:mid:mid]
		return right, n.lastEntry(), nil
	}

	mid := count / 2
	if appending {
		mid = count - 2
	}
	sep := n.entries[mid]
	right.entries = append([]Entry(nil), n.entries[mid+1:]...)
	right.children = append(right.children, n.children[mid+1:]...)
	n.entries = n.entries[:mid:mid]
	n.children = n.children[: mid+1 : mid+1]
	return right, sep, nil
}
