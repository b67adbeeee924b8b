package btree

import (
	"errors"
	"fmt"
	"math"

	"github.com/KilimcininKorOglu/oodb/internal/logging"
	"github.com/KilimcininKorOglu/oodb/internal/storage"
)

// Tree errors.
var (
	ErrEntryNotFound          = errors.New("entry not found")
	ErrConcurrentModification = errors.New("tree modified during iteration")
	ErrValueRequired          = errors.New("non-unique tree requires a value to remove an entry")
	ErrInvalidTree            = errors.New("invalid tree structure")
)

// Tree is a paged B+-tree over int64 keys and values, stored in the pages of
// a storage.Channel. Pages flushed by an earlier generation are never
// modified: the first change to such a page clones it and frees the
// original.
//
// A Tree is not safe for concurrent use; callers serialize access.
type Tree struct {
	ch     *storage.Channel
	policy Policy
	logger logging.Logger

	root  storage.PageID
	depth int // -1 until known

	// dirty holds the decoded nodes writable in the current generation.
	dirty map[storage.PageID]*node

	modCount uint64
	written  uint64

	maxKey   int64
	maxValid bool

	statsKnown bool
	entries    int64
	innerPages int64
	leafPages  int64
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the logger of a tree.
func WithLogger(l logging.Logger) Option {
	return func(t *Tree) {
		t.logger = logging.OrNop(l)
	}
}

// New creates an empty tree with a single empty root leaf.
func New(ch *storage.Channel, policy Policy, opts ...Option) (*Tree, error) {
	t := Load(ch, policy, storage.InvalidPageID, opts...)
	if err := t.ensureRoot(); err != nil {
		return nil, err
	}
	return t, nil
}

// Load returns a handle on the tree rooted at root. No page is read until
// the first operation. An invalid root yields an empty tree whose root leaf
// is allocated on the first write.
func Load(ch *storage.Channel, policy Policy, root storage.PageID, opts ...Option) *Tree {
	t := &Tree{
		ch:     ch,
		policy: policy,
		logger: logging.NewNop(),
		root:   root,
		depth:  -1,
		dirty:  make(map[storage.PageID]*node),
	}
	for _, opt := range opts {
		opt(t)
	}

	if root == storage.InvalidPageID {
		t.depth = 0
		t.maxKey = math.MinInt64
		t.maxValid = true
		t.statsKnown = true
	}
	return t
}

// Root returns the current root page id. It changes whenever the root is
// cloned, split or collapsed.
func (t *Tree) Root() storage.PageID {
	return t.root
}

// Policy returns the duplicate policy of the tree.
func (t *Tree) Policy() Policy {
	return t.policy
}

// Channel returns the channel the tree stores its pages in.
func (t *Tree) Channel() *storage.Channel {
	return t.ch
}

// ModCount returns the structural modification counter.
func (t *Tree) ModCount() uint64 {
	return t.modCount
}

// ensureRoot allocates the empty root leaf of a tree that has none.
func (t *Tree) ensureRoot() error {
	if t.root != storage.InvalidPageID {
		return nil
	}
	id, err := t.ch.Allocate()
	if err != nil {
		return err
	}
	t.root = id
	t.depth = 0
	t.dirty[id] = newLeaf(id)
	t.leafPages++
	return nil
}

// node returns the node stored at id: the writable node when the page is
// dirty, else a private copy decoded from the channel.
func (t *Tree) node(id storage.PageID) (*node, error) {
	if n, ok := t.dirty[id]; ok {
		return n, nil
	}
	v, err := t.ch.ReadPage(id)
	if err != nil {
		return nil, err
	}
	return decodeNode(v, t.policy)
}

// descend walks from the root to the leaf covering e. idxs[i] is the child
// taken at path[i]. rightmost reports whether every step took the last child.
func (t *Tree) descend(e Entry) (path []*node, idxs []int, rightmost bool, err error) {
	n, err := t.node(t.root)
	if err != nil {
		return nil, nil, false, err
	}

	rightmost = true
	for !n.leaf {
		i := n.childIndex(t.policy, e)
		path = append(path, n)
		idxs = append(idxs, i)
		if i != len(n.children)-1 {
			rightmost = false
		}
		if n, err = t.node(n.children[i]); err != nil {
			return nil, nil, false, err
		}
	}
	path = append(path, n)
	t.depth = len(path) - 1
	return path, idxs, rightmost, nil
}

// makeWritable clones, root first, every node of path that the current
// generation does not own, relinking each clone into its parent.
func (t *Tree) makeWritable(path []*node, idxs []int) error {
	for i, n := range path {
		old := n.id
		if err := t.own(n); err != nil {
			return err
		}
		if n.id == old {
			continue
		}
		if i == 0 {
			t.root = n.id
		} else {
			path[i-1].children[idxs[i-1]] = n.id
		}
	}
	return nil
}

// own makes n writable in the current generation. A page flushed by an
// earlier generation is cloned to a new page id and the old page is freed;
// the caller relinks the parent when n.id changes.
func (t *Tree) own(n *node) error {
	if _, ok := t.dirty[n.id]; ok {
		return nil
	}
	if t.ch.IsWritable(n.id) {
		t.dirty[n.id] = n
		return nil
	}

	id, err := t.ch.Allocate()
	if err != nil {
		return err
	}
	if err := t.ch.Free(n.id); err != nil {
		return err
	}
	n.id = id
	t.dirty[id] = n
	return nil
}

// allocNode creates a writable node on a new page.
func (t *Tree) allocNode(leaf bool) (*node, error) {
	id, err := t.ch.Allocate()
	if err != nil {
		return nil, err
	}
	n := &node{id: id, leaf: leaf}
	t.dirty[id] = n
	if leaf {
		t.leafPages++
	} else {
		t.innerPages++
	}
	return n, nil
}

// freeNode releases the page of a node removed from the tree.
func (t *Tree) freeNode(n *node) error {
	delete(t.dirty, n.id)
	if n.leaf {
		t.leafPages--
	} else {
		t.innerPages--
	}
	return t.ch.Free(n.id)
}

// Write hands every dirty node to the channel and returns the root page id.
// Pages reach the region on the channel's next Flush.
func (t *Tree) Write() (storage.PageID, error) {
	if err := t.ensureRoot(); err != nil {
		return storage.InvalidPageID, err
	}

	pageSize := t.ch.PageSize()
	for id, n := range t.dirty {
		buf, err := n.encode(pageSize, t.policy)
		if err != nil {
			return storage.InvalidPageID, err
		}
		if err := t.ch.WritePage(id, buf); err != nil {
			return storage.InvalidPageID, fmt.Errorf("failed to write page %d: %w", id, err)
		}
		t.written++
	}

	if n := len(t.dirty); n > 0 {
		t.logger.Debug("tree written", "policy", t.policy.Name(), "pages", n, "root", t.root)
	}
	t.dirty = make(map[storage.PageID]*node)
	return t.root, nil
}

// Clear frees every page of the tree and leaves a single empty root leaf.
func (t *Tree) Clear() error {
	if err := t.Drop(); err != nil {
		return err
	}
	return t.ensureRoot()
}

// Drop frees every page of the tree, root included. The tree is left empty
// and allocates a new root on its next insert or write.
func (t *Tree) Drop() error {
	if t.root != storage.InvalidPageID {
		var ids []storage.PageID
		err := t.walk(func(n *node, _ int) error {
			ids = append(ids, n.id)
			return nil
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			delete(t.dirty, id)
			if err := t.ch.Free(id); err != nil {
				return err
			}
		}
	}

	t.root = storage.InvalidPageID
	t.depth = 0
	t.entries, t.innerPages, t.leafPages = 0, 0, 0
	t.statsKnown = true
	t.maxKey = math.MinInt64
	t.maxValid = true
	t.modCount++
	return nil
}

// VisitPages calls fn with the id of every page of the tree, parents before
// children.
func (t *Tree) VisitPages(fn func(id storage.PageID, leaf bool) error) error {
	return t.walk(func(n *node, _ int) error {
		return fn(n.id, n.leaf)
	})
}

// walk visits every node depth first, parents before children.
func (t *Tree) walk(fn func(n *node, level int) error) error {
	if t.root == storage.InvalidPageID {
		return nil
	}

	type item struct {
		id    storage.PageID
		level int
	}
	stack := []item{{t.root, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, err := t.node(it.id)
		if err != nil {
			return err
		}
		if err := fn(n, it.level); err != nil {
			return err
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, item{n.children[i], it.level + 1})
		}
	}
	return nil
}
