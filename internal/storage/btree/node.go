package btree

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/KilimcininKorOglu/oodb/internal/storage"
)

// Page body layout after the storage page header:
//
//	leaf:               count x (key int64, value int64)
//	inner, unique:      count x key int64,            (count+1) x child uint32
//	inner, non-unique:  count x (key int64, value int64), (count+1) x child uint32
const (
	entrySize = 16
	keySize   = 8
	childSize = 4
)

// LeafCapacity returns the number of entries a leaf page holds.
func LeafCapacity(pageSize int) int {
	return (pageSize - storage.PageHeaderSize) / entrySize
}

// InnerCapacity returns the number of separators an inner page holds.
func InnerCapacity(pageSize int, policy Policy) int {
	sep := keySize
	if !policy.Unique() {
		sep = entrySize
	}
	return (pageSize - storage.PageHeaderSize - childSize) / (sep + childSize)
}

// node is the decoded form of one page. For inner nodes entries holds the
// separators: children[i] covers entries <= entries[i] and > entries[i-1].
type node struct {
	id       storage.PageID
	leaf     bool
	entries  []Entry
	children []storage.PageID
}

func newLeaf(id storage.PageID) *node {
	return &node{id: id, leaf: true}
}

// search returns the first position whose entry is >= e.
func (n *node) search(policy Policy, e Entry) int {
	return sort.Search(len(n.entries), func(i int) bool {
		return policy.compare(n.entries[i], e) >= 0
	})
}

// childIndex returns the child that covers e.
func (n *node) childIndex(policy Policy, e Entry) int {
	return n.search(policy, e)
}

func (n *node) insertEntry(pos int, e Entry) {
	n.entries = append(n.entries, Entry{})
	copy(n.entries[pos+1:], n.entries[pos:])
	n.entries[pos] = e
}

func (n *node) removeEntry(pos int) Entry {
	e := n.entries[pos]
	n.entries = append(n.entries[:pos], n.entries[pos+1:]...)
	return e
}

// insertChild adds separator sep at pos with right as the child after it.
func (n *node) insertChild(pos int, sep Entry, right storage.PageID) {
	n.insertEntry(pos, sep)
	n.children = append(n.children, storage.InvalidPageID)
	copy(n.children[pos+2:], n.children[pos+1:])
	n.children[pos+1] = right
}

func (n *node) removeChild(pos int) {
	n.children = append(n.children[:pos], n.children[pos+1:]...)
}

func (n *node) lastEntry() Entry {
	return n.entries[len(n.entries)-1]
}

// encode serializes the node into a page-sized buffer.
func (n *node) encode(pageSize int, policy Policy) ([]byte, error) {
	buf := make([]byte, pageSize)
	body := buf[storage.PageHeaderSize:]

	if n.leaf {
		if len(n.entries) > LeafCapacity(pageSize) {
			return nil, fmt.Errorf("%w: leaf %d holds %d entries", storage.ErrCapacityExceeded, n.id, len(n.entries))
		}
		storage.PutPageHeader(buf, storage.PageKindLeaf, 0, len(n.entries))
		for i, e := range n.entries {
			binary.LittleEndian.PutUint64(body[i*entrySize:], uint64(e.Key))
			binary.LittleEndian.PutUint64(body[i*entrySize+keySize:], uint64(e.Value))
		}
		return buf, nil
	}

	if len(n.entries) > InnerCapacity(pageSize, policy) {
		return nil, fmt.Errorf("%w: inner %d holds %d separators", storage.ErrCapacityExceeded, n.id, len(n.entries))
	}
	if len(n.children) != len(n.entries)+1 {
		return nil, fmt.Errorf("%w: inner %d has %d separators and %d children",
			ErrInvalidTree, n.id, len(n.entries), len(n.children))
	}

	var flags storage.PageFlag
	sepSize := keySize
	if !policy.Unique() {
		flags = storage.PageFlagPairs
		sepSize = entrySize
	}
	storage.PutPageHeader(buf, storage.PageKindInner, flags, len(n.entries))

	off := 0
	for _, e := range n.entries {
		binary.LittleEndian.PutUint64(body[off:], uint64(e.Key))
		if sepSize == entrySize {
			binary.LittleEndian.PutUint64(body[off+keySize:], uint64(e.Value))
		}
		off += sepSize
	}
	for _, c := range n.children {
		binary.LittleEndian.PutUint32(body[off:], uint32(c))
		off += childSize
	}
	return buf, nil
}

// decodeNode parses a page into a private node.
func decodeNode(v storage.PageView, policy Policy) (*node, error) {
	pageSize := len(v.Bytes())
	body := v.Body()
	count := v.Count()

	switch v.Kind() {
	case storage.PageKindLeaf:
		if count > LeafCapacity(pageSize) {
			return nil, fmt.Errorf("%w: leaf %d count %d", storage.ErrCorruptPage, v.ID(), count)
		}
		n := &node{id: v.ID(), leaf: true, entries: make([]Entry, count)}
		for i := range n.entries {
			n.entries[i] = Entry{
				Key:   int64(binary.LittleEndian.Uint64(body[i*entrySize:])),
				Value: int64(binary.LittleEndian.Uint64(body[i*entrySize+keySize:])),
			}
		}
		return n, nil

	case storage.PageKindInner:
		pairs := v.Flags()&storage.PageFlagPairs != 0
		if pairs == policy.Unique() {
			return nil, fmt.Errorf("%w: inner %d separator layout does not match %s tree",
				storage.ErrCorruptPage, v.ID(), policy.Name())
		}
		if count > InnerCapacity(pageSize, policy) {
			return nil, fmt.Errorf("%w: inner %d count %d", storage.ErrCorruptPage, v.ID(), count)
		}

		sepSize := keySize
		if pairs {
			sepSize = entrySize
		}
		n := &node{
			id:       v.ID(),
			entries:  make([]Entry, count),
			children: make([]storage.PageID, count+1),
		}
		off := 0
		for i := range n.entries {
			n.entries[i].Key = int64(binary.LittleEndian.Uint64(body[off:]))
			if pairs {
				n.entries[i].Value = int64(binary.LittleEndian.Uint64(body[off+keySize:]))
			}
			off += sepSize
		}
		for i := range n.children {
			n.children[i] = storage.PageID(binary.LittleEndian.Uint32(body[off:]))
			off += childSize
		}
		return n, nil

	default:
		return nil, fmt.Errorf("%w: page %d has kind %s", storage.ErrCorruptPage, v.ID(), v.Kind())
	}
}
