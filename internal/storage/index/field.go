package index

import (
	"fmt"

	"github.com/KilimcininKorOglu/oodb/internal/storage"
	"github.com/KilimcininKorOglu/oodb/internal/storage/btree"
)

// FieldIndex is a secondary index over one field of a kind: a non-unique
// tree of (surrogate key, owning oid) pairs.
type FieldIndex struct {
	id   uint32
	kind Kind
	tree *btree.Tree
}

// NewFieldIndex creates an empty field index in ch.
func NewFieldIndex(ch *storage.Channel, id uint32, kind Kind, opts ...btree.Option) (*FieldIndex, error) {
	if kind < KindInt64 || kind > KindTime {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
	tree, err := btree.New(ch, btree.NonUnique, opts...)
	if err != nil {
		return nil, err
	}
	return &FieldIndex{id: id, kind: kind, tree: tree}, nil
}

// LoadFieldIndex opens the field index rooted at root.
func LoadFieldIndex(ch *storage.Channel, id uint32, kind Kind, root storage.PageID, opts ...btree.Option) *FieldIndex {
	return &FieldIndex{id: id, kind: kind, tree: btree.Load(ch, btree.NonUnique, root, opts...)}
}

// ID returns the index id.
func (x *FieldIndex) ID() uint32 {
	return x.id
}

// Kind returns the kind of the indexed field.
func (x *FieldIndex) Kind() Kind {
	return x.kind
}

func (x *FieldIndex) check(k Key) error {
	if k.Kind() != x.kind {
		return fmt.Errorf("%w: index %d holds %s, got %s", ErrKindMismatch, x.id, x.kind, k.Kind())
	}
	return nil
}

// Insert records that object oid has field value k.
func (x *FieldIndex) Insert(k Key, oid int64) error {
	if err := x.check(k); err != nil {
		return err
	}
	return x.tree.Insert(k.Surrogate(), oid)
}

// Remove deletes the pair (k, oid).
func (x *FieldIndex) Remove(k Key, oid int64) error {
	if err := x.check(k); err != nil {
		return err
	}
	return x.tree.RemoveEntry(k.Surrogate(), oid)
}

// Lookup iterates the owners of key k in oid order.
func (x *FieldIndex) Lookup(k Key) *btree.Iterator {
	return x.tree.Iterator(k.Surrogate(), k.Surrogate())
}

// Range iterates the pairs with lo <= key <= hi by surrogate order.
func (x *FieldIndex) Range(lo, hi Key) *btree.Iterator {
	return x.tree.Iterator(lo.Surrogate(), hi.Surrogate())
}

// OIDs returns the owners of key k.
func (x *FieldIndex) OIDs(k Key) ([]int64, error) {
	entries, err := x.Lookup(k).Collect()
	if err != nil {
		return nil, err
	}
	oids := make([]int64, len(entries))
	for i, e := range entries {
		oids[i] = e.Value
	}
	return oids, nil
}

// Len returns the number of pairs.
func (x *FieldIndex) Len() (int64, error) {
	return x.tree.Len()
}

// Write writes the index pages and returns its root.
func (x *FieldIndex) Write() (storage.PageID, error) {
	return x.tree.Write()
}

// Clear removes every pair.
func (x *FieldIndex) Clear() error {
	return x.tree.Clear()
}

// Root returns the root page id.
func (x *FieldIndex) Root() storage.PageID {
	return x.tree.Root()
}

// Stats returns the statistics of the backing tree.
func (x *FieldIndex) Stats() (btree.Stats, error) {
	return x.tree.Stats()
}

// Verify checks the structure of the backing tree.
func (x *FieldIndex) Verify() error {
	return x.tree.Verify()
}

// Tree returns the backing tree.
func (x *FieldIndex) Tree() *btree.Tree {
	return x.tree
}
