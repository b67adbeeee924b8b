package index

import (
	"errors"
	"fmt"
	"math"

	"github.com/KilimcininKorOglu/oodb/internal/storage"
	"github.com/KilimcininKorOglu/oodb/internal/storage/btree"
)

// Index errors.
var (
	ErrInvalidOID   = errors.New("object id must be positive")
	ErrKindMismatch = errors.New("key kind does not match index")
	ErrUnknownKind  = errors.New("unknown key kind")
)

// Location is where an object's record is stored.
type Location struct {
	Page   uint32
	Offset uint32
}

// Pack packs the location into an index value: page in the high 32 bits.
func (l Location) Pack() int64 {
	return int64(uint64(l.Page)<<32 | uint64(l.Offset))
}

// UnpackLocation reverses Location.Pack.
func UnpackLocation(v int64) Location {
	u := uint64(v)
	return Location{Page: uint32(u >> 32), Offset: uint32(u)}
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Page, l.Offset)
}

// OIDIndex maps object ids to record locations over a unique tree.
type OIDIndex struct {
	tree *btree.Tree
}

// NewOIDIndex creates an empty OID index in ch.
func NewOIDIndex(ch *storage.Channel, opts ...btree.Option) (*OIDIndex, error) {
	tree, err := btree.New(ch, btree.Unique, opts...)
	if err != nil {
		return nil, err
	}
	return &OIDIndex{tree: tree}, nil
}

// LoadOIDIndex opens the OID index rooted at root.
func LoadOIDIndex(ch *storage.Channel, root storage.PageID, opts ...btree.Option) *OIDIndex {
	return &OIDIndex{tree: btree.Load(ch, btree.Unique, root, opts...)}
}

// Insert stores or replaces the location of oid.
func (x *OIDIndex) Insert(oid int64, loc Location) error {
	if oid <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOID, oid)
	}
	return x.tree.Insert(oid, loc.Pack())
}

// Remove deletes oid and returns the location it had.
func (x *OIDIndex) Remove(oid int64) (Location, error) {
	v, err := x.tree.Remove(oid)
	if err != nil {
		return Location{}, err
	}
	return UnpackLocation(v), nil
}

// Find returns the location of oid, or btree.ErrEntryNotFound.
func (x *OIDIndex) Find(oid int64) (Location, error) {
	v, err := x.tree.FindValue(oid)
	if err != nil {
		return Location{}, err
	}
	return UnpackLocation(v), nil
}

// Iterator iterates the objects with min <= oid <= max; entry values are
// packed locations.
func (x *OIDIndex) Iterator(min, max int64) *btree.Iterator {
	return x.tree.Iterator(min, max)
}

// All iterates every object in oid order.
func (x *OIDIndex) All() *btree.Iterator {
	return x.tree.Iterator(1, math.MaxInt64)
}

// MaxOID returns the greatest object id, or 0 when the index is empty.
func (x *OIDIndex) MaxOID() (int64, error) {
	max, err := x.tree.MaxKey()
	if err != nil {
		return 0, err
	}
	if max == math.MinInt64 {
		return 0, nil
	}
	return max, nil
}

// NextOID returns the object id following the greatest one in use.
func (x *OIDIndex) NextOID() (int64, error) {
	max, err := x.MaxOID()
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// Len returns the number of objects.
func (x *OIDIndex) Len() (int64, error) {
	return x.tree.Len()
}

// Write writes the index pages and returns its root.
func (x *OIDIndex) Write() (storage.PageID, error) {
	return x.tree.Write()
}

// Clear removes every object.
func (x *OIDIndex) Clear() error {
	return x.tree.Clear()
}

// Root returns the root page id.
func (x *OIDIndex) Root() storage.PageID {
	return x.tree.Root()
}

// Stats returns the statistics of the backing tree.
func (x *OIDIndex) Stats() (btree.Stats, error) {
	return x.tree.Stats()
}

// Verify checks the structure of the backing tree.
func (x *OIDIndex) Verify() error {
	return x.tree.Verify()
}

// Tree returns the backing tree.
func (x *OIDIndex) Tree() *btree.Tree {
	return x.tree
}
