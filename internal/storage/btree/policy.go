package btree

import "cmp"

// Entry is one key/value pair stored in a tree.
type Entry struct {
	Key   int64
	Value int64
}

// Policy decides how a tree treats equal keys. Use Unique or NonUnique.
type Policy interface {
	// Unique reports whether a key maps to at most one value.
	Unique() bool
	// Name returns the policy name used in logs and stats.
	Name() string

	compare(a, b Entry) int
}

// Duplicate policies.
var (
	// Unique trees hold one value per key; inserting an existing key
	// replaces its value.
	Unique Policy = uniquePolicy{}

	// NonUnique trees hold a set of (key, value) pairs ordered by key,
	// then value.
	NonUnique Policy = nonUniquePolicy{}
)

type uniquePolicy struct{}

func (uniquePolicy) Unique() bool { return true }
func (uniquePolicy) Name() string { return "unique" }

func (uniquePolicy) compare(a, b Entry) int {
	return cmp.Compare(a.Key, b.Key)
}

type nonUniquePolicy struct{}

func (nonUniquePolicy) Unique() bool { return false }
func (nonUniquePolicy) Name() string { return "non-unique" }

func (nonUniquePolicy) compare(a, b Entry) int {
	if c := cmp.Compare(a.Key, b.Key); c != 0 {
		return c
	}
	return cmp.Compare(a.Value, b.Value)
}
