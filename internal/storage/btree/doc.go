// Package btree provides the paged B+-tree index engine of oodb.
//
// # Overview
//
// A Tree maps int64 keys to int64 values and keeps its nodes in the pages
// of a storage.Channel. Two duplicate policies share one implementation:
//
//   - Unique: one value per key; Insert on an existing key replaces the value
//   - NonUnique: a set of (key, value) pairs ordered by key, then value
//
// # Page Layout
//
// Leaf pages hold sorted entries. Inner pages hold n separators and n+1
// child page ids; child i covers the entries e with
// separator[i-1] < e <= separator[i]. Non-unique trees store full
// (key, value) separators so that runs of one key spanning several leaves
// route exactly.
//
// # Copy-On-Write
//
// Every mutation first descends read-only. Before the leaf is changed, each
// page on the path that the current channel generation does not own is
// cloned to a new page and the original is freed:
//
//	root(7) -> inner(12) -> leaf(40)         pages of generation g
//	root(91) -> inner(92) -> leaf(93)        after one insert in g+1
//
// Later mutations in the same generation update those clones in place.
// Write hands the dirty pages to the channel and returns the root page id
// for the caller to persist.
//
// # Rebalancing
//
// An overflowing node is split at its median; the greatest entry left in
// the lower half becomes the separator. Appending past the last key splits
// the rightmost nodes unevenly so sequential loads produce full pages.
// After a removal an underfull node merges with a sibling when both fit one
// page; an inner node reduced to a single child that cannot merge borrows
// one child from its sibling. An inner root with one child is collapsed.
//
// # Iteration
//
// Iterators walk a stack of frames down the tree rather than following
// sibling links. They fail fast: a mutation of the tree or a new
// transaction on the channel stops them with an error instead of yielding
// stale entries.
//
//	it := tree.Iterator(1000, 1999)
//	defer it.Close()
//	for it.Next() {
//	    e := it.Entry()
//	    fmt.Println(e.Key, e.Value)
//	}
//	if err := it.Err(); err != nil {
//	    return err
//	}
package btree
