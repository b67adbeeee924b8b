// Package index implements the object indices of oodb on top of btree.
//
// # OID Index
//
// OIDIndex maps an object id to the location of its record, a page and an
// offset packed into one int64:
//
//	idx.Insert(42, index.Location{Page: 7, Offset: 128})
//	loc, err := idx.Find(42)
//
// # Field Indices
//
// A FieldIndex maps the values of one field to the objects holding them.
// Field values are reduced to order-preserving 64-bit surrogate keys:
//
//	index.Int64Key(-5)          // the value itself
//	index.Float64Key(2.5)       // sign-aware bit order, NaN above +Inf
//	index.StringKey("alice")    // first 8 bytes, big-endian
//	index.BoolKey(true)
//	index.TimeKey(time.Now())   // Unix nanoseconds
//
// Distinct values can share a surrogate (strings with a common 8-byte
// prefix), so callers compare the stored values of the candidates a lookup
// returns.
package index
