// Package storage provides the page storage channel for the oodb index engine.
//
// # Overview
//
// A region is a single file (or memory buffer) divided into fixed-size
// pages. Pages 0 and 1 hold two alternating copies of the region header; all
// other pages hold index content written by the B+-tree package.
//
//	+----------+----------+--------+--------+-----
//	| header 0 | header 1 | page 2 | page 3 | ...
//	+----------+----------+--------+--------+-----
//
// # Generations
//
// Writes are grouped into generations. A page allocated in the current
// generation may be rewritten freely; its bytes stay in memory until Flush.
// Every other page is immutable: callers clone it to a new page and free
// the original (copy-on-write). Flush writes the dirty pages, then the
// header slot of the generation being published:
//
//	ch, _ := storage.NewChannel(storage.NewMemRegion(), storage.DefaultOptions(), nil)
//	id, _ := ch.Allocate()
//	_ = ch.WritePage(id, buf)
//	off, _ := ch.Flush(storage.Roots{OIDIndex: id})
//
// Opening a region picks the valid header slot with the highest generation,
// so a crash between page writes and the header write leaves the previous
// state intact.
//
// # Free Space
//
// Pages freed in the generation that allocated them are reused immediately.
// Pages published by an earlier generation are handed to a FreeSpace
// implementation, which returns them once no snapshot can still read them.
//
// # Snapshots
//
// Pin records the current generation as in use by a reader. OldestPinned
// bounds page reuse, and the transaction id captured by the snapshot lets
// iterators detect a change of write context (StartWriting).
//
// # Caching
//
// Clean pages read from the region are kept in a ristretto cache sized by
// Options.CacheSize. Flush evicts every page it writes.
package storage
