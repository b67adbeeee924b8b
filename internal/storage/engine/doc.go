// Package engine implements the oodb Store that combines the storage
// components into one handle.
//
// # Overview
//
// A Store owns one region file and the trees kept in it:
//
//   - the OID index: object id to record location
//   - field indices: field value surrogate to owning object ids
//   - the catalog: field index id to index kind and root page
//   - the free-space tree: freed page id to freeing generation
//
// # Opening a Store
//
//	opts := engine.DefaultOptions()
//	opts.Storage = opts.Storage.WithPageSize(4096).WithSyncOnWrite(true)
//
//	store, err := engine.Open("/var/lib/oodb", opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// # Writing
//
// Changes accumulate in the current generation until Commit publishes them
// with a single header write:
//
//	store.Begin(txID)
//	store.OIDIndex().Insert(oid, index.Location{Page: 12, Offset: 96})
//
//	names, _ := store.CreateFieldIndex(1, index.KindString)
//	names.Insert(index.StringKey("alice"), oid)
//
//	if _, err := store.Commit(); err != nil {
//	    return err
//	}
//
// Closing without Commit discards the changes: the region still holds the
// previous generation.
//
// # Maintenance
//
//	stats, _ := store.Stats()
//	fmt.Print(stats)
//
//	if err := store.Verify(); err != nil {
//	    log.Printf("store damaged: %v", err)
//	}
package engine
