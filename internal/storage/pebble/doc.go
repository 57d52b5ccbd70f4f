// Package pebblestore wraps Pebble with the fsync policy and the narrow
// surface the vitals storage layer needs: point get/set for registry and
// meta records, atomic batches for entry+meta commits, raw iterators for
// per-patient keyspace scans, and range compaction after large prunes.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeAlways,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	// Entry and meta committed atomically
//	b := db.NewBatch()
//	_ = b.Set([]byte("pt/alice/r/\x00\x00\x00\x00\x00\x00\x00\x01"), record, nil)
//	_ = b.Set([]byte("pt/alice/m"), meta, nil)
//	_ = db.CommitBatch(context.Background(), b)
//	b.Close()
package pebblestore
