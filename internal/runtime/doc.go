// Package runtime wires storage, config, and the ingestion services into a
// single-node vitals instance. It exposes Open/Close, basic health checks,
// and accessors used by the transport layer.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	// Health
//	_ = rt.CheckHealth(context.Background())
//	// Ingest a reading
//	p := 120
//	_, _ = rt.Ingest().IngestHinted(context.Background(), nil, ingest.RawReading{Pressure: &p}, ingest.Hints{Path: "alice"})
package runtime
