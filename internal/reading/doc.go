// Package reading implements the durable reading store: an append-only,
// per-patient history of sensor samples over Pebble.
//
// Keyspace layout (byte-wise, lexicographically sortable):
//
//   - pt/{patient}/m           — per-patient meta (last sequence, live count)
//   - pt/{patient}/r/{seq_be8} — one encoded reading per sequence
//
// Sequences are assigned under a per-patient lock, so sequence order equals
// acceptance order and timestamps never regress within one patient. Reverse
// scans therefore yield strictly descending timestamps with sequence
// (identifier) descending on ties.
package reading
