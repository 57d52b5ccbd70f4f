// Package broadcast fans accepted readings out to live subscribers.
//
// One logical channel exists per patient. Publishing is fire-and-forget: a
// slow or absent subscriber never blocks or fails ingestion. Each subscriber
// owns a bounded buffer; on overflow the oldest buffered reading is dropped
// so the stream stays current. Subscribers may attach a CEL filter expression
// evaluated per reading.
package broadcast
