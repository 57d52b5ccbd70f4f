// Package ingest implements the reading acceptance pipeline and the query
// service.
//
// One accepted reading moves through: validate → resolve patient → persist →
// broadcast → prune. Persistence failures abort the request; broadcast and
// prune failures never do — by the time they run, the reading is durable and
// the producer's acceptance is already decided. The resolved principal is an
// explicit argument end to end; nothing is read from ambient state.
package ingest
