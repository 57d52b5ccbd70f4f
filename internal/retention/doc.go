// Package retention bounds each patient's reading history in time and count.
//
// Policy is the pure decision logic: a cutoff for age-based purging and the
// excess over the count bound. Engine applies a policy against the reading
// store after each accepted reading. Both deletes are predicate-based and
// idempotent, so overlapping prunes for one patient are safe.
package retention
