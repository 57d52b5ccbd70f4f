// Package id provides per-request correlation identifiers.
//
// # Format
//
// The ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence].
// Byte-wise (and therefore hex-string) comparison preserves chronological
// order, and IDs generated within the same millisecond remain strictly
// increasing by sequence.
//
// # Monotonicity
//
// The Generator ensures per-process monotonicity:
//   - If the system clock regresses, it pins to the last seen millisecond and
//     increments the sequence to avoid going backwards.
//   - If the sequence would overflow within a millisecond, it waits for the
//     next millisecond before emitting the next ID.
//
// # Correlation
//
// The HTTP layer mints one ID per request, returns it in the X-Request-Id
// response header, and attaches it to the request context with NewContext.
// Downstream code recovers it with FromContext and tags its log fields:
//
//	if rid, ok := id.FromContext(ctx); ok {
//	    logger.Info("reading accepted", log.Str("request_id", rid.String()))
//	}
package id
