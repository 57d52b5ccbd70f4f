package retention

import "time"

// Policy holds the retention bounds for one deployment. The zero value is not
// usable; construct via Default or from config.
type Policy struct {
	// MaxAge is the time bound: readings older than now-MaxAge are purged.
	MaxAge time.Duration
	// MaxCount is the count bound: at most MaxCount readings are retained
	// per patient after the time-based purge.
	MaxCount int
}

// Default returns the stock bounds: ten minutes of one-per-second readings.
func Default() Policy {
	return Policy{MaxAge: 10 * time.Minute, MaxCount: 600}
}

// Cutoff returns the timestamp (ms) strictly before which readings are
// eligible for age-based deletion.
func (p Policy) Cutoff(nowMs int64) int64 {
	return nowMs - p.MaxAge.Milliseconds()
}

// Excess returns how many readings exceed the count bound, given the count
// observed after the time-based purge. Zero when within bounds.
func (p Policy) Excess(count int) int {
	if count > p.MaxCount {
		return count - p.MaxCount
	}
	return 0
}
