package retention

import (
	"context"
)

// Store is the slice of the reading store the engine needs.
type Store interface {
	DeleteOlderThan(ctx context.Context, patient string, cutoffMs int64) (int, error)
	CountFor(ctx context.Context, patient string) (int, error)
	DeleteOldest(ctx context.Context, patient string, n int) (int, error)
}

// Result reports what one prune pass removed.
type Result struct {
	AgedOut int // removed by the time bound
	Evicted int // removed by the count bound, oldest first
}

// Engine applies a Policy against the store.
type Engine struct {
	policy Policy
	store  Store
}

// NewEngine builds an Engine over the given store.
func NewEngine(policy Policy, store Store) *Engine {
	return &Engine{policy: policy, store: store}
}

// Policy returns the bounds the engine enforces.
func (e *Engine) Policy() Policy { return e.policy }

// Prune removes the patient's readings outside the retention window: first
// everything older than the cutoff, then the oldest excess over the count
// bound. Running it again with no new readings is a no-op.
func (e *Engine) Prune(ctx context.Context, patient string, nowMs int64) (Result, error) {
	var res Result

	aged, err := e.store.DeleteOlderThan(ctx, patient, e.policy.Cutoff(nowMs))
	if err != nil {
		return res, err
	}
	res.AgedOut = aged

	count, err := e.store.CountFor(ctx, patient)
	if err != nil {
		return res, err
	}
	if excess := e.policy.Excess(count); excess > 0 {
		evicted, err := e.store.DeleteOldest(ctx, patient, excess)
		if err != nil {
			return res, err
		}
		res.Evicted = evicted
	}
	return res, nil
}
