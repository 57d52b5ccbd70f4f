package id

import "context"

type ctxKey struct{}

// NewContext attaches a request ID to the context. The HTTP layer does this
// once per request; everything downstream logs the same id.
func NewContext(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request ID attached to the context, if any.
func FromContext(ctx context.Context) (ID, bool) {
	id, ok := ctx.Value(ctxKey{}).(ID)
	return id, ok
}
