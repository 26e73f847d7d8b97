package core

import (
	"context"

	"github.com/google/uuid"
)

// NewCorrelationID generates a fresh operation correlation id, stamped on
// every event and transport request issued by an inclusion, exclusion,
// replace, or heal operation for log correlation (spec.md §11).
func NewCorrelationID() string {
	return uuid.NewString()
}

type correlationIDKey struct{}

// WithCorrelationID attaches a correlation id to ctx, so that a status report
// or request handler invoked later in the same operation (possibly on a
// different goroutine than the one that started it) can still tag its own
// events and transport requests with it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext returns the correlation id attached by
// WithCorrelationID, or "" if none was attached.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}
