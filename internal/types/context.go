package types

import (
	"context"
	"time"
)

type contextKey string

const (
	// PartKey is the context key for the part number being processed.
	PartKey contextKey = "part"
	// TimeoutKey is the context key for the per-request idle timeout.
	TimeoutKey contextKey = "timeout"
)

// WithPart returns a new context carrying the part number.
func WithPart(ctx context.Context, part int) context.Context {
	return context.WithValue(ctx, PartKey, part)
}

// PartFromContext returns the part number from the context.
func PartFromContext(ctx context.Context) (int, bool) {
	part, ok := ctx.Value(PartKey).(int)
	return part, ok
}

// WithTimeout returns a new context carrying the idle timeout for requests
// made with it. Non-positive values leave ctx unchanged.
func WithTimeout(ctx context.Context, d time.Duration) context.Context {
	if d <= 0 {
		return ctx
	}
	return context.WithValue(ctx, TimeoutKey, d)
}

// TimeoutFromContext returns the idle timeout set by WithTimeout.
func TimeoutFromContext(ctx context.Context) (time.Duration, bool) {
	d, ok := ctx.Value(TimeoutKey).(time.Duration)
	return d, ok && d > 0
}
