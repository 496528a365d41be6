package ctxutil

import (
	"context"
	"time"
)

// Detached returns a context that keeps the values of parent (trace data,
// spans) but ignores its cancellation. A positive timeout bounds the result.
func Detached(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx := context.WithoutCancel(parent)
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
