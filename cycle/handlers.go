package cycle

import (
	"context"
	"fmt"
	"time"
)

// Noop returns a handler that leaves the state untouched.
func Noop[S any]() Handler[S] {
	return func(_ context.Context, _ S) (Outcome[S], error) {
		return Unchanged[S](), nil
	}
}

// Chain composes handlers into one, running them in order and threading each
// replacement into the next step. The first error aborts the chain. From the
// engine's view the chain is a single handler: previous-state tracking sees
// one update for the whole chain.
func Chain[S any](handlers ...Handler[S]) Handler[S] {
	return func(ctx context.Context, state S) (Outcome[S], error) {
		current := state
		changed := false

		for i, handler := range handlers {
			verdict, err := handler(ctx, current)
			if err != nil {
				return Unchanged[S](), fmt.Errorf("chain step %d failed: %w", i, err)
			}

			if next, ok := verdict.Get(); ok {
				current = next
				changed = true
			}
		}

		if changed {
			return Replace(current), nil
		}

		return Unchanged[S](), nil
	}
}

// WithRetry wraps a handler with bounded retries and linear backoff. Each
// attempt receives the same input state. Waits between attempts respect ctx
// cancellation. A maxRetries below one means a single attempt.
func WithRetry[S any](handler Handler[S], maxRetries int, backoff time.Duration) Handler[S] {
	if maxRetries < 1 {
		maxRetries = 1
	}

	return func(ctx context.Context, state S) (Outcome[S], error) {
		var lastErr error

		for i := range maxRetries {
			verdict, err := handler(ctx, state)
			if err == nil {
				return verdict, nil
			}

			lastErr = err

			if i < maxRetries-1 {
				select {
				case <-ctx.Done():
					return Unchanged[S](), fmt.Errorf("retry interrupted: %w", ctx.Err())
				case <-time.After(backoff * time.Duration(i+1)):
				}
			}
		}

		return Unchanged[S](), fmt.Errorf("retry exhausted after %d attempts: %w", maxRetries, lastErr)
	}
}
