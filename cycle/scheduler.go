package cycle

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"
)

// schedule tracks one live cycling loop.
type schedule struct {
	cancel   context.CancelFunc
	task     pond.Task
	interval time.Duration
}

// StartCycle begins timer-driven advancement on a single-worker pool. Each
// tick performs one Advance with ctx as the handler context; the interval
// argument overrides the config default when positive.
//
// If cycling is already active, the previous loop is stopped first, so at
// most one loop is ever live. The returned bool reports whether a loop was
// started: a refusal (no usable interval, closed engine) is logged as a
// scheduler warning, not returned as an error.
//
// Cancelling ctx stops the loop and any in-flight handler; StopCycle stops
// only future ticks.
func (e *Engine[S]) StartCycle(ctx context.Context, interval time.Duration) bool {
	e.schedMu.Lock()
	defer e.schedMu.Unlock()

	if e.closed.Load() {
		e.logger.SchedulerWarning(ctx, "engine is closed, cycling not started")

		return false
	}

	if e.sched != nil {
		e.logger.SchedulerWarning(ctx, "cycling already active, restarting")
		e.stopScheduleLocked(ctx)
	}

	effective := interval
	if effective <= 0 {
		effective = e.interval
	}

	if effective <= 0 {
		e.logger.SchedulerWarning(ctx, "no usable interval, cycling not started")

		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)

	task := e.pool.Submit(func() {
		e.runLoop(loopCtx, ctx, effective)
	})

	e.sched = &schedule{
		cancel:   cancel,
		task:     task,
		interval: effective,
	}

	schedulerRunning.WithLabelValues(sanitizeCycle(e.name)).Set(1)
	e.logger.SchedulerStarted(ctx, effective)

	return true
}

// StopCycle stops timer-driven advancement and waits for the loop goroutine
// to exit. An in-flight advance completes; only future ticks are cancelled.
// Calling StopCycle when no cycling is active is a no-op.
//
// Must not be called from a handler or observer: the wait would be for the
// goroutine running the callback. Cancel the StartCycle context instead.
func (e *Engine[S]) StopCycle() {
	e.schedMu.Lock()
	defer e.schedMu.Unlock()

	e.stopScheduleLocked(context.Background())
}

// stopScheduleLocked tears down the live loop. Caller holds e.schedMu.
func (e *Engine[S]) stopScheduleLocked(ctx context.Context) {
	if e.sched == nil {
		return
	}

	e.sched.cancel()
	_ = e.sched.task.Wait()
	e.sched = nil

	schedulerRunning.WithLabelValues(sanitizeCycle(e.name)).Set(0)
	e.logger.SchedulerStopped(ctx)
}

// Running reports whether cycling has been started and not yet stopped.
// Cancelling the StartCycle context halts ticking, but the schedule is only
// released by StopCycle, Close, or a restart.
func (e *Engine[S]) Running() bool {
	e.schedMu.Lock()
	defer e.schedMu.Unlock()

	return e.sched != nil
}

// Close stops cycling and releases the engine's worker pool. It is
// idempotent. Manual operations (Advance, SetState, Reset) remain usable
// afterwards; StartCycle does not. Like StopCycle, it must not be called
// from a handler or observer.
func (e *Engine[S]) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.schedMu.Lock()
	defer e.schedMu.Unlock()

	e.stopScheduleLocked(context.Background())
	e.pool.StopAndWait()

	return nil
}

// runLoop drives the ticker until loopCtx is cancelled. Advances run
// synchronously on this goroutine, so a slow handler makes the ticker drop
// ticks instead of queueing them; overruns are counted.
func (e *Engine[S]) runLoop(loopCtx, tickCtx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-loopCtx.Done():
			return

		case <-ticker.C:
			// A tick and a cancellation can race; re-check before advancing.
			if loopCtx.Err() != nil {
				return
			}

			ticksTotal.WithLabelValues(sanitizeCycle(e.name)).Inc()

			start := time.Now()

			// Failures are contained by Advance and already routed to the
			// error handler or logger; the loop keeps ticking so the parked
			// stage is retried on the next tick.
			_ = e.Advance(tickCtx)

			if time.Since(start) > interval {
				tickOverrunsTotal.WithLabelValues(sanitizeCycle(e.name)).Inc()
			}
		}
	}
}
