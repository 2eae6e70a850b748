// Package cycletest provides test helpers for cycle engines: a wrapper that
// records an advance trace, assertion helpers over that trace, and reusable
// fixture configs.
package cycletest

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loopworks/mobius/cycle"
)

// Engine wraps a cycle engine with trace recording and assertion helpers.
type Engine[S any] struct {
	*cycle.Engine[S]

	t     *testing.T
	mu    sync.Mutex
	trace []TraceEntry
}

// TraceEntry records a single advance attempt.
type TraceEntry struct {
	Timestamp time.Time
	Stage     cycle.Stage
	Duration  time.Duration
	Error     error
}

// New builds an engine from the config, failing the test on construction
// errors. Every advance is recorded in the trace, and the engine is closed
// when the test finishes.
func New[S any](t *testing.T, config *cycle.Config[S]) *Engine[S] {
	t.Helper()

	engine, err := cycle.New(config)
	require.NoError(t, err, "failed to create engine")

	wrapped := Wrap(t, engine)
	t.Cleanup(func() { _ = engine.Close() })

	return wrapped
}

// Wrap attaches trace recording to an engine the caller already owns. The
// caller remains responsible for closing it.
func Wrap[S any](t *testing.T, engine *cycle.Engine[S]) *Engine[S] {
	t.Helper()

	te := &Engine[S]{
		Engine: engine,
		t:      t,
	}

	engine.AddAdvanceHook(func(_ context.Context, stage cycle.Stage, phase string, err error) {
		te.mu.Lock()
		defer te.mu.Unlock()

		switch phase {
		case cycle.HookPhaseStart:
			te.trace = append(te.trace, TraceEntry{
				Timestamp: time.Now(),
				Stage:     stage,
			})
		case cycle.HookPhaseEnd:
			if len(te.trace) > 0 {
				last := &te.trace[len(te.trace)-1]
				last.Duration = time.Since(last.Timestamp)
				last.Error = err
			}
		}
	})

	return te
}

// AdvanceN advances n times, failing the test on the first error.
func (e *Engine[S]) AdvanceN(ctx context.Context, n int) {
	e.t.Helper()

	for i := 0; i < n; i++ {
		require.NoError(e.t, e.Advance(ctx), "advance %d of %d failed", i+1, n)
	}
}

// Trace returns a copy of the recorded trace.
func (e *Engine[S]) Trace() []TraceEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Clone(e.trace)
}

func (e *Engine[S]) visitCount(stage cycle.Stage) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := 0

	for _, entry := range e.trace {
		if entry.Stage == stage {
			count++
		}
	}

	return count
}

// AssertStageVisited checks that the stage was advanced from at least once.
func (e *Engine[S]) AssertStageVisited(stage cycle.Stage) {
	e.t.Helper()

	require.Positive(e.t, e.visitCount(stage), "stage '%s' should have been visited", stage)
}

// AssertVisitCount checks how many times the stage was advanced from.
func (e *Engine[S]) AssertVisitCount(stage cycle.Stage, want int) {
	e.t.Helper()

	require.Equal(e.t, want, e.visitCount(stage), "visit count for stage '%s'", stage)
}

// AssertNoFailures checks that no recorded advance returned an error.
func (e *Engine[S]) AssertNoFailures() {
	e.t.Helper()

	for i, entry := range e.Trace() {
		require.NoError(e.t, entry.Error, "advance %d at stage '%s' failed", i, entry.Stage)
	}
}

// WaitForVisits blocks until the stage has been visited at least min times.
// Useful with scheduled engines, where advances happen on a timer.
func (e *Engine[S]) WaitForVisits(stage cycle.Stage, min int, timeout time.Duration) {
	e.t.Helper()

	require.Eventually(e.t, func() bool {
		return e.visitCount(stage) >= min
	}, timeout, 5*time.Millisecond, "stage '%s' should reach %d visits", stage, min)
}
