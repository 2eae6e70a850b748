package cycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/atomic"

	"github.com/loopworks/mobius/optional"
)

// Metric outcome constants.
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeSkipped = "skipped"
)

// defaultCycleName labels engines whose config carries no name.
const defaultCycleName = "cycle"

// Engine drives a cyclical state machine: a fixed stage sequence advanced
// one stage per call, wrapping from the last stage back to the first.
//
// All methods are safe for concurrent use. Advances are serialized: a tick
// from the scheduler and a manual Advance never interleave.
type Engine[S any] struct {
	name     string
	id       string
	stages   []Stage
	handlers map[Stage]Handler[S]
	observer Observer[S]
	onError  ErrorHandler[S]
	interval time.Duration
	histCap  int
	initial  S
	logger   Logger

	mu      sync.Mutex
	index   int
	state   S
	prev    optional.Value[S]
	history []Transition
	hooks   []AdvanceHook

	schedMu sync.Mutex
	sched   *schedule
	pool    pond.Pool
	closed  atomic.Bool
}

// New creates an engine from a configuration.
func New[S any](config *Config[S]) (*Engine[S], error) {
	if config == nil {
		return nil, ErrMissingConfig
	}

	err := config.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	name := config.Name
	if name == "" {
		name = defaultCycleName
	}

	id := uuid.New().String()

	logger := config.Logger
	if logger == nil {
		logger = NewDefaultLoggerWith(slog.Default().With("cycle", name, "engine_id", id))
	}

	engine := &Engine[S]{
		name:     name,
		id:       id,
		stages:   slices.Clone(config.Stages),
		handlers: maps.Clone(config.Handlers),
		observer: config.Observer,
		onError:  config.ErrorHandler,
		interval: config.Interval,
		histCap:  config.HistoryLimit,
		initial:  config.InitialState,
		state:    config.InitialState,
		logger:   logger,
		pool:     pond.NewPool(1),
	}

	return engine, nil
}

// Advance runs the current stage's handler, applies its outcome, moves the
// index one stage forward (wrapping), and notifies the observer with the new
// state and the stage the cycle now rests on.
//
// On handler failure the cycle parks: state, previous state, and index are
// left untouched, the observer is not called, and the failure is routed to
// the configured ErrorHandler (or the logger when none is set). The returned
// error wraps the handler error in a *StageError. Handler panics are
// recovered and reported the same way.
func (e *Engine[S]) Advance(ctx context.Context) error {
	e.mu.Lock()

	from := e.stages[e.index]

	ctx, span := startAdvanceSpan(ctx, e.name, e.id, from)
	defer span.End()

	e.logger.AdvanceStarted(ctx, from)

	for _, hook := range e.hooks {
		hook(ctx, from, HookPhaseStart, nil)
	}

	start := time.Now()
	outcome := outcomeSkipped

	var (
		handlerErr error
		changed    bool
	)

	handler, bound := e.handlers[from]
	if bound {
		var verdict Outcome[S]
		verdict, handlerErr = e.invoke(ctx, handler, from)

		if handlerErr == nil {
			outcome = outcomeSuccess
			before := e.state

			if next, ok := verdict.Get(); ok {
				e.state = next
				changed = true
			}

			e.prev = optional.Some(before)
		} else {
			outcome = outcomeError
		}
	}

	elapsed := time.Since(start)

	advancesTotal.WithLabelValues(sanitizeCycle(e.name), string(from), outcome).Inc()
	stageDuration.WithLabelValues(sanitizeCycle(e.name), string(from), outcome).Observe(elapsed.Seconds())

	for _, hook := range e.hooks {
		hook(ctx, from, HookPhaseEnd, handlerErr)
	}

	if handlerErr != nil {
		span.RecordError(handlerErr)
		span.SetStatus(codes.Error, handlerErr.Error())

		state := e.state
		e.mu.Unlock()

		e.reportFailure(ctx, from, elapsed, handlerErr, state)

		return WrapStageError(from, handlerErr)
	}

	e.index = (e.index + 1) % len(e.stages)
	to := e.stages[e.index]

	e.recordTransition(from, to, changed)

	span.SetAttributes(
		attribute.String("to_stage", string(to)),
		attribute.Bool("state_changed", changed),
		attribute.Int64("duration_ms", elapsed.Milliseconds()),
	)
	span.SetStatus(codes.Ok, "advanced")

	e.logger.AdvanceCompleted(ctx, from, to, changed, elapsed)

	state := e.state
	observer := e.observer
	e.mu.Unlock()

	// Notify outside the lock so observers can call back into the engine.
	observer(state, to)

	return nil
}

// invoke runs a stage handler inside its own span, recovering panics into
// errors so a misbehaving handler cannot take the engine down.
func (e *Engine[S]) invoke(ctx context.Context, handler Handler[S], stage Stage) (out Outcome[S], err error) {
	ctx, span := startStageSpan(ctx, e.name, e.id, stage)

	defer func() {
		if r := recover(); r != nil {
			err = panicErr(stage, r)
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "completed")
		}

		span.End()
	}()

	return handler(ctx, e.state)
}

// reportFailure routes a contained stage failure to the error handler, or to
// the logger when none is configured. Failures are never silent.
func (e *Engine[S]) reportFailure(ctx context.Context, stage Stage, elapsed time.Duration, err error, state S) {
	if errors.Is(err, ErrHandlerPanic) {
		handlerPanicsTotal.WithLabelValues(sanitizeCycle(e.name), string(stage)).Inc()
	}

	if e.onError != nil {
		e.onError(err, stage, state)

		return
	}

	e.logger.StageFailed(ctx, stage, elapsed, err)
}

// recordTransition appends to the bounded history. Caller holds e.mu.
func (e *Engine[S]) recordTransition(from, to Stage, changed bool) {
	if e.histCap == 0 {
		return
	}

	e.history = append(e.history, Transition{
		From:         from,
		To:           to,
		At:           time.Now(),
		StateChanged: changed,
	})

	if len(e.history) > e.histCap {
		e.history = e.history[len(e.history)-e.histCap:]
	}
}

// CurrentStage returns the stage the cycle currently rests on.
func (e *Engine[S]) CurrentStage() Stage {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.stages[e.index]
}

// CurrentStageIndex returns the zero-based index of the current stage.
func (e *Engine[S]) CurrentStageIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.index
}

// CurrentState returns the current state.
func (e *Engine[S]) CurrentState() S {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// PreviousState returns the state as it was before the most recent handler
// outcome. It is empty until the first successful advance of a handled
// stage, and empty again after Reset.
func (e *Engine[S]) PreviousState() optional.Value[S] {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.prev
}

// SetState replaces the current state without advancing the cycle. The
// previous state, stage index, and history are untouched. The observer is
// notified with the new state and the current stage.
func (e *Engine[S]) SetState(ctx context.Context, state S) {
	e.mu.Lock()
	e.state = state
	stage := e.stages[e.index]
	observer := e.observer
	e.mu.Unlock()

	stateInjectionsTotal.WithLabelValues(sanitizeCycle(e.name)).Inc()
	e.logger.StateInjected(ctx, stage)

	observer(state, stage)
}

// Reset stops any active cycling and returns the engine to its initial
// shape: index zero, initial state, no previous state, empty history. The
// observer is notified once with the restored state and the first stage.
// Because it stops cycling, Reset must not be called from a handler or
// observer.
func (e *Engine[S]) Reset(ctx context.Context) {
	e.StopCycle()

	e.mu.Lock()
	e.index = 0
	e.state = e.initial
	e.prev = optional.None[S]()
	e.history = nil
	first := e.stages[0]
	state := e.state
	observer := e.observer
	e.mu.Unlock()

	resetsTotal.WithLabelValues(sanitizeCycle(e.name)).Inc()
	e.logger.CycleReset(ctx)

	observer(state, first)
}

// History returns a copy of the recorded transitions, oldest first. It is
// empty when the config's HistoryLimit is zero.
func (e *Engine[S]) History() []Transition {
	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Clone(e.history)
}

// AddAdvanceHook adds a hook called around every advance. Hooks run inside
// the engine's critical section and must not block or call back into the
// engine.
func (e *Engine[S]) AddAdvanceHook(hook AdvanceHook) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.hooks = append(e.hooks, hook)
}

// Name returns the cycle name used in logs, metrics, and spans.
func (e *Engine[S]) Name() string {
	return e.name
}

// ID returns the unique engine instance id.
func (e *Engine[S]) ID() string {
	return e.id
}

// Stages returns a copy of the stage sequence.
func (e *Engine[S]) Stages() []Stage {
	return slices.Clone(e.stages)
}
