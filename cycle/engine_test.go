package cycle

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourStages() []Stage {
	return []Stage{"Mapping", "Iteration", "Checking", "Transformation"}
}

type observed[S any] struct {
	state S
	stage Stage
}

// recorder captures observer notifications for assertions. Safe for
// concurrent use because scheduled engines notify from the loop goroutine.
type recorder[S any] struct {
	mu      sync.Mutex
	entries []observed[S]
}

func (r *recorder[S]) observe(state S, stage Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, observed[S]{state: state, stage: stage})
}

func (r *recorder[S]) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *recorder[S]) last() observed[S] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return observed[S]{}
	}
	return r.entries[len(r.entries)-1]
}

func (r *recorder[S]) stageLog() []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	stages := make([]Stage, len(r.entries))
	for i, entry := range r.entries {
		stages[i] = entry.stage
	}
	return stages
}

func TestNewRejectsNilConfig(t *testing.T) {
	t.Parallel()

	engine, err := New[int](nil)
	require.ErrorIs(t, err, ErrMissingConfig)
	assert.Nil(t, engine)
}

func TestNewWrapsValidationFailures(t *testing.T) {
	t.Parallel()

	_, err := New(&Config[int]{Stages: fourStages()})
	require.ErrorIs(t, err, ErrNoObserver)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestEngineNameDefaultsWhenUnset(t *testing.T) {
	t.Parallel()

	engine, err := New(&Config[int]{
		Stages:   fourStages(),
		Observer: func(int, Stage) {},
		Logger:   NopLogger{},
	})
	require.NoError(t, err)

	assert.Equal(t, "cycle", engine.Name())
	assert.NotEmpty(t, engine.ID())
}

func TestEngineIdentityAndStageListCopy(t *testing.T) {
	t.Parallel()

	newEngine := func() *Engine[int] {
		engine, err := New(&Config[int]{
			Name:     "ticker",
			Stages:   fourStages(),
			Observer: func(int, Stage) {},
			Logger:   NopLogger{},
		})
		require.NoError(t, err)
		return engine
	}

	first := newEngine()
	second := newEngine()

	assert.Equal(t, "ticker", first.Name())
	assert.NotEqual(t, first.ID(), second.ID())

	stages := first.Stages()
	stages[0] = "Hacked"
	assert.Equal(t, Stage("Mapping"), first.Stages()[0])
}

func TestAdvanceWrapsAroundStages(t *testing.T) {
	t.Parallel()

	rec := &recorder[int]{}
	engine, err := New(&Config[int]{
		Stages:   fourStages(),
		Observer: rec.observe,
		Logger:   NopLogger{},
	})
	require.NoError(t, err)
	require.Equal(t, Stage("Mapping"), engine.CurrentStage())

	for i := 0; i < 4; i++ {
		require.NoError(t, engine.Advance(t.Context()))
	}

	assert.Equal(t, Stage("Mapping"), engine.CurrentStage())
	assert.Equal(t, 0, engine.CurrentStageIndex())
	assert.Equal(t, []Stage{"Iteration", "Checking", "Transformation", "Mapping"}, rec.stageLog())
}

func TestStageIndexStaysInRange(t *testing.T) {
	t.Parallel()

	engine, err := New(&Config[int]{
		Stages:   fourStages(),
		Observer: func(int, Stage) {},
		Logger:   NopLogger{},
	})
	require.NoError(t, err)

	for i := 0; i < 11; i++ {
		idx := engine.CurrentStageIndex()
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, len(fourStages()))
		require.NoError(t, engine.Advance(t.Context()))
	}
}

func TestAdvanceRunsHandlerAndReplacesState(t *testing.T) {
	t.Parallel()

	rec := &recorder[int]{}
	engine, err := New(&Config[int]{
		Stages:       fourStages(),
		InitialState: 41,
		Handlers: map[Stage]Handler[int]{
			"Mapping": func(_ context.Context, state int) (Outcome[int], error) {
				return Replace(state + 1), nil
			},
		},
		Observer: rec.observe,
		Logger:   NopLogger{},
	})
	require.NoError(t, err)

	require.NoError(t, engine.Advance(t.Context()))

	assert.Equal(t, 42, engine.CurrentState())
	prev, ok := engine.PreviousState().Get()
	require.True(t, ok)
	assert.Equal(t, 41, prev)
	assert.Equal(t, observed[int]{state: 42, stage: "Iteration"}, rec.last())
}

func TestAdvanceUnchangedOutcomeStillRecordsPreviousState(t *testing.T) {
	t.Parallel()

	engine, err := New(&Config[int]{
		Stages:       fourStages(),
		InitialState: 7,
		Handlers: map[Stage]Handler[int]{
			"Mapping": func(context.Context, int) (Outcome[int], error) {
				return Unchanged[int](), nil
			},
		},
		Observer: func(int, Stage) {},
		Logger:   NopLogger{},
	})
	require.NoError(t, err)

	require.NoError(t, engine.Advance(t.Context()))

	assert.Equal(t, 7, engine.CurrentState())
	prev, ok := engine.PreviousState().Get()
	require.True(t, ok)
	assert.Equal(t, 7, prev)
}

func TestSkippedStageRotatesWithoutTouchingState(t *testing.T) {
	t.Parallel()

	rec := &recorder[int]{}
	engine, err := New(&Config[int]{
		Stages:       fourStages(),
		InitialState: 7,
		Observer:     rec.observe,
		Logger:       NopLogger{},
	})
	require.NoError(t, err)

	require.NoError(t, engine.Advance(t.Context()))

	assert.Equal(t, 7, engine.CurrentState())
	assert.True(t, engine.PreviousState().Absent())
	assert.Equal(t, 1, engine.CurrentStageIndex())
	assert.Equal(t, observed[int]{state: 7, stage: "Iteration"}, rec.last())
}

func TestFailingHandlerParksTheCycle(t *testing.T) {
	t.Parallel()

	rec := &recorder[int]{}
	var failures int
	engine, err := New(&Config[int]{
		Stages: fourStages(),
		Handlers: map[Stage]Handler[int]{
			"Iteration": func(context.Context, int) (Outcome[int], error) {
				return Unchanged[int](), ErrTestHandlerFailed
			},
		},
		Observer: rec.observe,
		ErrorHandler: func(error, Stage, int) {
			failures++
		},
		Logger: NopLogger{},
	})
	require.NoError(t, err)

	require.NoError(t, engine.Advance(t.Context()))

	err = engine.Advance(t.Context())
	require.ErrorIs(t, err, ErrTestHandlerFailed)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, Stage("Iteration"), stageErr.Stage)

	assert.Equal(t, Stage("Iteration"), engine.CurrentStage())
	assert.Equal(t, 1, engine.CurrentStageIndex())
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 1, failures)

	// The parked stage is retried on the next advance.
	require.Error(t, engine.Advance(t.Context()))
	assert.Equal(t, Stage("Iteration"), engine.CurrentStage())
	assert.Equal(t, 2, failures)
}

func TestErrorHandlerReceivesRawHandlerError(t *testing.T) {
	t.Parallel()

	var (
		gotErr   error
		gotStage Stage
		gotState int
	)
	engine, err := New(&Config[int]{
		Stages:       fourStages(),
		InitialState: 9,
		Handlers: map[Stage]Handler[int]{
			"Mapping": func(context.Context, int) (Outcome[int], error) {
				return Unchanged[int](), ErrTestTemporary
			},
		},
		Observer: func(int, Stage) {},
		ErrorHandler: func(err error, stage Stage, state int) {
			gotErr = err
			gotStage = stage
			gotState = state
		},
		Logger: NopLogger{},
	})
	require.NoError(t, err)

	require.Error(t, engine.Advance(t.Context()))

	// The handler sees the raw error, not the stage wrapper.
	assert.Equal(t, ErrTestTemporary, gotErr)
	assert.Equal(t, Stage("Mapping"), gotStage)
	assert.Equal(t, 9, gotState)
}

func TestHandlerPanicIsContained(t *testing.T) {
	t.Parallel()

	rec := &recorder[int]{}
	engine, err := New(&Config[int]{
		Stages: fourStages(),
		Handlers: map[Stage]Handler[int]{
			"Mapping": func(context.Context, int) (Outcome[int], error) {
				panic("boom")
			},
		},
		Observer: rec.observe,
		Logger:   NopLogger{},
	})
	require.NoError(t, err)

	err = engine.Advance(t.Context())
	require.ErrorIs(t, err, ErrHandlerPanic)
	assert.Contains(t, err.Error(), "boom")

	assert.Equal(t, Stage("Mapping"), engine.CurrentStage())
	assert.Zero(t, rec.count())
}

func TestHandlerPanicWithErrorValueUnwraps(t *testing.T) {
	t.Parallel()

	engine, err := New(&Config[int]{
		Stages: fourStages(),
		Handlers: map[Stage]Handler[int]{
			"Mapping": func(context.Context, int) (Outcome[int], error) {
				panic(ErrTestTemporary)
			},
		},
		Observer: func(int, Stage) {},
		Logger:   NopLogger{},
	})
	require.NoError(t, err)

	err = engine.Advance(t.Context())
	require.ErrorIs(t, err, ErrHandlerPanic)
	assert.ErrorIs(t, err, ErrTestTemporary)
}

func TestObserverPanicPropagates(t *testing.T) {
	t.Parallel()

	engine, err := New(&Config[int]{
		Stages:   fourStages(),
		Observer: func(int, Stage) { panic("observer exploded") },
		Logger:   NopLogger{},
	})
	require.NoError(t, err)

	assert.PanicsWithValue(t, "observer exploded", func() {
		_ = engine.Advance(context.Background())
	})
}

func TestSetStateReplacesOnlyTheCurrentState(t *testing.T) {
	t.Parallel()

	rec := &recorder[int]{}
	engine, err := New(&Config[int]{
		Stages:       fourStages(),
		InitialState: 1,
		Handlers: map[Stage]Handler[int]{
			"Mapping": func(context.Context, int) (Outcome[int], error) {
				return Replace(2), nil
			},
		},
		Observer: rec.observe,
		Logger:   NopLogger{},
	})
	require.NoError(t, err)
	require.NoError(t, engine.Advance(t.Context()))
	require.Equal(t, 1, rec.count())

	engine.SetState(t.Context(), 99)

	assert.Equal(t, 99, engine.CurrentState())
	assert.Equal(t, 1, engine.CurrentStageIndex())
	prev, ok := engine.PreviousState().Get()
	require.True(t, ok)
	assert.Equal(t, 1, prev)

	// The observer sees the current stage, not the next one.
	assert.Equal(t, 2, rec.count())
	assert.Equal(t, observed[int]{state: 99, stage: "Iteration"}, rec.last())
}

func TestResetRestoresInitialConditions(t *testing.T) {
	t.Parallel()

	rec := &recorder[int]{}
	engine, err := New(&Config[int]{
		Stages:       fourStages(),
		InitialState: 10,
		Handlers: map[Stage]Handler[int]{
			"Mapping": func(_ context.Context, state int) (Outcome[int], error) {
				return Replace(state + 1), nil
			},
		},
		Observer:     rec.observe,
		HistoryLimit: 8,
		Logger:       NopLogger{},
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, engine.Advance(t.Context()))
	}
	require.Equal(t, 11, engine.CurrentState())
	require.NotEmpty(t, engine.History())

	engine.Reset(t.Context())

	assert.Equal(t, 0, engine.CurrentStageIndex())
	assert.Equal(t, Stage("Mapping"), engine.CurrentStage())
	assert.Equal(t, 10, engine.CurrentState())
	assert.True(t, engine.PreviousState().Absent())
	assert.Empty(t, engine.History())
	assert.Equal(t, observed[int]{state: 10, stage: "Mapping"}, rec.last())

	// Resetting an engine that is already at its start is harmless.
	engine.Reset(t.Context())
	assert.Equal(t, 0, engine.CurrentStageIndex())
	assert.Equal(t, 10, engine.CurrentState())
}

func TestCountIncrementsOncePerFullCycle(t *testing.T) {
	t.Parallel()

	engine, err := New(&Config[int]{
		Stages: fourStages(),
		Handlers: map[Stage]Handler[int]{
			"Transformation": func(_ context.Context, state int) (Outcome[int], error) {
				return Replace(state + 1), nil
			},
		},
		Observer: func(int, Stage) {},
		Logger:   NopLogger{},
	})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, engine.Advance(t.Context()))
	}

	assert.Equal(t, 5, engine.CurrentState())
}

func TestDuplicateStagesOccupySeparateSlots(t *testing.T) {
	t.Parallel()

	rec := &recorder[int]{}
	var runs int
	engine, err := New(&Config[int]{
		Stages: []Stage{"Pump", "Probe", "Pump"},
		Handlers: map[Stage]Handler[int]{
			"Pump": func(context.Context, int) (Outcome[int], error) {
				runs++
				return Unchanged[int](), nil
			},
		},
		Observer: rec.observe,
		Logger:   NopLogger{},
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, engine.Advance(t.Context()))
	}

	assert.Equal(t, 2, runs)
	assert.Equal(t, 0, engine.CurrentStageIndex())
	assert.Equal(t, []Stage{"Probe", "Pump", "Pump"}, rec.stageLog())
}

func TestHistoryKeepsMostRecentTransitions(t *testing.T) {
	t.Parallel()

	engine, err := New(&Config[int]{
		Stages: fourStages(),
		Handlers: map[Stage]Handler[int]{
			"Mapping": func(_ context.Context, state int) (Outcome[int], error) {
				return Replace(state + 1), nil
			},
		},
		Observer:     func(int, Stage) {},
		HistoryLimit: 3,
		Logger:       NopLogger{},
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, engine.Advance(t.Context()))
	}

	history := engine.History()
	require.Len(t, history, 3)

	assert.Equal(t, Stage("Checking"), history[0].From)
	assert.Equal(t, Stage("Transformation"), history[0].To)
	assert.False(t, history[0].StateChanged)
	assert.False(t, history[0].At.IsZero())

	assert.Equal(t, Stage("Mapping"), history[2].From)
	assert.Equal(t, Stage("Iteration"), history[2].To)
	assert.True(t, history[2].StateChanged)

	// Mutating the returned slice leaves the engine's record intact.
	history[0].From = "Forged"
	assert.Equal(t, Stage("Checking"), engine.History()[0].From)
}

func TestHistoryDisabledByDefault(t *testing.T) {
	t.Parallel()

	engine, err := New(&Config[int]{
		Stages:   fourStages(),
		Observer: func(int, Stage) {},
		Logger:   NopLogger{},
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, engine.Advance(t.Context()))
	}

	assert.Empty(t, engine.History())
}

func TestAdvanceHooksObserveBothPhases(t *testing.T) {
	t.Parallel()

	type hookCall struct {
		stage Stage
		phase string
		err   error
	}

	var calls []hookCall
	engine, err := New(&Config[int]{
		Stages: []Stage{"Mapping", "Iteration"},
		Handlers: map[Stage]Handler[int]{
			"Iteration": func(context.Context, int) (Outcome[int], error) {
				return Unchanged[int](), ErrTestHandlerFailed
			},
		},
		Observer: func(int, Stage) {},
		Logger:   NopLogger{},
	})
	require.NoError(t, err)

	engine.AddAdvanceHook(func(_ context.Context, stage Stage, phase string, err error) {
		calls = append(calls, hookCall{stage: stage, phase: phase, err: err})
	})

	require.NoError(t, engine.Advance(t.Context()))
	require.Error(t, engine.Advance(t.Context()))

	require.Len(t, calls, 4)
	assert.Equal(t, hookCall{stage: "Mapping", phase: HookPhaseStart}, calls[0])
	assert.Equal(t, hookCall{stage: "Mapping", phase: HookPhaseEnd}, calls[1])
	assert.Equal(t, hookCall{stage: "Iteration", phase: HookPhaseStart}, calls[2])
	assert.Equal(t, Stage("Iteration"), calls[3].stage)
	assert.Equal(t, HookPhaseEnd, calls[3].phase)
	assert.ErrorIs(t, calls[3].err, ErrTestHandlerFailed)
}

func TestConcurrentAdvancesStaySequential(t *testing.T) {
	t.Parallel()

	rec := &recorder[int]{}
	engine, err := New(&Config[int]{
		Stages: fourStages(),
		Handlers: map[Stage]Handler[int]{
			"Transformation": func(_ context.Context, state int) (Outcome[int], error) {
				return Replace(state + 1), nil
			},
		},
		Observer: rec.observe,
		Logger:   NopLogger{},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_ = engine.Advance(context.Background())
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, engine.CurrentStageIndex())
	assert.Equal(t, 25, engine.CurrentState())
	assert.Equal(t, 100, rec.count())
}
