package cycletest

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/loopworks/mobius/cycle"
)

// Fixture errors.
var (
	// ErrFixtureFailure is returned by the failing stage of FailingConfig.
	ErrFixtureFailure = errors.New("fixture stage failure")
)

// FourStages returns the canonical four-stage ring used by the fixtures.
func FourStages() []cycle.Stage {
	return []cycle.Stage{"Mapping", "Iteration", "Checking", "Transformation"}
}

// CounterConfig returns a config over the canonical ring whose last stage
// increments the state, so the count equals the number of completed cycles.
func CounterConfig(name string) *cycle.Config[int] {
	return &cycle.Config[int]{
		Name:   name,
		Stages: FourStages(),
		Handlers: map[cycle.Stage]cycle.Handler[int]{
			"Transformation": func(_ context.Context, state int) (cycle.Outcome[int], error) {
				return cycle.Replace(state + 1), nil
			},
		},
		Observer: func(int, cycle.Stage) {},
		Logger:   cycle.NopLogger{},
	}
}

// FailingConfig returns a config over the canonical ring where the given
// stage always fails with ErrFixtureFailure. The stage must be one of the
// four ring stages.
func FailingConfig(name string, failing cycle.Stage) *cycle.Config[int] {
	return &cycle.Config[int]{
		Name:   name,
		Stages: FourStages(),
		Handlers: map[cycle.Stage]cycle.Handler[int]{
			failing: func(context.Context, int) (cycle.Outcome[int], error) {
				return cycle.Unchanged[int](), ErrFixtureFailure
			},
		},
		Observer: func(int, cycle.Stage) {},
		Logger:   cycle.NopLogger{},
	}
}

// Recorder collects observer notifications for inspection. Safe for
// concurrent use, so it also fits scheduled engines.
type Recorder[S any] struct {
	mu            sync.Mutex
	notifications []Notification[S]
}

// Notification is a single observer callback.
type Notification[S any] struct {
	State S
	Stage cycle.Stage
}

// Observe appends a notification. Pass it as the engine's observer.
func (r *Recorder[S]) Observe(state S, stage cycle.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifications = append(r.notifications, Notification[S]{
		State: state,
		Stage: stage,
	})
}

// Count returns the number of notifications received.
func (r *Recorder[S]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.notifications)
}

// Last returns the most recent notification, if any.
func (r *Recorder[S]) Last() (Notification[S], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.notifications) == 0 {
		return Notification[S]{}, false
	}

	return r.notifications[len(r.notifications)-1], true
}

// Notifications returns a copy of all notifications received so far.
func (r *Recorder[S]) Notifications() []Notification[S] {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.notifications)
}
