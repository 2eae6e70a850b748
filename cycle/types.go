// Package cycle provides a cyclical state machine engine: a fixed, ordered
// sequence of stages that advances one stage at a time and wraps from the
// last stage back to the first.
package cycle

import (
	"context"
	"time"
)

// Hook phase constants.
const (
	// HookPhaseStart marks a hook call made before the stage handler runs.
	HookPhaseStart = "start"
	// HookPhaseEnd marks a hook call made after the stage handler returns.
	HookPhaseEnd = "end"
)

// Stage names one slot in the cycle's stage sequence.
type Stage string

// Handler runs the work bound to a stage. It receives the current state and
// reports what should happen to it: Replace(next) swaps the state in,
// Unchanged leaves it as is. Returning an error parks the cycle on the
// current stage.
type Handler[S any] func(ctx context.Context, state S) (Outcome[S], error)

// Observer is notified after every successful advance, state injection, and
// reset. It receives the latest state and the stage the cycle now rests on.
//
// Observers run outside the engine's internal lock and may call back into
// Advance, SetState, and the read accessors. Scheduler lifecycle methods
// (StartCycle, StopCycle, Reset, Close) must not be called from inside an
// observer: they wait for the loop goroutine, which may be the one running
// the observer. Cancel the StartCycle context to stop cycling from a
// callback. The engine does not recover observer panics.
type Observer[S any] func(state S, stage Stage)

// ErrorHandler receives contained stage failures: the handler's error, the
// stage that failed, and the state at failure time.
type ErrorHandler[S any] func(err error, stage Stage, state S)

// AdvanceHook is called around each advance, with phase HookPhaseStart
// before the stage handler runs and HookPhaseEnd after it returns. The end
// phase carries the handler error, if any.
type AdvanceHook func(ctx context.Context, stage Stage, phase string, err error)

// Transition records one completed advance.
type Transition struct {
	From         Stage
	To           Stage
	At           time.Time
	StateChanged bool
}
