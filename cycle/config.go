package cycle

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"facette.io/natsort"
)

// Config describes a cycle: its stage sequence, the work bound to each
// stage, and the callbacks the engine reports through.
type Config[S any] struct {
	// Name identifies the cycle in logs, metrics, and spans. Defaults to
	// "cycle" when empty.
	Name string

	// Stages is the ordered, wrapping stage sequence. Duplicate names are
	// permitted; each occurrence is its own slot.
	Stages []Stage

	// InitialState seeds the engine state and is restored by Reset.
	InitialState S

	// Handlers binds work to stage names. Stages without a handler rotate
	// without touching the state.
	Handlers map[Stage]Handler[S]

	// Observer is required. It is invoked after every successful advance,
	// state injection, and reset.
	Observer Observer[S]

	// ErrorHandler, when set, receives contained stage failures instead of
	// the default error log.
	ErrorHandler ErrorHandler[S]

	// Interval is the default tick interval used by StartCycle when the
	// caller does not supply one. Zero means no default.
	Interval time.Duration

	// HistoryLimit bounds the transition history to the most recent
	// HistoryLimit entries. Zero disables history recording.
	HistoryLimit int

	// Logger overrides the slog-backed default.
	Logger Logger
}

// Validate checks if the configuration is valid.
// It reports the first violation found, in a deterministic order.
func (c *Config[S]) Validate() error {
	if len(c.Stages) == 0 {
		return ErrNoStages
	}

	if c.Observer == nil {
		return ErrNoObserver
	}

	// Map iteration order is random; sort the handler keys so the first
	// violation reported is stable across runs.
	names := make([]string, 0, len(c.Handlers))
	for stage := range c.Handlers {
		names = append(names, string(stage))
	}

	natsort.Sort(names)

	for _, name := range names {
		stage := Stage(name)

		if !slices.Contains(c.Stages, stage) {
			return fmt.Errorf("%w: %q (valid stages: %s)", ErrUnknownStage, name, stageList(c.Stages))
		}

		if c.Handlers[stage] == nil {
			return fmt.Errorf("stage %q: %w", name, ErrNilHandler)
		}
	}

	if c.Interval < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeInterval, c.Interval)
	}

	if c.HistoryLimit < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeHistoryLimit, c.HistoryLimit)
	}

	return nil
}

// stageList renders the stage sequence for error messages.
func stageList(stages []Stage) string {
	names := make([]string, len(stages))
	for i, stage := range stages {
		names[i] = string(stage)
	}

	return strings.Join(names, ", ")
}
