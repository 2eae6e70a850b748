package cycle

import (
	"errors"
	"fmt"
)

// Predefined error types.
var (
	// ErrMissingConfig indicates that no configuration was provided.
	ErrMissingConfig = errors.New("missing configuration")
	// ErrNoStages indicates a missing or empty stage list.
	ErrNoStages = errors.New("missing or empty stage list")
	// ErrNoObserver indicates that an observer callback is required.
	ErrNoObserver = errors.New("missing observer callback")
	// ErrUnknownStage indicates a handler keyed by a stage that is not in the stage list.
	ErrUnknownStage = errors.New("unknown stage name")
	// ErrNilHandler indicates a stage handler that is not callable.
	ErrNilHandler = errors.New("stage handler is not callable")
	// ErrNegativeInterval indicates a negative tick interval.
	ErrNegativeInterval = errors.New("interval must not be negative")
	// ErrNegativeHistoryLimit indicates a negative history limit.
	ErrNegativeHistoryLimit = errors.New("history limit must not be negative")
	// ErrDefinitionNameRequired indicates that a definition name is required.
	ErrDefinitionNameRequired = errors.New("definition name is required")
	// ErrBadInterval indicates an interval string that does not parse as a duration.
	ErrBadInterval = errors.New("invalid interval")
	// ErrHandlerPanic indicates that a stage handler panicked during an advance.
	ErrHandlerPanic = errors.New("stage handler panicked")

	// ErrTestHandlerFailed is used in test files to indicate that a handler failed.
	ErrTestHandlerFailed = errors.New("handler failed")
	// ErrTestTemporary is used in test files to indicate a temporary error.
	ErrTestTemporary = errors.New("temporary error")
)

// StageError wraps an error with stage context.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// WrapStageError wraps an error with stage context.
func WrapStageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}

	return &StageError{
		Stage: stage,
		Err:   err,
	}
}

// panicErr wraps a recovered panic value into an error, preserving the
// original error if possible.
func panicErr(stage Stage, value any) error {
	if err, ok := value.(error); ok {
		return fmt.Errorf("%w in stage %s: %w", ErrHandlerPanic, stage, err)
	}

	return fmt.Errorf("%w in stage %s: %v", ErrHandlerPanic, stage, value)
}
