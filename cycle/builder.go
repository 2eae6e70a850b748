package cycle

import (
	"slices"
	"time"
)

// Builder provides a fluent API for constructing cycle engines.
type Builder[S any] struct {
	config Config[S]
	err    error
}

// NewBuilder creates a new cycle builder.
func NewBuilder[S any](name string) *Builder[S] {
	return &Builder[S]{
		config: Config[S]{
			Name:     name,
			Handlers: make(map[Stage]Handler[S]),
		},
	}
}

// FromDefinition seeds a builder from a declarative definition. Handlers,
// observer, and initial state still come from code. A nil or invalid
// definition surfaces as an error from Build.
func FromDefinition[S any](def *Definition) *Builder[S] {
	builder := NewBuilder[S]("")

	if def == nil {
		builder.err = ErrMissingConfig

		return builder
	}

	err := def.Validate()
	if err != nil {
		builder.err = err

		return builder
	}

	// Validate parses the interval, so this cannot fail here.
	interval, _ := def.TickInterval()

	builder.config.Name = def.Name
	builder.config.Stages = slices.Clone(def.Stages)
	builder.config.Interval = interval
	builder.config.HistoryLimit = def.HistoryLimit

	return builder
}

// WithStages sets the ordered stage sequence.
func (b *Builder[S]) WithStages(stages ...Stage) *Builder[S] {
	b.config.Stages = stages

	return b
}

// WithInitialState sets the initial state.
func (b *Builder[S]) WithInitialState(state S) *Builder[S] {
	b.config.InitialState = state

	return b
}

// WithObserver sets the observer callback.
func (b *Builder[S]) WithObserver(observer Observer[S]) *Builder[S] {
	b.config.Observer = observer

	return b
}

// OnStage binds a handler to a stage.
func (b *Builder[S]) OnStage(stage Stage, handler Handler[S]) *Builder[S] {
	b.config.Handlers[stage] = handler

	return b
}

// WithErrorHandler sets the error handler for contained stage failures.
func (b *Builder[S]) WithErrorHandler(handler ErrorHandler[S]) *Builder[S] {
	b.config.ErrorHandler = handler

	return b
}

// WithInterval sets the default tick interval for StartCycle.
func (b *Builder[S]) WithInterval(interval time.Duration) *Builder[S] {
	b.config.Interval = interval

	return b
}

// WithHistoryLimit bounds the transition history.
func (b *Builder[S]) WithHistoryLimit(limit int) *Builder[S] {
	b.config.HistoryLimit = limit

	return b
}

// WithLogger overrides the default logger.
func (b *Builder[S]) WithLogger(logger Logger) *Builder[S] {
	b.config.Logger = logger

	return b
}

// Build constructs the engine.
func (b *Builder[S]) Build() (*Engine[S], error) {
	if b.err != nil {
		return nil, b.err
	}

	return New(&b.config)
}
