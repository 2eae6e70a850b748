package cycle

import (
	"context"
	"log/slog"
	"time"
)

// Logger provides logging hooks for cycle execution.
type Logger interface {
	AdvanceStarted(ctx context.Context, stage Stage)
	AdvanceCompleted(ctx context.Context, from, to Stage, stateChanged bool, duration time.Duration)
	StageFailed(ctx context.Context, stage Stage, duration time.Duration, err error)
	StateInjected(ctx context.Context, stage Stage)
	CycleReset(ctx context.Context)
	SchedulerStarted(ctx context.Context, interval time.Duration)
	SchedulerStopped(ctx context.Context)
	SchedulerWarning(ctx context.Context, reason string)
}

// DefaultLogger implements Logger using slog.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a default logger backed by slog.Default.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{
		logger: slog.Default(),
	}
}

// NewDefaultLoggerWith creates a default logger backed by the given slog logger.
func NewDefaultLoggerWith(logger *slog.Logger) *DefaultLogger {
	return &DefaultLogger{
		logger: logger,
	}
}

func (l *DefaultLogger) AdvanceStarted(ctx context.Context, stage Stage) {
	l.logger.DebugContext(ctx, "Advance started",
		"stage", string(stage),
	)
}

func (l *DefaultLogger) AdvanceCompleted(
	ctx context.Context, from, to Stage, stateChanged bool, duration time.Duration,
) {
	l.logger.DebugContext(ctx, "Advance completed",
		"from", string(from),
		"to", string(to),
		"state_changed", stateChanged,
		"duration_ms", duration.Milliseconds(),
	)
}

func (l *DefaultLogger) StageFailed(ctx context.Context, stage Stage, duration time.Duration, err error) {
	l.logger.ErrorContext(ctx, "Stage handler failed",
		"stage", string(stage),
		"duration_ms", duration.Milliseconds(),
		"error", err,
	)
}

func (l *DefaultLogger) StateInjected(ctx context.Context, stage Stage) {
	l.logger.InfoContext(ctx, "State injected",
		"stage", string(stage),
	)
}

func (l *DefaultLogger) CycleReset(ctx context.Context) {
	l.logger.InfoContext(ctx, "Cycle reset")
}

func (l *DefaultLogger) SchedulerStarted(ctx context.Context, interval time.Duration) {
	l.logger.InfoContext(ctx, "Cycling started",
		"interval_ms", interval.Milliseconds(),
	)
}

func (l *DefaultLogger) SchedulerStopped(ctx context.Context) {
	l.logger.InfoContext(ctx, "Cycling stopped")
}

func (l *DefaultLogger) SchedulerWarning(ctx context.Context, reason string) {
	l.logger.WarnContext(ctx, "Scheduler warning",
		"reason", reason,
	)
}

// NopLogger discards all log events. Useful in tests that assert on engine
// behavior alone.
type NopLogger struct{}

func (NopLogger) AdvanceStarted(context.Context, Stage) {}

func (NopLogger) AdvanceCompleted(context.Context, Stage, Stage, bool, time.Duration) {}

func (NopLogger) StageFailed(context.Context, Stage, time.Duration, error) {}

func (NopLogger) StateInjected(context.Context, Stage) {}

func (NopLogger) CycleReset(context.Context) {}

func (NopLogger) SchedulerStarted(context.Context, time.Duration) {}

func (NopLogger) SchedulerStopped(context.Context) {}

func (NopLogger) SchedulerWarning(context.Context, string) {}
