package cycle

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// startAdvanceSpan creates the root span for a single advance.
// Uses the global tracer initialized by github.com/loopworks/mobius/telemetry.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller (factory pattern)
func startAdvanceSpan(ctx context.Context, cycleName, engineID string, stage Stage) (context.Context, trace.Span) {
	tracer := otel.Tracer("cycle")
	ctx, span := tracer.Start(ctx, "cycle.advance")
	span.SetAttributes(
		attribute.String("cycle", cycleName),
		attribute.String("engine_id", engineID),
		attribute.String("stage", string(stage)),
	)

	return ctx, span
}

// startStageSpan creates the child span for stage handler execution.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller (factory pattern)
func startStageSpan(ctx context.Context, cycleName, engineID string, stage Stage) (context.Context, trace.Span) {
	tracer := otel.Tracer("cycle")
	spanName := "stage." + string(stage)
	ctx, span := tracer.Start(ctx, spanName)
	span.SetAttributes(
		attribute.String("cycle", cycleName),
		attribute.String("engine_id", engineID),
		attribute.String("stage", string(stage)),
	)

	return ctx, span
}
