package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type runIDKey struct{}

// WithRunID stores the run identifier in the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run identifier, or "" if none is set.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}

// StartRunSpan starts the root span of an orchestrator run.
func StartRunSpan(ctx context.Context, runID string, concurrency, tasks int) (context.Context, trace.Span) {
	ctx, span := StartSpan(WithRunID(ctx, runID), SpanRun)
	span.SetAttributes(
		attribute.String(AttrRunID, runID),
		attribute.Int(AttrConcurrency, concurrency),
		attribute.Int(AttrTaskCount, tasks),
	)
	return ctx, span
}

// EndRunSpan records how the run ended. A canceled run gets an error status;
// failed tasks alone do not.
func EndRunSpan(span trace.Span, canceled bool, failed int) {
	span.SetAttributes(
		attribute.Bool(AttrRunCanceled, canceled),
		attribute.Int(AttrRunFailed, failed),
	)
	if canceled {
		span.SetStatus(codes.Error, "run interrupted")
	}
	span.End()
}

// StartTaskSpan starts a child span for one task run.
func StartTaskSpan(ctx context.Context, task, cmd string) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, SpanTask)
	span.SetAttributes(
		attribute.String(AttrTaskName, task),
		attribute.String(AttrTaskCmd, cmd),
	)
	if id := RunIDFromContext(ctx); id != "" {
		span.SetAttributes(attribute.String(AttrRunID, id))
	}
	return ctx, span
}

// EndTaskSpan annotates the span with the task outcome and ends it.
func EndTaskSpan(span trace.Span, status string, err error, duration time.Duration) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	span.SetAttributes(
		attribute.String(AttrTaskStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()
}
