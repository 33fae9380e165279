package dag

import (
	"context"

	"github.com/kbukum/taskflow/logger"
	"github.com/kbukum/taskflow/observability"
)

// Observer is notified around every task a worker runs. TaskStarted may
// return a derived context that is passed to the run and to TaskFinished.
type Observer interface {
	TaskStarted(ctx context.Context, t *Task) context.Context
	TaskFinished(ctx context.Context, t *Task, o Outcome)
}

// Observers fans notifications out to each non-nil observer in order.
func Observers(obs ...Observer) Observer {
	var list multiObserver
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) TaskStarted(ctx context.Context, t *Task) context.Context {
	for _, o := range m {
		ctx = o.TaskStarted(ctx, t)
	}
	return ctx
}

func (m multiObserver) TaskFinished(ctx context.Context, t *Task, out Outcome) {
	for i := len(m) - 1; i >= 0; i-- {
		m[i].TaskFinished(ctx, t, out)
	}
}

// WithTracing starts a span per task run, child of the run span.
func WithTracing() Observer {
	return tracingObserver{}
}

type tracingObserver struct{}

func (tracingObserver) TaskStarted(ctx context.Context, t *Task) context.Context {
	ctx, _ = observability.StartTaskSpan(ctx, t.Name(), t.Cmd())
	return ctx
}

func (tracingObserver) TaskFinished(ctx context.Context, _ *Task, o Outcome) {
	observability.EndTaskSpan(observability.SpanFromContext(ctx), string(o.Status), o.Err, o.Elapsed)
}

// WithMetrics records task counts, durations and active tasks.
func WithMetrics(metrics *observability.Metrics) Observer {
	if metrics == nil {
		return nil
	}
	return &metricsObserver{metrics: metrics}
}

type metricsObserver struct {
	metrics *observability.Metrics
}

func (m *metricsObserver) TaskStarted(ctx context.Context, _ *Task) context.Context {
	m.metrics.RecordTaskStart(ctx)
	return ctx
}

func (m *metricsObserver) TaskFinished(ctx context.Context, t *Task, o Outcome) {
	m.metrics.RecordTaskEnd(ctx, t.Name(), string(o.Status), o.Elapsed)
}

// WithLogging writes a debug line per finished task with its status and duration.
func WithLogging(log *logger.Logger) Observer {
	if log == nil {
		return nil
	}
	return &loggingObserver{log: log}
}

type loggingObserver struct {
	log *logger.Logger
}

func (l *loggingObserver) TaskStarted(ctx context.Context, _ *Task) context.Context {
	return ctx
}

func (l *loggingObserver) TaskFinished(ctx context.Context, t *Task, o Outcome) {
	fields := logger.MergeWithDuration(logger.TaskFields(t.Name(), logger.StatusDebug), o.Elapsed)
	fields["outcome"] = string(o.Status)
	if id := observability.RunIDFromContext(ctx); id != "" {
		fields[logger.FieldRunID] = id
	}
	if o.Err != nil {
		l.log.Debug("task finished with error", logger.MergeWithError(fields, o.Err))
		return
	}
	l.log.Debug("task finished", fields)
}
