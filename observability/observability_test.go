package observability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("taskflow")

	if cfg.ServiceName != "taskflow" {
		t.Errorf("expected ServiceName 'taskflow', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
	if !cfg.Insecure {
		t.Error("expected Insecure to be true")
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("taskflow")

	if cfg.ServiceName != "taskflow" {
		t.Errorf("expected ServiceName 'taskflow', got %s", cfg.ServiceName)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestNewMetricsNoop(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordTaskStart(ctx)
	metrics.RecordTaskEnd(ctx, "build", "executed", 100*time.Millisecond)
	metrics.RecordRun(ctx, false, 0, time.Second)
}

func TestMetricsRecorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	metrics.RecordTaskStart(ctx)
	metrics.RecordTaskEnd(ctx, "build", "executed", 20*time.Millisecond)
	metrics.RecordTaskStart(ctx)
	metrics.RecordTaskEnd(ctx, "plot", "failed", 10*time.Millisecond)
	metrics.RecordRun(ctx, false, 1, 50*time.Millisecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	got := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			got[m.Name] = m.Data
		}
	}

	total, ok := got["taskflow.task.total"].(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected taskflow.task.total sum, got %T", got["taskflow.task.total"])
	}
	if len(total.DataPoints) != 2 {
		t.Errorf("expected 2 data points (one per task/status), got %d", len(total.DataPoints))
	}

	active, ok := got["taskflow.task.active"].(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected taskflow.task.active sum, got %T", got["taskflow.task.active"])
	}
	if len(active.DataPoints) != 1 || active.DataPoints[0].Value != 0 {
		t.Errorf("expected active tasks back to 0, got %+v", active.DataPoints)
	}

	runs, ok := got["taskflow.run.total"].(metricdata.Sum[int64])
	if !ok || len(runs.DataPoints) != 1 || runs.DataPoints[0].Value != 1 {
		t.Errorf("expected one run recorded, got %+v", got["taskflow.run.total"])
	}
	if _, ok := got["taskflow.task.duration"].(metricdata.Histogram[float64]); !ok {
		t.Errorf("expected taskflow.task.duration histogram, got %T", got["taskflow.task.duration"])
	}
}

func TestRunIDFromContext(t *testing.T) {
	if id := RunIDFromContext(context.Background()); id != "" {
		t.Errorf("expected empty run id, got %q", id)
	}
	ctx := WithRunID(context.Background(), "run-1")
	if id := RunIDFromContext(ctx); id != "run-1" {
		t.Errorf("expected run-1, got %q", id)
	}
}

func TestTaskSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, run := StartSpan(WithRunID(context.Background(), "run-1"), SpanRun)
	_, ok := StartTaskSpan(ctx, "build", "./build.sh")
	EndTaskSpan(ok, "executed", nil, 5*time.Millisecond)
	_, bad := StartTaskSpan(ctx, "plot", "./plot.py")
	EndTaskSpan(bad, "failed", fmt.Errorf("failed with return code 1"), time.Millisecond)
	run.End()

	spans := exporter.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}

	attrs := func(s tracetest.SpanStub) map[attribute.Key]attribute.Value {
		m := map[attribute.Key]attribute.Value{}
		for _, kv := range s.Attributes {
			m[kv.Key] = kv.Value
		}
		return m
	}

	first := spans[0]
	if first.Name != SpanTask {
		t.Errorf("expected span %q, got %q", SpanTask, first.Name)
	}
	a := attrs(first)
	if a[AttrTaskName].AsString() != "build" {
		t.Errorf("expected task.name build, got %q", a[AttrTaskName].AsString())
	}
	if a[AttrRunID].AsString() != "run-1" {
		t.Errorf("expected run.id run-1, got %q", a[AttrRunID].AsString())
	}
	if a[AttrTaskStatus].AsString() != "executed" {
		t.Errorf("expected status executed, got %q", a[AttrTaskStatus].AsString())
	}
	if first.Parent.SpanID() != spans[2].SpanContext.SpanID() {
		t.Error("expected task span to be a child of the run span")
	}

	if spans[1].Status.Code != codes.Error {
		t.Errorf("expected error status on failed task, got %v", spans[1].Status.Code)
	}
	if len(spans[1].Events) == 0 {
		t.Error("expected recorded error event on failed task")
	}
}

func TestRunSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, span := StartRunSpan(context.Background(), "run-7", 4, 9)
	if RunIDFromContext(ctx) != "run-7" {
		t.Errorf("expected run id in context, got %q", RunIDFromContext(ctx))
	}
	EndRunSpan(span, true, 2)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes {
		got[kv.Key] = kv.Value
	}
	if got[AttrConcurrency].AsInt64() != 4 || got[AttrTaskCount].AsInt64() != 9 {
		t.Errorf("unexpected run attributes %v", spans[0].Attributes)
	}
	if !got[AttrRunCanceled].AsBool() || got[AttrRunFailed].AsInt64() != 2 {
		t.Errorf("unexpected outcome attributes %v", spans[0].Attributes)
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected error status on canceled run, got %v", spans[0].Status.Code)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tc := range tests {
		if got := sampler(tc.rate).Description(); !strings.Contains(got, tc.want) {
			t.Errorf("rate %v: expected sampler containing %q, got %q", tc.rate, tc.want, got)
		}
	}
}

func TestWriteRunSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textfile", "taskflow.prom")
	err := WriteRunSummary(path, RunSummary{
		RunID:         "run-1",
		Started:       time.Unix(1700000000, 0),
		Elapsed:       1500 * time.Millisecond,
		TotalTaskTime: 3 * time.Second,
		Outcomes:      map[string]int{"executed": 3, "failed": 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`taskflow_last_run_duration_seconds{run_id="run-1"} 1.5`,
		`taskflow_last_run_task_seconds{run_id="run-1"} 3`,
		`taskflow_last_run_canceled{run_id="run-1"} 0`,
		`taskflow_last_run_tasks{run_id="run-1",status="executed"} 3`,
		`taskflow_last_run_tasks{run_id="run-1",status="failed"} 1`,
		`taskflow_last_run_timestamp_seconds{run_id="run-1"} 1.7e+09`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected textfile to contain %q, got:\n%s", want, out)
		}
	}
}

func TestInitTracerSamplingRates(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
	}{
		{"always sample", 1.0},
		{"never sample", 0.0},
		{"ratio based", 0.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultTracerConfig("test")
			cfg.SampleRate = tc.sampleRate

			tp, err := InitTracer(context.Background(), &cfg)
			if err != nil {
				t.Skipf("InitTracer failed: %v", err)
			}
			defer tp.Shutdown(context.Background())
		})
	}
}
