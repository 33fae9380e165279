package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/taskflow/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP collector host:port.
	Endpoint string
	Insecure bool
	// Interval is the metric export interval. A final export happens on shutdown.
	Interval time.Duration
}

// DefaultMeterConfig returns a config pointing at a local collector.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "local",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Debug("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by the orchestrator.
type Metrics struct {
	taskTotal    metric.Int64Counter
	taskDuration metric.Float64Histogram
	taskActive   metric.Int64UpDownCounter
	runTotal     metric.Int64Counter
	runDuration  metric.Float64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	taskTotal, err := meter.Int64Counter("taskflow.task.total",
		metric.WithDescription("Task runs by outcome status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating taskflow.task.total counter: %w", err)
	}

	taskDuration, err := meter.Float64Histogram("taskflow.task.duration",
		metric.WithDescription("Wall-clock duration of task runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating taskflow.task.duration histogram: %w", err)
	}

	taskActive, err := meter.Int64UpDownCounter("taskflow.task.active",
		metric.WithDescription("Tasks currently held by a worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating taskflow.task.active gauge: %w", err)
	}

	runTotal, err := meter.Int64Counter("taskflow.run.total",
		metric.WithDescription("Completed orchestrator runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating taskflow.run.total counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("taskflow.run.duration",
		metric.WithDescription("Wall-clock duration of orchestrator runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating taskflow.run.duration histogram: %w", err)
	}

	return &Metrics{
		taskTotal:    taskTotal,
		taskDuration: taskDuration,
		taskActive:   taskActive,
		runTotal:     runTotal,
		runDuration:  runDuration,
	}, nil
}

// RecordTaskStart increments the active task count.
func (m *Metrics) RecordTaskStart(ctx context.Context) {
	m.taskActive.Add(ctx, 1)
}

// RecordTaskEnd decrements active tasks and records the finished run.
func (m *Metrics) RecordTaskEnd(ctx context.Context, task, status string, duration time.Duration) {
	m.taskActive.Add(ctx, -1)
	m.taskTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("task", task),
		attribute.String("status", status),
	))
	m.taskDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("status", status),
	))
}

// RecordRun records a finished orchestrator run.
func (m *Metrics) RecordRun(ctx context.Context, canceled bool, failed int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.Bool("canceled", canceled),
		attribute.Bool("failures", failed > 0),
	)
	m.runTotal.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, duration.Seconds(), attrs)
}
