// Package observability wires OpenTelemetry tracing and metrics into
// orchestrator runs and exports batch run summaries for Prometheus.
//
// Tracing:
//
//	cfg := observability.DefaultTracerConfig("taskflow")
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
//	ctx, run := observability.StartRunSpan(ctx, runID, 8, len(tasks))
//	ctx, span := observability.StartTaskSpan(ctx, "build", "./build.sh")
//	observability.EndTaskSpan(span, "executed", nil, elapsed)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("taskflow"))
//	metrics.RecordTaskEnd(ctx, "build", "executed", elapsed)
//
// Batch jobs have no scrape endpoint, so the run summary goes to a file read
// by the node_exporter textfile collector:
//
//	observability.WriteRunSummary("/var/lib/node_exporter/taskflow.prom", summary)
package observability
