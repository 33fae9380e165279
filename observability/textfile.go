package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunSummary is the batch-job view of a finished run, suitable for the
// node_exporter textfile collector.
type RunSummary struct {
	RunID         string
	Started       time.Time
	Elapsed       time.Duration
	TotalTaskTime time.Duration
	Canceled      bool
	// Outcomes counts tasks per outcome status.
	Outcomes map[string]int
}

// WriteRunSummary writes the summary in Prometheus text format to path.
// The file is written atomically so a collector never reads a partial file.
func WriteRunSummary(path string, s RunSummary) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating textfile dir: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"run_id": s.RunID}

	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "taskflow_last_run_timestamp_seconds",
		Help:        "Start time of the last run.",
		ConstLabels: labels,
	})
	elapsed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "taskflow_last_run_duration_seconds",
		Help:        "Wall-clock duration of the last run.",
		ConstLabels: labels,
	})
	taskTime := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "taskflow_last_run_task_seconds",
		Help:        "Sum of task durations in the last run.",
		ConstLabels: labels,
	})
	canceled := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "taskflow_last_run_canceled",
		Help:        "1 if the last run was interrupted.",
		ConstLabels: labels,
	})
	outcomes := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "taskflow_last_run_tasks",
		Help:        "Tasks in the last run by outcome status.",
		ConstLabels: labels,
	}, []string{"status"})

	for _, c := range []prometheus.Collector{lastRun, elapsed, taskTime, canceled, outcomes} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("registering run summary metric: %w", err)
		}
	}

	lastRun.Set(float64(s.Started.Unix()))
	elapsed.Set(s.Elapsed.Seconds())
	taskTime.Set(s.TotalTaskTime.Seconds())
	if s.Canceled {
		canceled.Set(1)
	}
	statuses := make([]string, 0, len(s.Outcomes))
	for status := range s.Outcomes {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		outcomes.WithLabelValues(status).Set(float64(s.Outcomes[status]))
	}

	return prometheus.WriteToTextfile(path, reg)
}
