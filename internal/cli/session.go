package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/taskflow/config"
	"github.com/kbukum/taskflow/dag"
	"github.com/kbukum/taskflow/errors"
	"github.com/kbukum/taskflow/logger"
	"github.com/kbukum/taskflow/observability"
	"github.com/kbukum/taskflow/version"
)

// session owns the logger and telemetry providers of a single command.
type session struct {
	cfg      *config.Config
	log      *logger.Logger
	out      io.Writer
	showPlan bool
	metrics  *observability.Metrics
	closers  []func(context.Context) error
}

func newSession(ctx context.Context, cfg *config.Config, out, errOut io.Writer) (*session, error) {
	logOut := out
	if cfg.Logging.Output == "stderr" {
		logOut = errOut
	}
	log := logger.NewWithWriter(&cfg.Logging, config.AppName, logOut)
	logger.SetGlobalLogger(log)

	s := &session{cfg: cfg, log: log, out: out}
	info := version.Get()
	log.Debug("starting", info.Fields())

	obs := cfg.Observability
	if obs.Tracing {
		tc := observability.DefaultTracerConfig(config.AppName)
		tc.ServiceVersion = info.Short()
		tc.Endpoint = obs.Endpoint
		tc.Insecure = obs.Insecure
		tc.SampleRate = obs.SampleRate
		tp, err := observability.InitTracer(ctx, &tc)
		if err != nil {
			return nil, errors.Configuration("initializing tracing").WithCause(err)
		}
		s.closers = append(s.closers, tp.Shutdown)
	}
	if obs.Metrics {
		mc := observability.DefaultMeterConfig(config.AppName)
		mc.ServiceVersion = info.Short()
		mc.Endpoint = obs.Endpoint
		mc.Insecure = obs.Insecure
		mc.Interval = obs.ExportInterval
		mp, err := observability.InitMeter(ctx, &mc)
		if err != nil {
			s.close(ctx)
			return nil, errors.Configuration("initializing metrics").WithCause(err)
		}
		s.closers = append(s.closers, mp.Shutdown)
		m, err := observability.NewMetrics(observability.Meter(config.AppName))
		if err != nil {
			s.close(ctx)
			return nil, errors.Internal(err)
		}
		s.metrics = m
	}
	return s, nil
}

// close flushes the telemetry providers in reverse order of creation.
func (s *session) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			s.log.Warn("telemetry shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}
	s.closers = nil
}

// buildOptions maps the configuration onto graph file build options.
func (s *session) buildOptions() dag.BuildOptions {
	return dag.BuildOptions{
		DryRun:     s.cfg.DryRun,
		ShowCmds:   s.cfg.ShowCmds,
		ShowOutput: s.cfg.ShowCmdsOutput,
		Silence:    s.cfg.Silence,
	}
}

// execute runs the graph and reports the outcome. Any failed task makes the
// command fail once the whole graph has been attempted.
func (s *session) execute(ctx context.Context, o *dag.Orchestrator) error {
	if s.cfg.CheckCycles {
		if _, err := o.Levels(); err != nil {
			return err
		}
	}
	if s.showPlan {
		s.renderPlan(ctx, o)
	}

	report := o.Run(ctx, dag.RunOptions{
		TaskOptions: dag.TaskOptions{
			Force:        s.cfg.Force,
			StrictInputs: s.cfg.StrictInputs,
			FailureLog:   dag.NewFailureLog(s.cfg.FailureLogDir, time.Now()),
			Logger:       s.log,
			Output:       s.out,
			GracePeriod:  s.cfg.GracePeriod,
		},
		Concurrency: s.cfg.Concurrency,
		Observer:    dag.Observers(dag.WithMetrics(s.metrics), dag.WithLogging(s.log)),
	})

	failed := report.Failed()
	if s.metrics != nil {
		s.metrics.RecordRun(ctx, report.Canceled, len(failed), report.Elapsed)
	}
	if path := s.cfg.Observability.TextfilePath; path != "" {
		if err := observability.WriteRunSummary(path, summarize(report)); err != nil {
			s.log.Warn("could not write run summary", logger.Fields(logger.FieldPath, path, logger.FieldError, err.Error()))
		}
	}

	switch {
	case report.Canceled:
		return errors.Canceled(context.Canceled)
	case len(failed) > 0:
		return errors.New(errors.ErrCodeProcessFailed,
			fmt.Sprintf("%d task(s) failed: %s", len(failed), strings.Join(failed, ", ")))
	}
	return nil
}

func (s *session) renderPlan(ctx context.Context, o *dag.Orchestrator) {
	pdf, err := o.RenderDOT(ctx, dag.DefaultDOTPath(time.Now()), nil)
	if err != nil {
		s.log.Warn("could not render execution plan", logger.ErrorFields("render_plan", err))
		return
	}
	s.log.Info("execution plan written to "+pdf, logger.Fields(logger.FieldPath, pdf))
}

func summarize(r *dag.Report) observability.RunSummary {
	outcomes := make(map[string]int)
	for status, n := range r.Counts() {
		outcomes[string(status)] = n
	}
	return observability.RunSummary{
		RunID:         r.RunID,
		Started:       r.Started,
		Elapsed:       r.Elapsed,
		TotalTaskTime: r.TotalTaskTime,
		Canceled:      r.Canceled,
		Outcomes:      outcomes,
	}
}
