package dag

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/taskflow/errors"
	"github.com/kbukum/taskflow/logger"
	"github.com/kbukum/taskflow/process"
)

// TaskOptions carries the run-wide settings a task executes with.
type TaskOptions struct {
	// Force disables the skip-if-already-produced check for every task.
	Force bool
	// StrictInputs turns a missing consumed file into a failure instead of a
	// successful no-op.
	StrictInputs bool
	// Runner spawns commands. Defaults to a process.Adapter that interrupts
	// the process group on cancellation.
	Runner process.Runner
	// FailureLog receives failed commands. Nil disables the log.
	FailureLog *FailureLog
	// Logger receives task log lines. Defaults to a no-op logger.
	Logger *logger.Logger
	// Output receives echoed commands and captured output. Defaults to stdout.
	Output io.Writer
	// GracePeriod is the delay between interrupt and kill on cancellation.
	GracePeriod time.Duration
}

func (o TaskOptions) withDefaults() TaskOptions {
	if o.Logger == nil {
		o.Logger = logger.NewNop()
	}
	if o.Output == nil {
		o.Output = os.Stdout
	}
	if o.Runner == nil {
		o.Runner = process.NewAdapter(process.Config{
			GracePeriod:  o.GracePeriod,
			CancelSignal: syscall.SIGINT,
		})
	}
	return o
}

// Run executes the task once. The first applicable step wins: already done,
// dry run, missing input, already produced, spawn. Only a spawned command is
// checked against its produced files afterwards. done is set on success only.
func (t *Task) Run(ctx context.Context, opts TaskOptions) Outcome {
	opts = opts.withDefaults()
	log := opts.Logger

	if t.Done() {
		t.log(log, logger.StatusSkip, "already executed, skipping")
		return Outcome{Status: StatusAlreadyDone}
	}

	t.startTime = time.Now()
	status, err := t.execute(ctx, opts)
	t.endTime = time.Now()
	t.elapsed = t.endTime.Sub(t.startTime)

	if err == nil && status == StatusExecuted {
		if miss := missing(t.produced); len(miss) > 0 {
			t.log(log, logger.StatusError, "some produced files are missing: "+strings.Join(miss, ", "))
			status, err = StatusFailed, errors.MissingOutputs(miss)
		}
	}
	if err != nil {
		return Outcome{Status: status, Err: err, Elapsed: t.elapsed}
	}

	t.done.Store(true)
	t.logDuration(log, t.elapsed)
	return Outcome{Status: status, Elapsed: t.elapsed}
}

func (t *Task) execute(ctx context.Context, opts TaskOptions) (Status, error) {
	log := opts.Logger

	if t.showCmd && !t.silence {
		fmt.Fprintln(opts.Output, t.cmdLine())
	}

	if t.skipExecution {
		t.log(log, logger.StatusSkip, "skipping execution")
		return StatusSkippedExecution, nil
	}

	if miss := missing(t.consumed); len(miss) > 0 {
		for _, p := range miss {
			t.log(log, logger.StatusError, fmt.Sprintf("consumed file '%s' does not exist, skipping execution", p))
		}
		if opts.StrictInputs {
			return StatusFailed, errors.MissingInputs(miss)
		}
		return StatusMissingInput, nil
	}

	if t.alreadyProduced() && !t.ignoreSkipIfAlreadyProduced && !opts.Force {
		t.log(log, logger.StatusSkip, "skipping, already produced")
		return StatusAlreadyProduced, nil
	}

	if err := ctx.Err(); err != nil {
		t.log(log, logger.StatusAborted, "task was cancelled")
		return StatusCanceled, errors.Canceled(err)
	}

	t.log(log, logger.StatusSpawn, "spawning")

	cmd := process.Parse(t.cmd, t.env, t.cwd)
	cmd.MergeOutput = true
	cmd.CancelSignal = syscall.SIGINT
	cmd.GracePeriod = opts.GracePeriod

	result, err := opts.Runner.Run(ctx, cmd)
	if result == nil {
		if ctx.Err() != nil {
			t.log(log, logger.StatusAborted, "task was cancelled")
			return StatusCanceled, errors.Canceled(ctx.Err())
		}
		if err == nil {
			err = fmt.Errorf("no result")
		}
		t.log(log, logger.StatusError, "error while executing command: "+err.Error())
		return StatusFailed, errors.SpawnFailed(t.cmd, err)
	}

	failed := StatusFailed
	if ctx.Err() != nil {
		failed = StatusCanceled
	}

	output := string(bytes.TrimSpace(result.Stdout))
	switch {
	case result.ExitCode < 0:
		t.log(log, logger.StatusAborted, fmt.Sprintf("terminated by signal %d", -result.ExitCode))
		if result.Signal != syscall.SIGINT {
			t.appendFailure(log, opts.FailureLog, result.ExitCode)
		}
		return failed, errors.ProcessSignaled(t.cmd, -result.ExitCode)
	case result.ExitCode != 0:
		t.log(log, logger.StatusError, fmt.Sprintf("failed with return code %d", result.ExitCode))
		t.log(log, logger.StatusError, "command:")
		fmt.Fprintln(opts.Output, t.cmd)
		t.log(log, logger.StatusError, "output:")
		fmt.Fprintln(opts.Output, output)
		t.appendFailure(log, opts.FailureLog, result.ExitCode)
		return failed, errors.ProcessFailed(t.cmd, result.ExitCode)
	case err != nil:
		// Runner reported an error for a clean exit; treat it like a spawn error.
		t.log(log, logger.StatusError, "error while executing command: "+err.Error())
		return failed, errors.SpawnFailed(t.cmd, err)
	}

	if t.showOutput && !t.silence {
		fmt.Fprintln(opts.Output, output)
	}
	return StatusExecuted, nil
}

func (t *Task) alreadyProduced() bool {
	return len(t.produced) > 0 && len(missing(t.produced)) == 0
}

func (t *Task) appendFailure(log *logger.Logger, fl *FailureLog, retcode int) {
	if err := fl.Append(retcode, t.cmd); err != nil {
		log.Warn("failed to write failure log", logger.MergeWithError(logger.Fields(logger.FieldTask, t.name, logger.FieldPath, fl.Path()), err))
	}
}

// cmdLine renders "[name] K=V ... cmd".
func (t *Task) cmdLine() string {
	parts := []string{"[" + t.name + "]"}
	if env := t.envLine(); env != "" {
		parts = append(parts, env)
	}
	return strings.Join(append(parts, t.cmd), " ")
}

// log writes a task line. Silenced tasks keep only error lines.
func (t *Task) log(l *logger.Logger, status logger.Status, msg string) {
	if t.silence && status != logger.StatusError {
		return
	}
	fields := logger.TaskFields(t.name, status)
	switch status {
	case logger.StatusError:
		l.Error(msg, fields)
	case logger.StatusDebug:
		l.Debug(msg, fields)
	case logger.StatusAborted:
		l.Warn(msg, fields)
	default:
		l.Info(msg, fields)
	}
}

func (t *Task) logDuration(l *logger.Logger, d time.Duration) {
	if t.silence {
		return
	}
	l.Info("done ("+formatDuration(d)+")", logger.MergeWithDuration(logger.TaskFields(t.name, logger.StatusDone), d))
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
