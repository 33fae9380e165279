package process

import (
	"context"
	"syscall"
	"time"
)

// Runner executes commands. *Adapter is the production implementation; tests
// substitute their own to observe spawns.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Command) (*Result, error)

// Run calls f(ctx, cmd).
func (f RunnerFunc) Run(ctx context.Context, cmd Command) (*Result, error) {
	return f(ctx, cmd)
}

// compile-time assertions
var (
	_ Runner = (*Adapter)(nil)
	_ Runner = RunnerFunc(nil)
)

// Config configures a process adapter.
type Config struct {
	// GracePeriod is the default grace period between CancelSignal and SIGKILL.
	GracePeriod time.Duration `yaml:"grace_period,omitempty" mapstructure:"grace_period"`
	// Timeout is the default execution timeout. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
	// CancelSignal is the default signal delivered on cancellation.
	CancelSignal syscall.Signal `yaml:"-" mapstructure:"-"`
}

// Adapter applies adapter-level defaults to every command it runs.
type Adapter struct {
	config Config
}

// NewAdapter creates a new process adapter.
func NewAdapter(cfg Config) *Adapter {
	return &Adapter{config: cfg}
}

// Run executes a command, applying adapter-level defaults.
func (a *Adapter) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.GracePeriod == 0 && a.config.GracePeriod > 0 {
		cmd.GracePeriod = a.config.GracePeriod
	}
	if cmd.CancelSignal == 0 && a.config.CancelSignal != 0 {
		cmd.CancelSignal = a.config.CancelSignal
	}
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}
	return Run(ctx, cmd)
}
