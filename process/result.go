package process

import (
	"syscall"
	"time"
)

// Result holds the output and status of a completed subprocess.
type Result struct {
	// Stdout is the captured standard output, or the merged stream when
	// Command.MergeOutput is set.
	Stdout []byte
	// Stderr is the captured standard error. Empty when output is merged.
	Stderr []byte
	// ExitCode is the process exit code. A process terminated by signal N
	// reports -N.
	ExitCode int
	// Signal is the terminating signal, zero if the process exited normally.
	Signal syscall.Signal
	// Duration is how long the process ran.
	Duration time.Duration
}

// Signaled reports whether the process was terminated by a signal.
func (r *Result) Signaled() bool {
	return r.Signal != 0
}
