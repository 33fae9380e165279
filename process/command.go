package process

import (
	"io"
	"sort"
	"strings"
	"syscall"
	"time"
)

// Command configures a subprocess to execute.
type Command struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string
	// Args are the command-line arguments.
	Args []string
	// Dir is the working directory. If empty, uses the current directory.
	Dir string
	// Env is additional environment variables (key=value). Merged over os.Environ;
	// on a key collision the value here wins.
	Env []string
	// Stdin provides input to the process. May be nil.
	Stdin io.Reader
	// MergeOutput captures stdout and stderr into a single stream (Result.Stdout).
	MergeOutput bool
	// CancelSignal is sent to the process group when the context is canceled.
	// Defaults to SIGTERM if zero.
	CancelSignal syscall.Signal
	// GracePeriod is how long to wait after CancelSignal before SIGKILL.
	// Defaults to 5 seconds if zero.
	GracePeriod time.Duration
}

// Parse builds a Command from a whitespace-separated command line. No shell
// quoting is interpreted: "a 'b c'" yields the arguments 'b and c'.
func Parse(line string, env map[string]string, dir string) Command {
	fields := strings.Fields(line)
	cmd := Command{Dir: dir, Env: EnvList(env)}
	if len(fields) > 0 {
		cmd.Binary = fields[0]
		cmd.Args = fields[1:]
	}
	return cmd
}

// EnvList flattens an override map into sorted key=value pairs.
func EnvList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
