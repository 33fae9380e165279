package logger

// Status classifies a task log line for coloring.
type Status string

const (
	StatusSpawn   Status = "spawn"
	StatusDone    Status = "done"
	StatusSkip    Status = "skip"
	StatusError   Status = "error"
	StatusDebug   Status = "debug"
	StatusAborted Status = "aborted"
)

const ansiReset = "\033[0m"

var statusColors = map[Status]string{
	StatusSpawn:   "\033[36m", // cyan
	StatusDone:    "\033[32m", // green
	StatusSkip:    "\033[33m", // yellow
	StatusError:   "\033[31m", // red
	StatusDebug:   "\033[37m", // white
	StatusAborted: "\033[35m", // magenta
}

// Colorize wraps s in the ANSI color of status. Unknown statuses are returned unchanged.
func Colorize(status Status, s string) string {
	color, ok := statusColors[status]
	if !ok {
		return s
	}
	return color + s + ansiReset
}
