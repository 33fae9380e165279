// Package process runs external commands with a merged environment, an
// optional working directory, and captured output. Cancellation is
// cooperative: the process group receives a configurable signal and is
// killed only after a grace period.
package process
