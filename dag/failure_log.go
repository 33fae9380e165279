package dag

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FailureLog is the append-only record of failed commands, one
// "retcode=<n>,cmd=<cmd>" line per failure.
type FailureLog struct {
	mu   sync.Mutex
	path string
}

// NewFailureLog returns a log named failed-cmds-<timestamp>.txt inside dir.
// The file is created on first append.
func NewFailureLog(dir string, now time.Time) *FailureLog {
	if dir == "" {
		dir = "."
	}
	name := fmt.Sprintf("failed-cmds-%s.txt", now.Format("20060102-150405"))
	return &FailureLog{path: filepath.Join(dir, name)}
}

// Path returns the file the log appends to.
func (l *FailureLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append records a failed command. A nil log discards the entry.
func (l *FailureLog) Append(retcode int, cmd string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "retcode=%d,cmd=%s\n", retcode, cmd); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
