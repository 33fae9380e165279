package dag

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/taskflow/process"
)

// Key is the identity of a task. Two independently constructed tasks with
// the same key are the same task for set membership and dedup.
type Key struct {
	ID  string
	Cmd string
	Cwd string
	Env string
}

// Task is a schedulable unit wrapping one external command.
type Task struct {
	name string
	id   string
	cmd  string
	env  map[string]string
	cwd  string

	mu   sync.RWMutex
	prev map[Key]*Task
	next map[Key]*Task

	consumed map[string]struct{}
	produced map[string]struct{}

	skipExecution               bool
	ignoreSkipIfAlreadyProduced bool

	showCmd    bool
	showOutput bool
	silence    bool

	done    atomic.Bool
	claimed atomic.Bool

	startTime time.Time
	endTime   time.Time
	elapsed   time.Duration
}

// TaskOption configures a Task at construction.
type TaskOption func(*Task)

// WithEnv sets environment overrides merged over the inherited environment.
func WithEnv(env map[string]string) TaskOption {
	return func(t *Task) {
		for k, v := range env {
			t.env[k] = v
		}
	}
}

// WithCwd sets the working directory of the command.
func WithCwd(dir string) TaskOption {
	return func(t *Task) { t.cwd = dir }
}

// WithNext declares explicit successors. The edge is symmetric: each
// successor gains t as a predecessor.
func WithNext(next ...*Task) TaskOption {
	return func(t *Task) {
		for _, n := range next {
			if n != nil {
				link(t, n)
			}
		}
	}
}

// WithConsumes declares files read as preconditions.
func WithConsumes(paths ...string) TaskOption {
	return func(t *Task) {
		for _, p := range paths {
			t.consumed[cleanPath(p)] = struct{}{}
		}
	}
}

// WithProduces declares files expected to exist after a successful run.
func WithProduces(paths ...string) TaskOption {
	return func(t *Task) {
		for _, p := range paths {
			t.produced[cleanPath(p)] = struct{}{}
		}
	}
}

// WithSkipExecution turns the task into a no-op success (dry run).
func WithSkipExecution(skip bool) TaskOption {
	return func(t *Task) { t.skipExecution = skip }
}

// WithIgnoreSkipIfAlreadyProduced forces re-execution even when every
// produced file already exists.
func WithIgnoreSkipIfAlreadyProduced(force bool) TaskOption {
	return func(t *Task) { t.ignoreSkipIfAlreadyProduced = force }
}

// WithShowCmd prints the environment overrides and command before running.
func WithShowCmd(show bool) TaskOption {
	return func(t *Task) { t.showCmd = show }
}

// WithShowOutput prints captured output of successful commands.
func WithShowOutput(show bool) TaskOption {
	return func(t *Task) { t.showOutput = show }
}

// WithSilence suppresses all non-error output of the task.
func WithSilence(silence bool) TaskOption {
	return func(t *Task) { t.silence = silence }
}

// NewTask creates a task running cmd. The name also derives the task ID:
// spaces become underscores.
func NewTask(name, cmd string, opts ...TaskOption) *Task {
	t := &Task{
		name:     name,
		id:       strings.ReplaceAll(name, " ", "_"),
		cmd:      cmd,
		env:      make(map[string]string),
		prev:     make(map[Key]*Task),
		next:     make(map[Key]*Task),
		consumed: make(map[string]struct{}),
		produced: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Task) Name() string { return t.name }
func (t *Task) ID() string { return t.id }
func (t *Task) Cmd() string { return t.cmd }
func (t *Task) Cwd() string { return t.cwd }
func (t *Task) SkipExecution() bool { return t.skipExecution }
func (t *Task) Done() bool { return t.done.Load() }
func (t *Task) StartTime() time.Time { return t.startTime }
func (t *Task) EndTime() time.Time { return t.endTime }
func (t *Task) Elapsed() time.Duration { return t.elapsed }
func (t *Task) String() string { return "Task(id=" + t.id + ")" }
func (t *Task) Env() map[string]string { return copyEnv(t.env) }
func (t *Task) Consumes() []string { return sortedPaths(t.consumed) }
func (t *Task) Produces() []string { return sortedPaths(t.produced) }
func (t *Task) IgnoreSkipIfAlreadyProduced() bool { return t.ignoreSkipIfAlreadyProduced }

// Key returns the identity of the task.
func (t *Task) Key() Key {
	return Key{ID: t.id, Cmd: t.cmd, Cwd: t.cwd, Env: strings.Join(process.EnvList(t.env), "\x00")}
}

// Equal reports whether two tasks share the same identity.
func (t *Task) Equal(other *Task) bool {
	return other != nil && t.Key() == other.Key()
}

// Predecessors returns the tasks that must complete first, sorted by name.
func (t *Task) Predecessors() []*Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedTasks(t.prev)
}

// Successors returns the tasks unlocked by this one, sorted by name.
func (t *Task) Successors() []*Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedTasks(t.next)
}

// IsReady reports whether every predecessor is done.
func (t *Task) IsReady() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, p := range t.prev {
		if !p.Done() {
			return false
		}
	}
	return true
}

// Then adds next as a successor of t and returns t.
func (t *Task) Then(next ...*Task) *Task {
	WithNext(next...)(t)
	return t
}

// claim marks the task as handed to the scheduler. Only the first caller wins,
// so a task reachable through two predecessors is queued once.
func (t *Task) claim() bool {
	return t.claimed.CompareAndSwap(false, true)
}

func (t *Task) hasPredecessors() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.prev) > 0
}

func (t *Task) envLine() string {
	return strings.Join(process.EnvList(t.env), " ")
}

// link wires the symmetric edge from -> to. Self-edges are ignored.
func link(from, to *Task) {
	if from.Key() == to.Key() {
		return
	}
	from.mu.Lock()
	if _, ok := from.next[to.Key()]; !ok {
		from.next[to.Key()] = to
	}
	from.mu.Unlock()

	to.mu.Lock()
	if _, ok := to.prev[from.Key()]; !ok {
		to.prev[from.Key()] = from
	}
	to.mu.Unlock()
}

func cleanPath(p string) string {
	if p == "" {
		return p
	}
	return filepath.Clean(p)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func missing(paths map[string]struct{}) []string {
	var out []string
	for p := range paths {
		if !exists(p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func sortedPaths(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func sortedTasks(set map[Key]*Task) []*Task {
	out := make([]*Task, 0, len(set))
	for _, t := range set {
		out = append(out, t)
	}
	sortByName(out)
	return out
}

func sortByName(tasks []*Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].name != tasks[j].name {
			return tasks[i].name < tasks[j].name
		}
		return tasks[i].cmd < tasks[j].cmd
	})
}

func copyEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

// syncWriter serializes writes from concurrent workers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
