package dag

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/taskflow/errors"
	"github.com/kbukum/taskflow/logger"
	"github.com/kbukum/taskflow/observability"
)

const fallbackConcurrency = 8

// Orchestrator owns a task graph and schedules it over a bounded worker pool.
type Orchestrator struct {
	mu         sync.Mutex
	registered map[Key]*Task
	order      []*Task
	roots      map[Key]*Task
	producers  map[string]*Task
	names      map[string]struct{}

	totalElapsed atomic.Int64
}

// New returns an orchestrator with tasks registered in breadth-first order,
// following each task's explicit successors.
func New(tasks ...*Task) (*Orchestrator, error) {
	o := &Orchestrator{
		registered: make(map[Key]*Task),
		roots:      make(map[Key]*Task),
		producers:  make(map[string]*Task),
		names:      make(map[string]struct{}),
	}

	seen := make(map[Key]bool)
	queue := append([]*Task(nil), tasks...)
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if seen[t.Key()] {
			continue
		}
		seen[t.Key()] = true
		if err := o.AddTask(t); err != nil {
			return nil, err
		}
		queue = append(queue, t.Successors()...)
	}
	return o, nil
}

// AddTask registers t, records it as producer of its files and wires an edge
// from every already-registered producer of a file t consumes. A producer
// registered after its consumer creates no edge. Names are unique per
// orchestrator since reports and lookups are keyed by name. If another task
// already uses t's name or produces one of t's files nothing is recorded and
// a CONFIGURATION_ERROR is returned.
func (o *Orchestrator) AddTask(t *Task) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := t.Key()
	if _, ok := o.registered[key]; ok {
		return nil
	}

	if _, ok := o.names[t.Name()]; ok {
		return errors.DuplicateTaskName(t.Name())
	}
	for path := range t.produced {
		if p, ok := o.producers[path]; ok && p.Key() != key {
			return errors.ConflictingProducer(path, p.Name(), t.Name())
		}
	}
	for path := range t.produced {
		if _, ok := o.producers[path]; !ok {
			o.producers[path] = t
		}
	}
	for path := range t.consumed {
		if p, ok := o.producers[path]; ok {
			link(p, t)
		}
	}

	o.registered[key] = t
	o.names[t.Name()] = struct{}{}
	o.order = append(o.order, t)
	if !t.hasPredecessors() {
		o.roots[key] = t
	}
	return nil
}

// MustAddTask is like AddTask but panics on error.
func (o *Orchestrator) MustAddTask(t *Task) {
	if err := o.AddTask(t); err != nil {
		panic(err)
	}
}

// Roots returns the tasks with no predecessors, sorted by name.
func (o *Orchestrator) Roots() []*Task {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*Task, 0, len(o.roots))
	for _, t := range o.roots {
		if !t.hasPredecessors() {
			out = append(out, t)
		}
	}
	sortByName(out)
	return out
}

// AllTasks returns every task reachable from the roots, breadth first.
func (o *Orchestrator) AllTasks() []*Task {
	var out []*Task
	seen := make(map[Key]bool)
	frontier := o.Roots()
	for _, t := range frontier {
		seen[t.Key()] = true
	}
	for len(frontier) > 0 {
		t := frontier[0]
		frontier = frontier[1:]
		out = append(out, t)
		for _, n := range t.Successors() {
			if !seen[n.Key()] {
				seen[n.Key()] = true
				frontier = append(frontier, n)
			}
		}
	}
	return out
}

// Size returns the number of tasks reachable from the roots.
func (o *Orchestrator) Size() int {
	return len(o.AllTasks())
}

// Task returns the registered or reachable task with the given name.
func (o *Orchestrator) Task(name string) (*Task, bool) {
	for _, t := range o.tasks() {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Producer returns the task registered as producer of path.
func (o *Orchestrator) Producer(path string) (*Task, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.producers[cleanPath(path)]
	return t, ok
}

// TotalElapsed returns the summed wall-clock time of every task run so far.
func (o *Orchestrator) TotalElapsed() time.Duration {
	return time.Duration(o.totalElapsed.Load())
}

// tasks returns registered tasks in registration order followed by tasks
// only reachable through explicit successors.
func (o *Orchestrator) tasks() []*Task {
	o.mu.Lock()
	out := append([]*Task(nil), o.order...)
	o.mu.Unlock()

	seen := make(map[Key]bool, len(out))
	for _, t := range out {
		seen[t.Key()] = true
	}
	for _, t := range o.AllTasks() {
		if !seen[t.Key()] {
			seen[t.Key()] = true
			out = append(out, t)
		}
	}
	return out
}

// RunOptions configures Orchestrator.Run.
type RunOptions struct {
	TaskOptions

	// Concurrency bounds the worker pool. Zero or negative uses the host's
	// CPU count.
	Concurrency int
	// Observer is notified around every task run, in addition to tracing.
	Observer Observer
	// IgnoreSignals leaves SIGINT and SIGTERM to the caller. Cancel ctx to
	// stop the run instead.
	IgnoreSignals bool
}

// Run schedules the graph until no runnable task remains. Roots are seeded
// on a LIFO stack; every successful task pushes the successors it made
// ready. A failed task stalls its branch and nothing else. SIGINT or SIGTERM
// (or ctx cancellation) stops further dequeues and spawns and interrupts the
// running commands; Run still returns a report.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) *Report {
	runID := uuid.NewString()
	report := newReport(runID, time.Now())

	topts := opts.TaskOptions.withDefaults()
	topts.Output = &syncWriter{w: topts.Output}
	log := topts.Logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !opts.IgnoreSignals {
		stop := watchSignals(ctx, cancel, log)
		defer stop()
	}

	workers := opts.Concurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers <= 0 {
		workers = fallbackConcurrency
	}

	all := o.AllTasks()
	ctx, span := observability.StartRunSpan(ctx, runID, workers, len(all))
	for _, t := range all {
		t.claimed.Store(false)
	}

	obs := Observers(WithTracing(), opts.Observer)
	stack := newReadyStack()
	for _, t := range o.Roots() {
		if t.claim() {
			stack.Push(t)
		}
	}

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for ctx.Err() == nil {
				t, ok := stack.Pop()
				if !ok {
					return nil
				}
				o.runTask(ctx, t, topts, obs, stack, report)
				stack.Done()
			}
			return nil
		})
	}

	stack.Wait(ctx)
	report.Canceled = ctx.Err() != nil
	stack.Close()
	_ = g.Wait()

	report.Elapsed = time.Since(report.Started)
	observability.EndRunSpan(span, report.Canceled, len(report.Failed()))
	if report.Canceled {
		log.Warn("run interrupted", logger.TaskFields("run", logger.StatusAborted))
	}
	log.Info("Execution time:   "+formatDuration(report.Elapsed), logger.MergeWithDuration(logger.TaskFields("run", logger.StatusDone), report.Elapsed))
	log.Info("Total tasks time: "+formatDuration(report.TotalTaskTime), logger.MergeWithDuration(logger.TaskFields("run", logger.StatusDone), report.TotalTaskTime))
	return report
}

func (o *Orchestrator) runTask(ctx context.Context, t *Task, opts TaskOptions, obs Observer, stack *readyStack, report *Report) {
	tctx := obs.TaskStarted(ctx, t)
	start := time.Now()
	out := safeRun(tctx, t, opts)
	elapsed := time.Since(start)
	o.totalElapsed.Add(int64(elapsed))
	report.addTaskTime(elapsed)
	obs.TaskFinished(tctx, t, out)
	report.record(t.Name(), out)

	if !out.OK() {
		return
	}
	for _, next := range t.Successors() {
		if next.IsReady() && next.claim() {
			stack.Push(next)
		}
	}
}

// safeRun turns a panic inside a task run into a failed outcome so the
// worker survives.
func safeRun(ctx context.Context, t *Task, opts TaskOptions) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Internal(fmt.Errorf("panic: %v", r))
			opts.Logger.Error("error in worker", logger.MergeWithError(logger.TaskFields(t.Name(), logger.StatusError), err))
			out = Outcome{Status: StatusFailed, Err: err}
		}
	}()
	return t.Run(ctx, opts)
}

// watchSignals cancels the run on SIGINT or SIGTERM.
func watchSignals(ctx context.Context, cancel context.CancelFunc, log *logger.Logger) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			log.Warn("received signal, stopping", logger.Fields(logger.FieldSignal, sig.String()))
			cancel()
		case <-ctx.Done():
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
