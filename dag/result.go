package dag

import (
	"sort"
	"sync"
	"time"
)

// Status classifies how a task run ended.
type Status string

const (
	StatusExecuted         Status = "executed"
	StatusAlreadyDone      Status = "already_done"
	StatusSkippedExecution Status = "skipped_execution"
	StatusMissingInput     Status = "missing_input"
	StatusAlreadyProduced  Status = "already_produced"
	StatusFailed           Status = "failed"
	StatusCanceled         Status = "canceled"
)

// Succeeded reports whether the status unlocks successors.
func (s Status) Succeeded() bool {
	return s != StatusFailed && s != StatusCanceled
}

// Outcome holds the result of a single task run.
type Outcome struct {
	Status  Status
	Err     error
	Elapsed time.Duration
}

// OK reports whether the task succeeded.
func (o Outcome) OK() bool { return o.Status.Succeeded() }

// Report holds the outcome of an orchestrator run, keyed by task name. There
// is no aggregate pass/fail; callers inspect Outcomes or Failed.
type Report struct {
	RunID    string
	Started  time.Time
	Elapsed  time.Duration
	Canceled bool
	Outcomes map[string]Outcome

	// TotalTaskTime sums the wall-clock time of every task run in this run.
	TotalTaskTime time.Duration

	mu sync.Mutex
}

func newReport(runID string, started time.Time) *Report {
	return &Report{RunID: runID, Started: started, Outcomes: make(map[string]Outcome)}
}

func (r *Report) addTaskTime(d time.Duration) {
	r.mu.Lock()
	r.TotalTaskTime += d
	r.mu.Unlock()
}

func (r *Report) record(name string, o Outcome) {
	r.mu.Lock()
	r.Outcomes[name] = o
	r.mu.Unlock()
}

// Outcome returns the outcome recorded for name.
func (r *Report) Outcome(name string) (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.Outcomes[name]
	return o, ok
}

// Failed returns the sorted names of tasks that failed or were canceled.
func (r *Report) Failed() []string {
	return r.names(func(o Outcome) bool { return !o.OK() })
}

// Executed returns the sorted names of tasks whose command was spawned and succeeded.
func (r *Report) Executed() []string {
	return r.names(func(o Outcome) bool { return o.Status == StatusExecuted })
}

// Counts returns the number of outcomes per status.
func (r *Report) Counts() map[Status]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Status]int)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

func (r *Report) names(keep func(Outcome) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for name, o := range r.Outcomes {
		if keep(o) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
