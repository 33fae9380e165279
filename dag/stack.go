package dag

import (
	"context"
	"sync"
)

// readyStack is a LIFO work queue with join semantics: Wait returns once
// every pushed item has been acknowledged with Done.
type readyStack struct {
	mu         sync.Mutex
	cond       *sync.Cond
	items      []*Task
	unfinished int
	closed     bool
}

func newReadyStack() *readyStack {
	s := &readyStack{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Push adds a task on top. Pushes after Close are dropped.
func (s *readyStack) Push(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.items = append(s.items, t)
	s.unfinished++
	s.cond.Signal()
}

// Pop blocks until a task is available or the stack is closed.
func (s *readyStack) Pop() (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.items) == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.closed {
		return nil, false
	}
	n := len(s.items) - 1
	t := s.items[n]
	s.items[n] = nil
	s.items = s.items[:n]
	return t, true
}

// Done acknowledges one popped task.
func (s *readyStack) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unfinished > 0 {
		s.unfinished--
	}
	if s.unfinished == 0 {
		s.cond.Broadcast()
	}
}

// Wait blocks until every pushed task is acknowledged or ctx is done. On
// ctx done the stack is closed so blocked workers wake up.
func (s *readyStack) Wait(ctx context.Context) {
	stop := context.AfterFunc(ctx, s.Close)
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for s.unfinished > 0 && !s.closed {
		s.cond.Wait()
	}
}

// Close wakes every waiter; pending items are discarded.
func (s *readyStack) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.items = nil
	s.cond.Broadcast()
}

// Len returns the number of queued tasks.
func (s *readyStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
