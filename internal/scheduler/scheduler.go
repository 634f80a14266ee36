// Package scheduler runs debounced tasks keyed by owner and task name.
// Scheduling a task that is already pending resets its timer.
package scheduler

import (
	"sync"
	"time"
)

type taskKey struct {
	owner string
	name  string
}

type pending struct {
	timer *time.Timer
	seq   uint64
}

type Scheduler struct {
	mu      sync.Mutex
	tasks   map[taskKey]*pending
	seq     uint64
	stopped bool
}

func New() *Scheduler {
	return &Scheduler{tasks: make(map[taskKey]*pending)}
}

// Schedule runs fn after delay unless it is rescheduled or cancelled first.
// fn runs on its own goroutine.
func (s *Scheduler) Schedule(owner, name string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	key := taskKey{owner: owner, name: name}
	if p, ok := s.tasks[key]; ok {
		p.timer.Stop()
	}

	s.seq++
	seq := s.seq
	p := &pending{seq: seq}
	p.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		current, ok := s.tasks[key]
		if !ok || current.seq != seq {
			s.mu.Unlock()
			return
		}
		delete(s.tasks, key)
		s.mu.Unlock()
		fn()
	})
	s.tasks[key] = p
}

// Cancel drops one pending task. It does not interrupt a task already running.
func (s *Scheduler) Cancel(owner, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := taskKey{owner: owner, name: name}
	if p, ok := s.tasks[key]; ok {
		p.timer.Stop()
		delete(s.tasks, key)
	}
}

// CancelAll drops every pending task of owner.
func (s *Scheduler) CancelAll(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, p := range s.tasks {
		if key.owner == owner {
			p.timer.Stop()
			delete(s.tasks, key)
		}
	}
}

func (s *Scheduler) Pending(owner, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[taskKey{owner: owner, name: name}]
	return ok
}

// PendingCount returns the number of tasks pending for owner.
func (s *Scheduler) PendingCount(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.tasks {
		if key.owner == owner {
			n++
		}
	}
	return n
}

// Stop cancels everything and refuses new tasks.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, p := range s.tasks {
		p.timer.Stop()
		delete(s.tasks, key)
	}
}
