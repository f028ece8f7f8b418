package reactor

import (
	"sync"
	"time"
)

// task is a delayed action tagged with the generation that created it.
type task struct {
	gen    uint64
	action func() error
}

// scheduler holds at most one outstanding delayed task. Scheduling a new
// task supersedes the previous one atomically: the generation counter is
// bumped under the same lock that tags the new task, so there is no
// window where both could fire. A firing whose generation lost the race
// is detected on delivery and skipped.
type scheduler struct {
	mu    sync.Mutex
	gen   uint64
	timer *time.Timer

	fired chan task
	done  chan struct{}
	once  sync.Once
}

func newScheduler() *scheduler {
	return &scheduler{
		fired: make(chan task, 1),
		done:  make(chan struct{}),
	}
}

// schedule arms action after d, cancelling any pending task.
func (s *scheduler) schedule(d time.Duration, action func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++
	gen := s.gen

	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		stale := gen != s.gen
		s.mu.Unlock()
		if stale {
			return
		}

		// Deliver into the reactor loop; block until it drains or quits
		// so a live firing is never dropped.
		select {
		case s.fired <- task{gen: gen, action: action}:
		case <-s.done:
		}
	})
}

// cancel invalidates the pending task, if any. Safe to call at any time,
// including after the task already fired or was superseded.
func (s *scheduler) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++
}

func (s *scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// live reports whether t is still the current generation.
func (s *scheduler) live(t task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.gen == s.gen
}

// close releases any firing blocked on delivery.
func (s *scheduler) close() {
	s.once.Do(func() {
		s.cancel()
		close(s.done)
	})
}
