package authflow

import (
	"sync"
	"time"
)

// refreshScheduler arranges at most one pending proactive-refresh timer.
// Installing new credentials replaces the previous timer; a trigger time
// already in the past fires immediately instead of arming a
// negative-duration timer.
type refreshScheduler struct {
	mu      sync.Mutex
	timer   *time.Timer
	margin  time.Duration
	trigger func()
	stopped bool
}

func newRefreshScheduler(margin time.Duration, trigger func()) *refreshScheduler {
	return &refreshScheduler{margin: margin, trigger: trigger}
}

// scheduleAt arms the timer for expiry minus the safety margin. Clock skew
// and near-expired tokens collapse to an immediate asynchronous trigger.
func (s *refreshScheduler) scheduleAt(expiry time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	delay := time.Until(expiry.Add(-s.margin))
	if delay <= 0 {
		go s.trigger()
		return
	}
	s.timer = time.AfterFunc(delay, s.trigger)
}

// cancel drops any pending timer without firing it.
func (s *refreshScheduler) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// stop cancels the pending timer and refuses all future scheduling.
func (s *refreshScheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
