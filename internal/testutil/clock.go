package testutil

import (
	"sync"
	"time"

	"github.com/verte-zerg/tock/internal/clock"
)

// ManualTime is a time source that only moves when told to.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualTime struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualTime creates a time source frozen at start.
func NewManualTime(start time.Time) *ManualTime {
	return &ManualTime{now: start}
}

// Now returns the frozen time.
func (m *ManualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the time forward by d.
func (m *ManualTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// ManualTimer is a callback booked on a ManualScheduler.
type ManualTimer struct {
	sched   *ManualScheduler
	Delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

// Stop cancels the timer if it has not fired yet.
func (t *ManualTimer) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// ManualScheduler records callbacks and runs them only from FireNext.
//
// Callbacks run on the caller's goroutine without the scheduler lock held, so
// they may book new timers.
type ManualScheduler struct {
	mu     sync.Mutex
	timers []*ManualTimer
}

// NewManualScheduler creates an empty scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc books f. It never runs on its own.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) clock.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &ManualTimer{sched: s, Delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// FireNext runs the oldest pending callback. It reports false when nothing is pending.
func (s *ManualScheduler) FireNext() bool {
	s.mu.Lock()
	var next *ManualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			next = t
			break
		}
	}
	if next == nil {
		s.mu.Unlock()
		return false
	}
	next.fired = true
	s.mu.Unlock()

	next.f()
	return true
}

// Pending returns the number of callbacks that are neither fired nor stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Delays returns the delay of every booked callback in booking order.
func (s *ManualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.timers))
	for i, t := range s.timers {
		out[i] = t.Delay
	}
	return out
}

// LastDelay returns the delay of the most recently booked callback.
func (s *ManualScheduler) LastDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return 0
	}
	return s.timers[len(s.timers)-1].Delay
}
