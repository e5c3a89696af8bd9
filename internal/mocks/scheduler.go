package mocks

import (
	"sort"
	"sync"
	"time"

	"github.com/seu-repo/concierge/internal/ports"
)

// ManualScheduler is a virtual clock: callbacks only fire on Advance
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// Now returns the virtual time
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) ports.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &manualTimer{s: s, at: s.now.Add(d), seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward and runs every callback that became due,
// earliest first. Callbacks run without the scheduler lock held.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDueLocked(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		next.fired = true
		s.now = next.at
		s.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of timers that have neither fired nor been stopped
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

func (s *ManualScheduler) nextDueLocked(target time.Time) *manualTimer {
	var due []*manualTimer
	for _, t := range s.timers {
		if !t.fired && !t.stopped && !t.at.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].seq < due[j].seq
		}
		return due[i].at.Before(due[j].at)
	})
	return due[0]
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
