package reader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/metcalfc/florida/internal/store"
)

// fakeScheduler is a manual clock. Every timer fires late by a fixed
// amount, and Stop can be told to fail to simulate a callback that raced
// its cancellation.
type fakeScheduler struct {
	mu         sync.Mutex
	now        time.Time
	late       time.Duration
	ignoreStop bool
	timers     []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	due     time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (s *fakeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, due: s.now.Add(d), f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.ignoreStop || t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// next returns the earliest live timer, or nil.
func (s *fakeScheduler) next() *fakeTimer {
	var best *fakeTimer
	for _, t := range s.timers {
		if t.stopped || t.fired {
			continue
		}
		if best == nil || t.due.Before(best.due) {
			best = t
		}
	}
	return best
}

// Step fires the earliest pending timer and reports whether one existed.
func (s *fakeScheduler) Step() bool {
	s.mu.Lock()
	t := s.next()
	if t == nil {
		s.mu.Unlock()
		return false
	}
	t.fired = true
	if at := t.due.Add(s.late); at.After(s.now) {
		s.now = at
	}
	s.mu.Unlock()
	t.f()
	return true
}

// Advance moves the clock forward by d, firing every timer that falls due.
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()
	for {
		s.mu.Lock()
		t := s.next()
		if t == nil || t.due.Add(s.late).After(target) {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		s.Step()
	}
}

// Pending counts live timers.
func (s *fakeScheduler) Pending() int {
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

type memStates struct {
	mu    sync.Mutex
	saved []store.ReadingState
	err   error
}

func (m *memStates) PutReadingState(_ context.Context, st store.ReadingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, st)
	return nil
}

func (m *memStates) all() []store.ReadingState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.ReadingState(nil), m.saved...)
}

func (m *memStates) last() (store.ReadingState, bool) {
	all := m.all()
	if len(all) == 0 {
		return store.ReadingState{}, false
	}
	return all[len(all)-1], true
}

var errStoreDown = errors.New("store unavailable")

type recordingCues struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingCues) Play(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *recordingCues) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}
