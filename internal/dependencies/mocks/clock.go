package mocks

import (
	"sort"
	"sync"
	"time"

	"github.com/nightfall-games/werewolf-lobby/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// Scheduled callbacks do not fire on their own; Advance moves the clock
// forward and fires every due timer synchronously, in deadline order.
// Safe for concurrent use.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*MockTimer
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{current: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc registers fn to fire when the clock is advanced past d
func (c *MockClock) AfterFunc(d time.Duration, fn func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &MockTimer{
		clock:    c,
		deadline: c.current.Add(d),
		fn:       fn,
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by the given duration and fires every
// timer whose deadline has been reached, in deadline order. Callbacks run
// without the clock lock held, so they may schedule or stop other timers;
// newly scheduled timers are picked up in the same pass if already due.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()

	for {
		next := c.popDue()
		if next == nil {
			return
		}
		next.fn()
	}
}

// Set sets the clock to the given time without firing timers
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// PendingTimers returns the number of scheduled, unfired, unstopped timers
func (c *MockClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *MockClock) popDue() *MockTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.SliceStable(c.timers, func(i, j int) bool {
		return c.timers[i].deadline.Before(c.timers[j].deadline)
	})
	for _, t := range c.timers {
		if t.stopped || t.fired {
			continue
		}
		if t.deadline.After(c.current) {
			continue
		}
		t.fired = true
		return t
	}
	return nil
}

// MockTimer is a scheduled callback held by a MockClock
type MockTimer struct {
	clock    *MockClock
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

// Ensure MockTimer implements Timer
var _ clock.Timer = (*MockTimer)(nil)

// Stop cancels the timer, reporting whether it was still pending
func (t *MockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
