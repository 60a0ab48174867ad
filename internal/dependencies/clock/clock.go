package clock

import "time"

// Timer is a handle to a scheduled callback that can be cancelled
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// callback from firing.
	Stop() bool
}

// Clock provides time and timer operations that can be mocked for testing
type Clock interface {
	Now() time.Time

	// AfterFunc schedules fn to run after d elapses and returns a
	// cancellable handle
	AfterFunc(d time.Duration, fn func()) Timer
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules fn on the runtime timer heap
func (c *RealClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

var _ Timer = (*time.Timer)(nil)
