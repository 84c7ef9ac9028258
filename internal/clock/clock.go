// Package clock supplies the authoritative current time for the booking
// service. In normal operation Now follows the wall clock; administrators can
// switch the service into test mode with a fixed virtual instant so the
// time-window rules can be exercised deterministically.
package clock

import (
	"sync"
	"time"
)

// Clock is a thread-safe time source with an optional virtual override.
type Clock struct {
	mu       sync.Mutex
	testMode bool
	virtual  time.Time
	real     func() time.Time
}

// New returns a clock following the real wall clock.
func New() *Clock {
	return &Clock{real: time.Now}
}

// NewWithReal returns a clock whose notion of real time comes from the
// supplied function. Used by tests; a nil function falls back to time.Now.
func NewWithReal(real func() time.Time) *Clock {
	if real == nil {
		real = time.Now
	}
	return &Clock{real: real}
}

// Now returns the authoritative current instant: the virtual time when test
// mode is enabled and a virtual instant has been set, the real clock
// otherwise. The virtual instant does not advance between calls.
func (c *Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.testMode && !c.virtual.IsZero() {
		return c.virtual
	}
	return c.real()
}

// NowFunc exposes Now as a function suitable for dependency injection.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Real returns the wall-clock time regardless of test mode.
func (c *Clock) Real() time.Time {
	if c == nil {
		return time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.real()
}

// SetTestMode enables or disables the virtual override. Disabling keeps the
// stored virtual instant so re-enabling resumes from the same point.
func (c *Clock) SetTestMode(enabled bool) {
	c.mu.Lock()
	c.testMode = enabled
	c.mu.Unlock()
}

// SetVirtual pins the virtual instant returned while test mode is enabled.
func (c *Clock) SetVirtual(t time.Time) {
	c.mu.Lock()
	c.virtual = t
	c.mu.Unlock()
}

// State reports the test-mode flag and the stored virtual instant. The
// virtual instant is the zero value when never set.
func (c *Clock) State() (testMode bool, virtual time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.testMode, c.virtual
}
