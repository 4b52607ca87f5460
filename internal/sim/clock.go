package sim

import "sync/atomic"

// Clock is the controller's monotonic cycle counter.
//
// The step loop is the only writer, but the counter is read by
// ReadState from other goroutines, so it is atomic.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a known cycle.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock by exactly one cycle and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current cycle without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
