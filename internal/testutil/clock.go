package testutil

import "sync"

// DeterministicClock is a resettable cycle counter for fake controllers.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock starting at 0. The first call to
// Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances by one and returns the new value.
func (c *DeterministicClock) Next() int64 {
	return c.Advance(1)
}

// Advance moves the clock by n, which may be zero or negative, and returns
// the new value. Fakes use it to simulate a misbehaving counter.
func (c *DeterministicClock) Advance(n int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq += n
	return c.seq
}

// Current returns the current value without advancing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset sets the clock back to 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
