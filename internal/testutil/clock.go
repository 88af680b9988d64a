package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a wall clock for tests that advances one second per
// reading, starting from a fixed instant.
//
// Thread-safety: all methods are safe for concurrent use.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	ticks int64
}

// Epoch is the first instant returned by a new DeterministicClock.
var Epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// NewDeterministicClock creates a clock whose first reading is Epoch.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{start: Epoch}
}

// Now returns the next instant. Successive calls are one second apart.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.ticks) * time.Second)
	c.ticks++
	return t
}

// Readings returns how many times Now has been called.
func (c *DeterministicClock) Readings() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
