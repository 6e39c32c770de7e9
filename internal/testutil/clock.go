package testutil

import (
	"sync"
	"time"
)

// WallClock is a controllable wall-clock source for command tests.
//
// Commands stamp events with the injected clock; with a WallClock the
// same scenario always produces the same timestamps, which keeps event
// logs byte-identical across runs.
//
// Thread-safety: all methods are safe for concurrent use.
type WallClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewWallClock creates a clock frozen at start.
func NewWallClock(start time.Time) *WallClock {
	return &WallClock{now: start}
}

// Now returns the current frozen time. Pass the method value as the
// command layer's now function.
func (c *WallClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *WallClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
