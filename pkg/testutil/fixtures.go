package testutil

import (
	"sync"
	"time"
)

// Addresses from the documentation ranges (RFC 5737), never whitelisted by
// the default private-range list.
const (
	PublicIP1 = "203.0.113.9"
	PublicIP2 = "198.51.100.23"
	PublicIP3 = "192.0.2.44"
)

// Epoch is a fixed instant used as the starting point of fake clocks.
var Epoch = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

// Clock is a manually advanced clock safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock starting at Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
