// SPDX-License-Identifier: MPL-2.0

// Package testutil holds helpers shared by tests across the module.
package testutil

import (
	"sync"
	"time"
)

type (
	// Clock abstracts wall-clock reads so cache expiry and probe
	// memoization can be tested deterministically. Production code uses
	// RealClock; tests use FakeClock.
	Clock interface {
		Now() time.Time
		Since(t time.Time) time.Duration
	}

	// RealClock reads the system clock.
	RealClock struct{}

	// FakeClock is a manually advanced clock. Time moves only through
	// Advance or Set.
	FakeClock struct {
		mu      sync.Mutex
		current time.Time
	}
)

// Now implements Clock.
func (RealClock) Now() time.Time { return time.Now() }

// Since implements Clock.
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// NewFakeClock returns a FakeClock starting at initial, or at a fixed
// reference instant when initial is zero so tests reproduce exactly.
func NewFakeClock(initial time.Time) *FakeClock {
	if initial.IsZero() {
		initial = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return &FakeClock{current: initial}
}

// Now implements Clock.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Since implements Clock.
func (c *FakeClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Sub(t)
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set jumps the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
