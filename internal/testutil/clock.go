package testutil

import (
	"sync"
	"time"

	"github.com/roach88/staycheck/internal/dates"
)

// FixedClock is a dates.Clock pinned to a chosen calendar date.
//
// Stay ranges derived from a FixedClock are identical across runs, which keeps
// request bodies and traces byte-identical for golden comparison.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu    sync.Mutex
	today time.Time
}

// NewFixedClock returns a clock whose Today is the calendar date of t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{today: dates.Date(t)}
}

// DefaultToday is the date golden files were recorded against.
var DefaultToday = time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)

// Today returns the pinned date.
func (c *FixedClock) Today() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.today
}

// Advance moves the pinned date by n days.
func (c *FixedClock) Advance(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.today = dates.AddDays(c.today, n)
}
