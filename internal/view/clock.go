package view

import "sync/atomic"

// Clock is the monotonic logical clock stamping snapshot versions.
//
// Versions are strictly increasing and never derived from wall time, so two
// refreshes of identical data differ only in their version numbers.
type Clock struct {
	seq atomic.Uint64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next version.
func (c *Clock) Next() uint64 {
	return c.seq.Add(1)
}

// Current returns the last version handed out.
func (c *Clock) Current() uint64 {
	return c.seq.Load()
}
