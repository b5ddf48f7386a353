package engine

import "sync/atomic"

// Clock is the engine's monotonic logical clock.
//
// Task IDs and job sequence numbers are drawn from it. Simulated time
// orders jobs first; the sequence number breaks ties, so jobs due at the
// same instant run in the order they were scheduled and every run of the
// same model and plan schedules identically.
//
// Clock is safe for concurrent use, although the engine only calls it from
// the goroutine that drives Step.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new value. The first call
// returns 1, so 0 never names a task.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
