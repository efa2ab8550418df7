package engine

import (
	"sync/atomic"
	"time"
)

// Clock numbers the events of one simulation and sums the simulated time
// of its frames. Ticks and failure events share the sequence, starting at 1.
type Clock struct {
	seq     atomic.Int64
	elapsed atomic.Int64 // nanoseconds
}

// NewClock returns a clock that has issued nothing.
func NewClock() *Clock {
	return &Clock{}
}

// Tick issues the sequence number of a frame and adds delta to the
// simulated time.
func (c *Clock) Tick(delta time.Duration) int64 {
	c.elapsed.Add(int64(delta))
	return c.seq.Add(1)
}

// Next issues a sequence number for an event that takes no simulated time.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number, 0 before the first.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Elapsed returns the simulated time of every frame so far.
func (c *Clock) Elapsed() time.Duration {
	return time.Duration(c.elapsed.Load())
}
