package engine

import "sync/atomic"

// Clock stamps reducer commits. Seqs start after last, go up by one per
// commit and never come from wall time, so replaying a scenario yields
// the same journal.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a clock whose first tick is 1.
func NewClock() *Clock {
	return &Clock{}
}

// ResumeClock returns a clock whose first tick is last+1, for an engine
// that continues the numbering of an earlier journal run.
func ResumeClock(last int64) *Clock {
	c := new(Clock)
	c.last.Store(last)
	return c
}

// Tick advances the clock and returns the seq for the commit being made.
func (c *Clock) Tick() int64 { return c.last.Add(1) }

// Last is the seq of the most recent commit, 0 before the first.
func (c *Clock) Last() int64 { return c.last.Load() }
