package ratelimit

import (
	"context"
	"time"
)

// MinDelay is the shortest pause between two cycles, even when a cycle
// overran the interval.
const MinDelay = time.Second

// Cadence paces poll cycles so that each starts one interval after the
// previous one started.
type Cadence struct {
	interval time.Duration
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
}

func NewCadence(interval time.Duration) *Cadence {
	return &Cadence{
		interval: interval,
		now:      time.Now,
		after:    time.After,
	}
}

func (c *Cadence) Interval() time.Duration {
	return c.interval
}

// Delay returns max(MinDelay, interval - time since started).
func (c *Cadence) Delay(started time.Time) time.Duration {
	delay := c.interval - c.now().Sub(started)
	if delay < MinDelay {
		return MinDelay
	}
	return delay
}

// Wait sleeps until the next cycle is due or ctx is done.
func (c *Cadence) Wait(ctx context.Context, started time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.after(c.Delay(started)):
		return nil
	}
}

// WithClock replaces the clock used to measure elapsed time.
func (c *Cadence) WithClock(now func() time.Time) *Cadence {
	c.now = now
	return c
}
