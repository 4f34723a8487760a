package engine

import "time"

// Clock reports seconds elapsed since it was created. It never runs backwards.
type Clock struct {
	now   func() time.Time
	start time.Time
	last  float64
}

// NewClock starts a clock. A nil now uses time.Now, whose readings carry a
// monotonic component.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now, start: now()}
}

// Elapsed returns seconds since start.
func (c *Clock) Elapsed() float64 {
	t := c.now().Sub(c.start).Seconds()
	if t < c.last {
		return c.last
	}
	c.last = t
	return t
}
