package report

import (
	"sync"
	"time"
)

// Clock hands out strictly increasing creation timestamps, even if the wall
// clock stalls or steps back. Values are truncated to the store's microsecond
// precision so the order survives a round trip.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
