package consensus

import (
	"sync"
	"time"
)

// fakeClock lets tests trigger view timeouts on demand instead of waiting on
// real wall-clock time, exercising the injectable-clock design directly.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiting []chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(0, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	c.waiting = append(c.waiting, ch)
	c.mu.Unlock()
	return ch
}

// Fire releases every timer currently waiting, simulating every outstanding
// view timeout expiring at once.
func (c *fakeClock) Fire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	for _, ch := range c.waiting {
		ch <- c.now
	}
	c.waiting = nil
}
