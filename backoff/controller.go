package backoff

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Controller owns the single pending reconnect timer. Scheduling a new
// callback replaces any pending one; Cancel guarantees no callback fires
// after it returns.
type Controller struct {
	clock clock.Clock

	mu    sync.Mutex
	timer *clock.Timer
	gen   uint64
}

// NewController creates a controller. A nil clk uses the real clock.
func NewController(clk clock.Clock) *Controller {
	if clk == nil {
		clk = clock.New()
	}
	return &Controller{clock: clk}
}

// Schedule arms the timer to run fn after d, replacing any pending timer.
func (c *Controller) Schedule(d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.gen++
	gen := c.gen

	c.timer = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		stale := gen != c.gen
		if !stale {
			c.timer = nil
		}
		c.mu.Unlock()
		if stale {
			return
		}
		fn()
	})
}

// Cancel stops any pending timer. A callback that has not yet started
// observing its generation will not run.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.gen++
}

// Pending reports whether a timer is armed.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

func (c *Controller) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
