// Package clock provides a monotonic millisecond time source for the
// birdhouse mesh engine. The engine never calls time.Now() directly so
// that pump cycles, ACK timeouts, and dedup windows can be driven
// deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is a monotonic millisecond time source. The zero value is not
// usable; construct one with New.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	nowFn func() uint32 // overridable for testing
}

// New creates a Clock backed by the system monotonic clock. The returned
// Clock's Millis() is relative to the moment New was called, not to the
// UNIX epoch — the engine only ever needs elapsed-time comparisons.
func New() *Clock {
	c := &Clock{start: time.Now()}
	c.nowFn = func() uint32 {
		return uint32(time.Since(c.start).Milliseconds())
	}
	return c
}

// Millis returns the current monotonic time in milliseconds.
func (c *Clock) Millis() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowFn()
}
