// Package telemetry holds the message processor's process-wide packet
// counters and its per-node unique-ID generator.
package telemetry

import "sync/atomic"

// Counters tracks packet-processing statistics. All fields are safe for
// concurrent access, though the engine itself is single-threaded — the
// atomics simply make a future multi-goroutine host loop safe for free.
type Counters struct {
	RxPacketCount    atomic.Uint32
	BadRxPacketCount atomic.Uint32
	BadRouteCount    atomic.Uint32
	LastRxTimeMs     atomic.Uint32

	idCounter atomic.Uint32 // wraps into a uint16 in NextID
}

// Snapshot is a plain-value copy of Counters for reading (e.g. for
// GETSED_RESP) or logging.
type Snapshot struct {
	RxPacketCount    uint32
	BadRxPacketCount uint32
	BadRouteCount    uint32
	LastRxTimeMs     uint32
}

// Snapshot returns a consistent point-in-time copy of the counters.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		RxPacketCount:    c.RxPacketCount.Load(),
		BadRxPacketCount: c.BadRxPacketCount.Load(),
		BadRouteCount:    c.BadRouteCount.Load(),
		LastRxTimeMs:     c.LastRxTimeMs.Load(),
	}
}

// Reset zeroes every packet counter. The unique-ID counter is left alone:
// IDs must keep advancing across a counters reset so that in-flight dedup
// entries from before the reset remain valid.
func (c *Counters) Reset() {
	c.RxPacketCount.Store(0)
	c.BadRxPacketCount.Store(0)
	c.BadRouteCount.Store(0)
	c.LastRxTimeMs.Store(0)
}

// NextID returns the next 16-bit unique ID, monotonically incrementing and
// wrapping after 65535. Uniqueness is per-node and per-boot; collisions
// after wrap are tolerated because dedup carries a time window.
func (c *Counters) NextID() uint16 {
	return uint16(c.idCounter.Add(1))
}
