// Package dedup provides packet deduplication for the birdhouse mesh
// engine: a small time-windowed ring of recently seen (origin, id) pairs.
// Entries older than the configured window are ignored even if the key
// matches a current packet, so a stale wraparound can't mask a genuinely
// new message.
package dedup

import "github.com/wars-birdhouse/mesh-core/internal/packet"

// DefaultCapacity is the dedup ring's default size.
const DefaultCapacity = 8

// DefaultWindowMs is the default dedup age window, chosen to exceed the
// OPM's retry horizon (TxRetryMs/TxTimeoutMs) so a retried original and its
// duplicate are still recognized as the same message.
const DefaultWindowMs = 30_000

type entry struct {
	origin  packet.Addr
	id      uint16
	seenAt  uint32
	present bool
}

// Report is a fixed-capacity, time-windowed record of recently seen
// (originalSourceAddr, id) pairs.
type Report struct {
	entries  []entry
	next     int
	windowMs uint32
}

// New creates a Report with the default capacity and window.
func New() *Report {
	return NewWithParams(DefaultCapacity, DefaultWindowMs)
}

// NewWithParams creates a Report with the given capacity and age window
// (milliseconds).
func NewWithParams(capacity int, windowMs uint32) *Report {
	return &Report{
		entries:  make([]entry, capacity),
		windowMs: windowMs,
	}
}

// HasSeen reports whether (origin, id) was recorded within the dedup
// window as of now. If not, it records the pair (evicting the oldest
// entry if the ring is full) and returns false.
func (r *Report) HasSeen(origin packet.Addr, id uint16, now uint32) bool {
	for _, e := range r.entries {
		if !e.present || e.origin != origin || e.id != id {
			continue
		}
		if now-e.seenAt < r.windowMs {
			return true
		}
	}

	r.entries[r.next] = entry{origin: origin, id: id, seenAt: now, present: true}
	r.next = (r.next + 1) % len(r.entries)
	return false
}

// Clear forgets every recorded entry.
func (r *Report) Clear() {
	for i := range r.entries {
		r.entries[i] = entry{}
	}
	r.next = 0
}
