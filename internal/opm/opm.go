// Package opm implements the OutboundPacketManager: at-most-once delivery
// via unique IDs, ACK correlation, timeout-bounded retry, and TX
// backpressure.
//
// Pending sends live in a fixed-size slot array driven synchronously by
// Pump rather than a background goroutine, since nothing in this engine's
// core is preemptive. A retry that finds TX full is simply deferred to the
// next Pump rather than escalated or dropped.
package opm

import (
	"log/slog"

	"github.com/wars-birdhouse/mesh-core/internal/packet"
	"github.com/wars-birdhouse/mesh-core/internal/ring"
)

// DefaultSlots is the OPM's default pending-slot count.
const DefaultSlots = 8

// Config configures a Manager.
type Config struct {
	// TxTimeoutMs is how long to wait, from first send, before giving up
	// on a pending ACK-required packet.
	TxTimeoutMs uint32

	// TxRetryMs is the interval between retransmission attempts for a
	// pending packet.
	TxRetryMs uint32

	// Slots is the number of pending-send slots. Default: DefaultSlots.
	Slots int

	// Logger for OPM events. Falls back to slog.Default() if nil.
	Logger *slog.Logger
}

type slot struct {
	used             bool
	pkt              *packet.Packet
	originalDestAddr packet.Addr // the next hop this packet was sent to
	id               uint16
	firstSendTime    uint32
	lastAttemptTime  uint32
	attempts         int
}

// Manager is the OutboundPacketManager.
type Manager struct {
	cfg   Config
	log   *slog.Logger
	tx    *ring.Buffer
	slots []slot

	// TimeoutCount counts packets that were given up on after TxTimeoutMs
	// without a matching ACK.
	TimeoutCount uint32
}

// New creates an OutboundPacketManager that emits onto tx.
func New(tx *ring.Buffer, cfg Config) *Manager {
	if cfg.Slots <= 0 {
		cfg.Slots = DefaultSlots
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:   cfg,
		log:   logger.WithGroup("opm"),
		tx:    tx,
		slots: make([]slot, cfg.Slots),
	}
}

// ScheduleTransmitIfPossible emits p onto the TX buffer. If p requires an
// ACK, a pending slot is reserved so Pump can retry it until acknowledged
// or timed out; if no slot is free, the call fails without touching TX.
// Packets that don't require an ACK are emitted but never retained for
// retry — they pass through the TX buffer directly.
//
// Returns false if no slot is available (ACK-required packets) or the TX
// buffer is full.
func (m *Manager) ScheduleTransmitIfPossible(p *packet.Packet, now uint32) bool {
	if !p.IsAckRequired() {
		return m.tx.Push(nil, p.WriteTo())
	}

	idx := m.findFreeSlot()
	if idx < 0 {
		return false
	}
	if !m.tx.Push(nil, p.WriteTo()) {
		return false
	}

	m.slots[idx] = slot{
		used:             true,
		pkt:              p.Clone(),
		originalDestAddr: p.DestAddr,
		id:                p.ID,
		firstSendTime:    now,
		lastAttemptTime:  now,
		attempts:         1,
	}
	return true
}

func (m *Manager) findFreeSlot() int {
	for i := range m.slots {
		if !m.slots[i].used {
			return i
		}
	}
	return -1
}

// ProcessAck matches an incoming ACK frame against the pending slot whose
// (id, originalDestAddr) equals (ack.ID, ack.SourceAddr) and frees it.
// Unmatched ACKs are silently dropped.
func (m *Manager) ProcessAck(ack *packet.Packet) {
	for i := range m.slots {
		s := &m.slots[i]
		if s.used && s.id == ack.ID && s.originalDestAddr == ack.SourceAddr {
			s.used = false
			s.pkt = nil
			return
		}
	}
}

// Pump advances every pending slot's retry/timeout state. Slots past
// TxTimeoutMs are freed and counted as failed deliveries; slots past
// TxRetryMs since their last attempt are retransmitted if TX has room —
// if TX is full the retry is deferred to the next Pump, not escalated.
func (m *Manager) Pump(now uint32) {
	for i := range m.slots {
		s := &m.slots[i]
		if !s.used {
			continue
		}

		if now-s.firstSendTime >= m.cfg.TxTimeoutMs {
			m.log.Debug("delivery timed out", "id", s.id, "dest", s.originalDestAddr.String(), "attempts", s.attempts)
			m.TimeoutCount++
			s.used = false
			s.pkt = nil
			continue
		}

		if now-s.lastAttemptTime >= m.cfg.TxRetryMs {
			if m.tx.Push(nil, s.pkt.WriteTo()) {
				s.lastAttemptTime = now
				s.attempts++
				m.log.Debug("retrying", "id", s.id, "dest", s.originalDestAddr.String(), "attempt", s.attempts)
			}
			// TX full: defer silently, try again next Pump.
		}
	}
}

// GetPendingCount returns the number of slots currently awaiting an ACK.
func (m *Manager) GetPendingCount() int {
	n := 0
	for i := range m.slots {
		if m.slots[i].used {
			n++
		}
	}
	return n
}
