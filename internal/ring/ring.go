// Package ring provides a fixed-capacity byte FIFO, whose backing storage
// is allocated once at construction, used to model the radio driver's
// RX/TX queues. Pops return freshly allocated copies of each record. Each record pairs a small
// fixed-width sidechannel (e.g. RSSI on RX, empty on TX) with a
// variable-length payload. Records are framed with a length prefix so that
// pushes and pops are atomic — a record is either fully present in the
// buffer or not there at all.
package ring

import "sync"

// lengthPrefixSize is the width, in bytes, of the little-endian payload
// length prefix stored ahead of every record's payload bytes.
const lengthPrefixSize = 2

// MaxPayloadSize is the largest payload length representable by the
// 2-byte length prefix.
const MaxPayloadSize = 1<<(8*lengthPrefixSize) - 1

// Buffer is a fixed-capacity FIFO of (sidechannel, payload) records.
// A single Buffer instance is used single-producer/single-consumer from
// opposite directions (e.g. the radio driver pushes RX records while the
// engine pops them, and vice versa for TX) and is safe for that usage
// pattern.
type Buffer struct {
	mu       sync.Mutex
	storage  []byte
	sideSize int // bytes of sidechannel per record
	head     int // next byte to read
	tail     int // next byte to write
	used     int // bytes currently occupied
}

// New creates a Buffer with the given total byte capacity and a fixed
// per-record sidechannel width (2 bytes for RSSI on RX, 0 on TX).
func New(capacity, sidechannelSize int) *Buffer {
	return &Buffer{
		storage:  make([]byte, capacity),
		sideSize: sidechannelSize,
	}
}

// Cap returns the buffer's total byte capacity.
func (b *Buffer) Cap() int {
	return len(b.storage)
}

// IsEmpty returns true if the buffer holds no records.
func (b *Buffer) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used == 0
}

// Free returns the number of unoccupied bytes.
func (b *Buffer) Free() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.storage) - b.used
}

// Push appends a record to the buffer. It rejects (returns false) the push
// if there is insufficient free space for the sidechannel, the length
// prefix, and the payload combined. Pushes never partially write: on
// rejection the buffer is left exactly as it was.
func (b *Buffer) Push(sidechannel, payload []byte) bool {
	if len(sidechannel) != b.sideSize {
		return false
	}
	if len(payload) > MaxPayloadSize {
		return false
	}

	recordSize := b.sideSize + lengthPrefixSize + len(payload)

	b.mu.Lock()
	defer b.mu.Unlock()

	if recordSize > len(b.storage)-b.used {
		return false
	}

	b.writeBytes(sidechannel)
	b.writeUint16(uint16(len(payload)))
	b.writeBytes(payload)
	b.used += recordSize
	return true
}

// PopIfNotEmpty pops the oldest record, returning its sidechannel and
// payload as freshly allocated slices. Returns ok=false without modifying
// the buffer if it is empty.
func (b *Buffer) PopIfNotEmpty() (sidechannel, payload []byte, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.used == 0 {
		return nil, nil, false
	}
	return b.popLocked(), b.popPayloadLocked(), true
}

// popLocked reads the sidechannel bytes of the record at the head of the
// buffer. Must be called with mu held and used > 0.
func (b *Buffer) popLocked() []byte {
	side := make([]byte, b.sideSize)
	b.readBytes(side)
	return side
}

// popPayloadLocked reads the length prefix and payload of the record whose
// sidechannel has already been consumed by popLocked. Must be called with
// mu held.
func (b *Buffer) popPayloadLocked() []byte {
	n := b.readUint16()
	payload := make([]byte, n)
	b.readBytes(payload)
	b.used -= b.sideSize + lengthPrefixSize + int(n)
	return payload
}

// Pop pops the oldest record like PopIfNotEmpty, but panics if the buffer
// is empty. Callers must check IsEmpty (or know by construction) before
// calling Pop, rather than relying on a zero value that could be mistaken
// for a real empty payload.
func (b *Buffer) Pop() (sidechannel, payload []byte) {
	side, data, ok := b.PopIfNotEmpty()
	if !ok {
		panic("ring: Pop called on empty buffer")
	}
	return side, data
}

// PopAndDiscard pops the oldest record and discards it. Returns false if
// the buffer was empty.
func (b *Buffer) PopAndDiscard() bool {
	_, _, ok := b.PopIfNotEmpty()
	return ok
}

func (b *Buffer) writeBytes(p []byte) {
	for _, c := range p {
		b.storage[b.tail] = c
		b.tail = (b.tail + 1) % len(b.storage)
	}
}

func (b *Buffer) writeUint16(v uint16) {
	b.storage[b.tail] = byte(v)
	b.tail = (b.tail + 1) % len(b.storage)
	b.storage[b.tail] = byte(v >> 8)
	b.tail = (b.tail + 1) % len(b.storage)
}

func (b *Buffer) readBytes(out []byte) {
	for i := range out {
		out[i] = b.storage[b.head]
		b.head = (b.head + 1) % len(b.storage)
	}
}

func (b *Buffer) readUint16() uint16 {
	lo := b.storage[b.head]
	b.head = (b.head + 1) % len(b.storage)
	hi := b.storage[b.head]
	b.head = (b.head + 1) % len(b.storage)
	return uint16(lo) | uint16(hi)<<8
}
