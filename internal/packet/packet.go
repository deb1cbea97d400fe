package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ProtocolVersion is the only version this engine accepts. Frames carrying
// any other value are rejected as malformed.
const ProtocolVersion uint8 = 1

// HeaderSize is the fixed on-wire size of a Header, in bytes:
// version(1) + header(1) + id(2) + sourceAddr(2) + destAddr(2) +
// originalSourceAddr(2) + finalDestAddr(2) + sourceCall(8) +
// originalSourceCall(8).
const HeaderSize = 1 + 1 + 2 + 2 + 2 + 2 + 2 + CallSignSize + CallSignSize

// MaxSize is the largest a wire-encoded Packet may be (header + payload),
// chosen so a Packet fits in a small stack frame on constrained hardware.
const MaxSize = 256

// MaxPayloadSize is the largest payload a Packet may carry.
const MaxPayloadSize = MaxSize - HeaderSize

var (
	// ErrTooShort is returned when a frame is shorter than HeaderSize.
	ErrTooShort = errors.New("packet: frame shorter than header size")
	// ErrPayloadTooLong is returned when a frame's payload exceeds MaxPayloadSize.
	ErrPayloadTooLong = errors.New("packet: payload exceeds maximum size")
)

// Packet is a single birdhouse mesh message: a fixed Header plus up to
// MaxPayloadSize bytes of type-tagged payload.
type Packet struct {
	Version uint8
	Header  uint8 // packed Type + Ack + AckRequired, see header.go

	ID uint16

	SourceAddr Addr // this hop's sender
	DestAddr   Addr // this hop's intended receiver (next hop)

	OriginalSourceAddr Addr // preserved end-to-end across forwarding
	FinalDestAddr      Addr // preserved end-to-end across forwarding

	SourceCall         CallSign
	OriginalSourceCall CallSign

	Payload []byte
}

// Type returns the message type encoded in the header byte.
func (p *Packet) Type() Type { return HeaderType(p.Header) }

// IsAck reports whether this packet is an acknowledgement frame.
func (p *Packet) IsAck() bool { return HeaderIsAck(p.Header) }

// IsAckRequired reports whether the sender is expecting an ACK in reply.
func (p *Packet) IsAckRequired() bool { return HeaderIsAckRequired(p.Header) }

// Clone returns a deep copy of the packet, safe to mutate (e.g. for
// forwarding) without affecting the original.
func (p *Packet) Clone() *Packet {
	clone := *p
	if len(p.Payload) > 0 {
		clone.Payload = make([]byte, len(p.Payload))
		copy(clone.Payload, p.Payload)
	}
	return &clone
}

// ReadFrom decodes a Packet from raw little-endian wire bytes.
func (p *Packet) ReadFrom(data []byte) error {
	if len(data) < HeaderSize {
		return ErrTooShort
	}
	if len(data)-HeaderSize > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(data)-HeaderSize)
	}

	i := 0
	p.Version = data[i]
	i++
	p.Header = data[i]
	i++
	p.ID = binary.LittleEndian.Uint16(data[i : i+2])
	i += 2
	p.SourceAddr = getAddr(data[i : i+2])
	i += 2
	p.DestAddr = getAddr(data[i : i+2])
	i += 2
	p.OriginalSourceAddr = getAddr(data[i : i+2])
	i += 2
	p.FinalDestAddr = getAddr(data[i : i+2])
	i += 2
	copy(p.SourceCall[:], data[i:i+CallSignSize])
	i += CallSignSize
	copy(p.OriginalSourceCall[:], data[i:i+CallSignSize])
	i += CallSignSize

	payloadLen := len(data) - i
	p.Payload = make([]byte, payloadLen)
	copy(p.Payload, data[i:])
	return nil
}

// WriteTo encodes the packet to raw little-endian wire bytes.
func (p *Packet) WriteTo() []byte {
	data := make([]byte, HeaderSize+len(p.Payload))
	i := 0
	data[i] = p.Version
	i++
	data[i] = p.Header
	i++
	binary.LittleEndian.PutUint16(data[i:i+2], p.ID)
	i += 2
	putAddr(data[i:i+2], p.SourceAddr)
	i += 2
	putAddr(data[i:i+2], p.DestAddr)
	i += 2
	putAddr(data[i:i+2], p.OriginalSourceAddr)
	i += 2
	putAddr(data[i:i+2], p.FinalDestAddr)
	i += 2
	copy(data[i:i+CallSignSize], p.SourceCall[:])
	i += CallSignSize
	copy(data[i:i+CallSignSize], p.OriginalSourceCall[:])
	i += CallSignSize
	copy(data[i:], p.Payload)
	return data
}

// Len returns the wire-encoded length of this packet.
func (p *Packet) Len() int {
	return HeaderSize + len(p.Payload)
}

// SetupAckFor builds the ACK frame for a received packet that requested
// one. The Ack bit is set, AckRequired is
// clear, ID is copied from the request, DestAddr is the request's
// SourceAddr (a hop-local reply, not an end-to-end route), and
// SourceAddr/SourceCall identify this node.
func SetupAckFor(received *Packet, selfAddr Addr, selfCall CallSign) *Packet {
	return &Packet{
		Version:            ProtocolVersion,
		Header:             BuildHeader(received.Type(), true, false),
		ID:                 received.ID,
		SourceAddr:         selfAddr,
		DestAddr:           received.SourceAddr,
		OriginalSourceAddr: selfAddr,
		FinalDestAddr:      received.SourceAddr,
		SourceCall:         selfCall,
		OriginalSourceCall: selfCall,
	}
}

// SetupResponseFor builds a locally-originated response packet (PING_RESP,
// GETSED_RESP, GETROUTE_RESP) addressed back toward a request's original
// sender. firstHop is the routing table's next hop toward
// received.OriginalSourceAddr. The caller is responsible for assigning a
// fresh ID and the response payload.
func SetupResponseFor(received *Packet, respType Type, firstHop Addr, selfAddr Addr, selfCall CallSign, ackRequired bool) *Packet {
	return &Packet{
		Version:            ProtocolVersion,
		Header:             BuildHeader(respType, false, ackRequired),
		SourceAddr:         selfAddr,
		DestAddr:           firstHop,
		OriginalSourceAddr: selfAddr,
		FinalDestAddr:      received.OriginalSourceAddr,
		SourceCall:         selfCall,
		OriginalSourceCall: selfCall,
	}
}
