// Package packet defines the birdhouse mesh wire format: the fixed Header,
// the addressing rules, call signs, and the payload variants carried by
// each message type.
//
// Layout and accessor style follow core/codec/packet.go's masked-bitfield
// approach (route/type/version packed into a single header byte), adapted
// to this protocol's own header fields.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Addr is a 16-bit node address.
type Addr uint16

const (
	// AddrUnassigned marks an address as invalid or not yet configured.
	AddrUnassigned Addr = 0x0000
	// AddrBroadcast is accepted by every node and is never forwarded.
	AddrBroadcast Addr = 0xFFFF
	// AddrSpecialMin is the first address in the reserved direct-addressing
	// range, where next-hop == final destination.
	AddrSpecialMin Addr = 0xFFF0
	// AddrSpecialMax is the last address in the reserved direct-addressing
	// range (inclusive), one below AddrBroadcast.
	AddrSpecialMax Addr = 0xFFFE
	// AddrNodeMax is the highest ordinary, routing-table-addressable node
	// address.
	AddrNodeMax Addr = 63

	// NoRoute is the routing table's "no mapping" sentinel. It sits just
	// above the ordinary node range so it can never equal a legal
	// transmitted destination: ordinary addresses top out at AddrNodeMax
	// and the special/broadcast range starts at AddrSpecialMin, leaving
	// this value permanently unused on the wire.
	NoRoute Addr = AddrNodeMax + 1
)

// IsSpecial reports whether addr falls in the reserved direct-addressing
// range (including broadcast), where a node routes to itself.
func (a Addr) IsSpecial() bool {
	return a >= AddrSpecialMin
}

// IsOrdinary reports whether addr is a normal, routing-table-addressable
// node address (1..=AddrNodeMax).
func (a Addr) IsOrdinary() bool {
	return a >= 1 && a <= AddrNodeMax
}

// String renders the address for logging.
func (a Addr) String() string {
	switch a {
	case AddrUnassigned:
		return "unassigned"
	case AddrBroadcast:
		return "broadcast"
	default:
		return fmt.Sprintf("%d", uint16(a))
	}
}

// CallSignSize is the fixed, space-padded width of a CallSign.
const CallSignSize = 8

// CallSign is a fixed-width, space-padded ASCII amateur radio call sign.
// It has no null terminator; unused trailing bytes are ASCII spaces.
type CallSign [CallSignSize]byte

// ErrCallSignTooLong is returned by ParseCallSign when the input exceeds
// CallSignSize bytes.
var ErrCallSignTooLong = errors.New("call sign exceeds 8 bytes")

// ParseCallSign builds a space-padded CallSign from a plain string.
func ParseCallSign(s string) (CallSign, error) {
	var c CallSign
	if len(s) > CallSignSize {
		return c, fmt.Errorf("%q: %w", s, ErrCallSignTooLong)
	}
	for i := range c {
		c[i] = ' '
	}
	copy(c[:], s)
	return c, nil
}

// String returns the call sign with trailing padding trimmed.
func (c CallSign) String() string {
	end := len(c)
	for end > 0 && c[end-1] == ' ' {
		end--
	}
	return string(c[:end])
}

// putAddr writes a as little-endian into dst[0:2].
func putAddr(dst []byte, a Addr) {
	binary.LittleEndian.PutUint16(dst, uint16(a))
}

// getAddr reads a little-endian address from src[0:2].
func getAddr(src []byte) Addr {
	return Addr(binary.LittleEndian.Uint16(src))
}
