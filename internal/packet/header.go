package packet

import "fmt"

// Type is the tagged-union discriminant carried in the low nibble of the
// header byte.
type Type uint8

const (
	TypePingReq       Type = 0x0
	TypePingResp      Type = 0x1
	TypeGetSedReq     Type = 0x2
	TypeGetSedResp    Type = 0x3
	TypeReset         Type = 0x4
	TypeResetCounters Type = 0x5
	TypeText          Type = 0x6
	TypeSetRoute      Type = 0x7
	TypeGetRouteReq   Type = 0x8
	TypeGetRouteResp  Type = 0x9
)

// Header bit layout: low nibble is the Type, bit 4 is AckRequired, bit 5
// is Ack. Bits 6-7 are reserved (always zero on this protocol version).
const (
	headerTypeMask       = 0x0F
	headerAckRequiredBit = 0x10
	headerAckBit         = 0x20
)

// TypeName returns a human-readable name for a message type, for logging.
func TypeName(t Type) string {
	switch t {
	case TypePingReq:
		return "PING_REQ"
	case TypePingResp:
		return "PING_RESP"
	case TypeGetSedReq:
		return "GETSED_REQ"
	case TypeGetSedResp:
		return "GETSED_RESP"
	case TypeReset:
		return "RESET"
	case TypeResetCounters:
		return "RESET_COUNTERS"
	case TypeText:
		return "TEXT"
	case TypeSetRoute:
		return "SETROUTE"
	case TypeGetRouteReq:
		return "GETROUTE_REQ"
	case TypeGetRouteResp:
		return "GETROUTE_RESP"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", t)
	}
}

// HeaderType returns the message type encoded in a header byte.
func HeaderType(h uint8) Type {
	return Type(h & headerTypeMask)
}

// HeaderIsAck reports whether the Ack bit is set.
func HeaderIsAck(h uint8) bool {
	return h&headerAckBit != 0
}

// HeaderIsAckRequired reports whether the AckRequired bit is set.
func HeaderIsAckRequired(h uint8) bool {
	return h&headerAckRequiredBit != 0
}

// BuildHeader packs a type and flag pair into a header byte.
func BuildHeader(t Type, ack, ackRequired bool) uint8 {
	h := uint8(t) & headerTypeMask
	if ack {
		h |= headerAckBit
	}
	if ackRequired {
		h |= headerAckRequiredBit
	}
	return h
}
