package packet

import (
	"bytes"
	"testing"
)

func mustCall(t *testing.T, s string) CallSign {
	t.Helper()
	c, err := ParseCallSign(s)
	if err != nil {
		t.Fatalf("ParseCallSign(%q): %v", s, err)
	}
	return c
}

func TestCallSignRoundTrip(t *testing.T) {
	c := mustCall(t, "KC1FSZ")
	if got := c.String(); got != "KC1FSZ" {
		t.Errorf("String() = %q, want KC1FSZ", got)
	}
	if len(c) != CallSignSize {
		t.Errorf("len(c) = %d, want %d", len(c), CallSignSize)
	}
}

func TestCallSignTooLong(t *testing.T) {
	if _, err := ParseCallSign("WAYTOOLONGCALL"); err == nil {
		t.Error("expected error for oversized call sign")
	}
}

func TestHeaderBitPacking(t *testing.T) {
	h := BuildHeader(TypeText, true, false)
	if HeaderType(h) != TypeText {
		t.Errorf("HeaderType = %v, want TypeText", HeaderType(h))
	}
	if !HeaderIsAck(h) {
		t.Error("expected ack bit set")
	}
	if HeaderIsAckRequired(h) {
		t.Error("expected ack-required bit clear")
	}
}

func TestPacketWriteReadRoundTrip(t *testing.T) {
	p := &Packet{
		Version:            ProtocolVersion,
		Header:             BuildHeader(TypeText, false, true),
		ID:                 0xBEEF,
		SourceAddr:         1,
		DestAddr:           3,
		OriginalSourceAddr: 1,
		FinalDestAddr:      7,
		SourceCall:         mustCall(t, "KC1FSZ"),
		OriginalSourceCall: mustCall(t, "KC1FSZ"),
		Payload:            []byte("Hello World!"),
	}

	wire := p.WriteTo()
	if len(wire) != p.Len() {
		t.Fatalf("WriteTo() length = %d, want %d", len(wire), p.Len())
	}

	var got Packet
	if err := got.ReadFrom(wire); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	if got.ID != p.ID || got.SourceAddr != p.SourceAddr || got.DestAddr != p.DestAddr ||
		got.OriginalSourceAddr != p.OriginalSourceAddr || got.FinalDestAddr != p.FinalDestAddr {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, p)
	}
	if !bytes.Equal(got.Payload, p.Payload) {
		t.Errorf("payload mismatch: got %q, want %q", got.Payload, p.Payload)
	}
	if got.Type() != TypeText || !got.IsAckRequired() || got.IsAck() {
		t.Errorf("header flags mismatch after round trip")
	}
}

func TestReadFromTooShort(t *testing.T) {
	var p Packet
	if err := p.ReadFrom(make([]byte, HeaderSize-1)); err != ErrTooShort {
		t.Errorf("ReadFrom short frame: err = %v, want ErrTooShort", err)
	}
}

func TestClone(t *testing.T) {
	p := &Packet{Payload: []byte("abc")}
	c := p.Clone()
	c.Payload[0] = 'z'
	if p.Payload[0] == 'z' {
		t.Error("Clone should deep-copy the payload")
	}
}

func TestSetupAckFor(t *testing.T) {
	self := Addr(1)
	selfCall := mustCall(t, "KC1FSZ")
	req := &Packet{
		Header:     BuildHeader(TypePingReq, false, true),
		ID:         42,
		SourceAddr: 3,
		DestAddr:   1,
	}

	ack := SetupAckFor(req, self, selfCall)

	if !ack.IsAck() || ack.IsAckRequired() {
		t.Error("ACK must have Ack set and AckRequired clear")
	}
	if ack.ID != req.ID {
		t.Errorf("ack.ID = %d, want %d", ack.ID, req.ID)
	}
	if ack.DestAddr != req.SourceAddr {
		t.Errorf("ack.DestAddr = %v, want %v", ack.DestAddr, req.SourceAddr)
	}
	if ack.SourceAddr != self {
		t.Errorf("ack.SourceAddr = %v, want %v", ack.SourceAddr, self)
	}
}

func TestAddrClassification(t *testing.T) {
	cases := []struct {
		addr      Addr
		ordinary  bool
		special   bool
	}{
		{0, false, false},
		{1, true, false},
		{63, true, false},
		{64, false, false},
		{0xFFF0, false, true},
		{0xFFFE, false, true},
		{0xFFFF, false, true},
	}
	for _, c := range cases {
		if got := c.addr.IsOrdinary(); got != c.ordinary {
			t.Errorf("Addr(%#x).IsOrdinary() = %v, want %v", uint16(c.addr), got, c.ordinary)
		}
		if got := c.addr.IsSpecial(); got != c.special {
			t.Errorf("Addr(%#x).IsSpecial() = %v, want %v", uint16(c.addr), got, c.special)
		}
	}
}
