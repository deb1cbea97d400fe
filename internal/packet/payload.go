package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Fixed wire sizes for each payload variant. All fields are little-endian
// and fixed-width; this protocol carries no variable-length fields except
// TEXT, whose length is simply the remainder of the packet.
const (
	SetRouteReqSize  = 4 + 2 + 2      // passcode, targetAddr, nextHopAddr
	GetRouteReqSize  = 2              // targetAddr
	GetRouteRespSize = 2 + 2 + 4 + 4  // targetAddr, nextHopAddr, txCount, rxCount
	ResetReqSize     = 4              // passcode
	SadRespSize      = 1 + 2 + 2 + 4 + 4 + 2 + 2 + 1 + 2 + 2 + 1 + 1 + 4 + 4 + 4
)

// ErrPayloadTooShort is returned by every Parse* function when the input
// is shorter than the variant's fixed wire size.
var ErrPayloadTooShort = errors.New("packet: payload too short")

// SetRouteReq carries an administrative route update, gated by passcode.
type SetRouteReq struct {
	Passcode    uint32
	TargetAddr  Addr
	NextHopAddr Addr
}

// Encode serializes a SetRouteReq to its wire form.
func (r SetRouteReq) Encode() []byte {
	b := make([]byte, SetRouteReqSize)
	binary.LittleEndian.PutUint32(b[0:4], r.Passcode)
	putAddr(b[4:6], r.TargetAddr)
	putAddr(b[6:8], r.NextHopAddr)
	return b
}

// ParseSetRouteReq decodes a SetRouteReq payload.
func ParseSetRouteReq(b []byte) (SetRouteReq, error) {
	if len(b) < SetRouteReqSize {
		return SetRouteReq{}, fmt.Errorf("%w: SetRouteReq", ErrPayloadTooShort)
	}
	return SetRouteReq{
		Passcode:    binary.LittleEndian.Uint32(b[0:4]),
		TargetAddr:  getAddr(b[4:6]),
		NextHopAddr: getAddr(b[6:8]),
	}, nil
}

// GetRouteReq asks for the current next hop toward an address.
type GetRouteReq struct {
	TargetAddr Addr
}

// Encode serializes a GetRouteReq to its wire form.
func (r GetRouteReq) Encode() []byte {
	b := make([]byte, GetRouteReqSize)
	putAddr(b[0:2], r.TargetAddr)
	return b
}

// ParseGetRouteReq decodes a GetRouteReq payload.
func ParseGetRouteReq(b []byte) (GetRouteReq, error) {
	if len(b) < GetRouteReqSize {
		return GetRouteReq{}, fmt.Errorf("%w: GetRouteReq", ErrPayloadTooShort)
	}
	return GetRouteReq{TargetAddr: getAddr(b[0:2])}, nil
}

// GetRouteResp answers a GetRouteReq. TxPacketCount/RxPacketCount are
// carried on the wire but always encoded as 0: this node does not keep
// per-route packet counters.
type GetRouteResp struct {
	TargetAddr    Addr
	NextHopAddr   Addr
	TxPacketCount uint32
	RxPacketCount uint32
}

// Encode serializes a GetRouteResp to its wire form.
func (r GetRouteResp) Encode() []byte {
	b := make([]byte, GetRouteRespSize)
	putAddr(b[0:2], r.TargetAddr)
	putAddr(b[2:4], r.NextHopAddr)
	binary.LittleEndian.PutUint32(b[4:8], r.TxPacketCount)
	binary.LittleEndian.PutUint32(b[8:12], r.RxPacketCount)
	return b
}

// ParseGetRouteResp decodes a GetRouteResp payload.
func ParseGetRouteResp(b []byte) (GetRouteResp, error) {
	if len(b) < GetRouteRespSize {
		return GetRouteResp{}, fmt.Errorf("%w: GetRouteResp", ErrPayloadTooShort)
	}
	return GetRouteResp{
		TargetAddr:    getAddr(b[0:2]),
		NextHopAddr:   getAddr(b[2:4]),
		TxPacketCount: binary.LittleEndian.Uint32(b[4:8]),
		RxPacketCount: binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

// ResetReq requests a restart or counter reset, gated by passcode.
type ResetReq struct {
	Passcode uint32
}

// Encode serializes a ResetReq to its wire form.
func (r ResetReq) Encode() []byte {
	b := make([]byte, ResetReqSize)
	binary.LittleEndian.PutUint32(b[0:4], r.Passcode)
	return b
}

// ParseResetReq decodes a ResetReq payload.
func ParseResetReq(b []byte) (ResetReq, error) {
	if len(b) < ResetReqSize {
		return ResetReq{}, fmt.Errorf("%w: ResetReq", ErrPayloadTooShort)
	}
	return ResetReq{Passcode: binary.LittleEndian.Uint32(b[0:4])}, nil
}

// SadResp is a "status and diagnostics" response carrying an
// instrumentation snapshot plus uptime and packet counters.
type SadResp struct {
	Version          uint8
	BatteryMv        uint16
	PanelMv          uint16
	UptimeSeconds    uint32
	Time             uint32
	BootCount        uint16
	SleepCount       uint16
	LastHopRssi      int8
	Temp             int16 // degrees C * 10
	Humidity         uint16
	DeviceClass      uint8
	DeviceRevision   uint8
	RxPacketCount    uint32
	BadRxPacketCount uint32
	BadRouteCount    uint32
}

// Encode serializes a SadResp to its wire form.
func (r SadResp) Encode() []byte {
	b := make([]byte, SadRespSize)
	i := 0
	b[i] = r.Version
	i++
	binary.LittleEndian.PutUint16(b[i:i+2], r.BatteryMv)
	i += 2
	binary.LittleEndian.PutUint16(b[i:i+2], r.PanelMv)
	i += 2
	binary.LittleEndian.PutUint32(b[i:i+4], r.UptimeSeconds)
	i += 4
	binary.LittleEndian.PutUint32(b[i:i+4], r.Time)
	i += 4
	binary.LittleEndian.PutUint16(b[i:i+2], r.BootCount)
	i += 2
	binary.LittleEndian.PutUint16(b[i:i+2], r.SleepCount)
	i += 2
	b[i] = byte(r.LastHopRssi)
	i++
	binary.LittleEndian.PutUint16(b[i:i+2], uint16(r.Temp))
	i += 2
	binary.LittleEndian.PutUint16(b[i:i+2], r.Humidity)
	i += 2
	b[i] = r.DeviceClass
	i++
	b[i] = r.DeviceRevision
	i++
	binary.LittleEndian.PutUint32(b[i:i+4], r.RxPacketCount)
	i += 4
	binary.LittleEndian.PutUint32(b[i:i+4], r.BadRxPacketCount)
	i += 4
	binary.LittleEndian.PutUint32(b[i:i+4], r.BadRouteCount)
	i += 4
	return b
}

// ParseSadResp decodes a SadResp payload.
func ParseSadResp(b []byte) (SadResp, error) {
	if len(b) < SadRespSize {
		return SadResp{}, fmt.Errorf("%w: SadResp", ErrPayloadTooShort)
	}
	r := SadResp{}
	i := 0
	r.Version = b[i]
	i++
	r.BatteryMv = binary.LittleEndian.Uint16(b[i : i+2])
	i += 2
	r.PanelMv = binary.LittleEndian.Uint16(b[i : i+2])
	i += 2
	r.UptimeSeconds = binary.LittleEndian.Uint32(b[i : i+4])
	i += 4
	r.Time = binary.LittleEndian.Uint32(b[i : i+4])
	i += 4
	r.BootCount = binary.LittleEndian.Uint16(b[i : i+2])
	i += 2
	r.SleepCount = binary.LittleEndian.Uint16(b[i : i+2])
	i += 2
	r.LastHopRssi = int8(b[i])
	i++
	r.Temp = int16(binary.LittleEndian.Uint16(b[i : i+2]))
	i += 2
	r.Humidity = binary.LittleEndian.Uint16(b[i : i+2])
	i += 2
	r.DeviceClass = b[i]
	i++
	r.DeviceRevision = b[i]
	i++
	r.RxPacketCount = binary.LittleEndian.Uint32(b[i : i+4])
	i += 4
	r.BadRxPacketCount = binary.LittleEndian.Uint32(b[i : i+4])
	i += 4
	r.BadRouteCount = binary.LittleEndian.Uint32(b[i : i+4])
	i += 4
	return r, nil
}
