// Package engine implements the MessageProcessor: the receive classifier,
// deduplicator, forwarder, local request/response handler, and ACK
// synthesizer that sits at the center of the birdhouse mesh node.
//
// Pump drains the RX queue through an ordered gate pipeline (framing,
// version, address filter, ACK fast path, ACK synthesis, dedup,
// forward-or-local dispatch) and then advances the OPM's retry state.
package engine

import (
	"encoding/binary"
	"errors"
	"log/slog"

	"github.com/wars-birdhouse/mesh-core/internal/dedup"
	"github.com/wars-birdhouse/mesh-core/internal/opm"
	"github.com/wars-birdhouse/mesh-core/internal/packet"
	"github.com/wars-birdhouse/mesh-core/internal/ports"
	"github.com/wars-birdhouse/mesh-core/internal/ring"
	"github.com/wars-birdhouse/mesh-core/internal/routing"
	"github.com/wars-birdhouse/mesh-core/internal/telemetry"
)

// Errors used only for internal branching and logging; none of them ever
// propagate out of Pump.
var (
	ErrBadFraming   = errors.New("engine: frame shorter than header size")
	ErrBadVersion   = errors.New("engine: unsupported protocol version")
	ErrNoRoute      = errors.New("engine: no route")
	ErrUnauthorized = errors.New("engine: bad passcode")
	ErrQueueFull    = errors.New("engine: outbound queue full")
)

// rxSidechannelSize is the width of the RSSI sidechannel carried with each
// RX record.
const rxSidechannelSize = 2

// Config configures a Processor.
type Config struct {
	SelfAddr packet.Addr
	SelfCall packet.CallSign

	Clock           ports.Clock
	Routes          routing.Table
	Instrumentation ports.Instrumentation
	Configuration   ports.Configuration

	RX *ring.Buffer // 2-byte RSSI sidechannel
	TX *ring.Buffer // no sidechannel

	// OPM/Dedup/Counters may be supplied for shared state across
	// Processor instances (e.g. in tests); nil uses fresh defaults.
	OPM      *opm.Manager
	Dedup    *dedup.Report
	Counters *telemetry.Counters

	// TxTimeoutMs/TxRetryMs configure the OPM built when OPM is nil; no
	// default is applied to either.
	TxTimeoutMs uint32
	TxRetryMs   uint32

	Logger *slog.Logger

	// LogStream backs Logger when Logger is nil: the engine wraps it via
	// ports.NewStreamLogger. Ignored if Logger is set. Both nil falls
	// back to slog.Default().
	LogStream ports.Stream
}

// Processor is the MessageProcessor.
type Processor struct {
	cfg       Config
	log       *slog.Logger
	opm       *opm.Manager
	dedup     *dedup.Report
	counters  *telemetry.Counters
	bootMs    uint32
}

// New creates a MessageProcessor.
func New(cfg Config) *Processor {
	logger := cfg.Logger
	if logger == nil && cfg.LogStream != nil {
		logger = ports.NewStreamLogger(cfg.LogStream)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.WithGroup("engine")

	o := cfg.OPM
	if o == nil {
		o = opm.New(cfg.TX, opm.Config{
			TxTimeoutMs: cfg.TxTimeoutMs,
			TxRetryMs:   cfg.TxRetryMs,
			Logger:      logger,
		})
	}
	d := cfg.Dedup
	if d == nil {
		d = dedup.New()
	}
	c := cfg.Counters
	if c == nil {
		c = &telemetry.Counters{}
	}

	p := &Processor{cfg: cfg, log: logger, opm: o, dedup: d, counters: c}
	p.bootMs = cfg.Clock.Millis()
	return p
}

// Routes exposes the routing table for command-surface callers (e.g. a
// local `setroute` command, which mutates the table directly without
// sending a packet).
func (p *Processor) Routes() routing.Table { return p.cfg.Routes }

// Logger exposes the processor's logger for command-surface callers that
// only need to log (e.g. `info`).
func (p *Processor) Logger() *slog.Logger { return p.log }

// Instrumentation exposes the injected instrumentation port.
func (p *Processor) Instrumentation() ports.Instrumentation { return p.cfg.Instrumentation }

// Configuration exposes the injected configuration port.
func (p *Processor) Configuration() ports.Configuration { return p.cfg.Configuration }

// Counters exposes a read-only snapshot of the processor's packet counters.
func (p *Processor) Counters() telemetry.Snapshot { return p.counters.Snapshot() }

// PendingCount returns the number of outbound packets awaiting ACK.
func (p *Processor) PendingCount() int { return p.opm.GetPendingCount() }

// Pump drains RX to empty, processing each frame in arrival order, then
// advances the OPM's retry/timeout state. This ordering guarantees that
// ACKs received in one radio window update the OPM before any retry
// decision is made for that same tick.
func (p *Processor) Pump() {
	now := p.cfg.Clock.Millis()

	for {
		side, payload, ok := p.cfg.RX.PopIfNotEmpty()
		if !ok {
			break
		}
		var rssi int16
		if len(side) >= rxSidechannelSize {
			rssi = int16(binary.LittleEndian.Uint16(side))
		}
		p.process(rssi, payload, now)
	}

	p.opm.Pump(now)
}

// process classifies and dispatches a single received frame.
func (p *Processor) process(rssi int16, raw []byte, now uint32) {
	var pkt packet.Packet
	if err := pkt.ReadFrom(raw); err != nil {
		p.counters.BadRxPacketCount.Add(1)
		p.log.Debug("ERR: Bad message", "error", err, "len", len(raw))
		return
	}
	if pkt.Version != packet.ProtocolVersion {
		p.counters.BadRxPacketCount.Add(1)
		p.log.Debug("ERR: Bad message", "error", ErrBadVersion, "version", pkt.Version)
		return
	}
	if pkt.DestAddr != packet.AddrBroadcast && pkt.DestAddr != p.cfg.SelfAddr {
		// Overheard traffic: not an error, dropped silently.
		return
	}

	p.counters.RxPacketCount.Add(1)
	p.counters.LastRxTimeMs.Store(now)

	if pkt.IsAck() {
		p.opm.ProcessAck(&pkt)
		return
	}

	if pkt.IsAckRequired() {
		ack := packet.SetupAckFor(&pkt, p.cfg.SelfAddr, p.cfg.SelfCall)
		p.transmitIfPossible(ack, now)
	}

	// Dedup runs after ACK synthesis: duplicates arrive precisely when our
	// ACK was lost, so we must re-ACK even if we drop the rest here.
	if p.dedup.HasSeen(pkt.OriginalSourceAddr, pkt.ID, now) {
		return
	}

	if pkt.FinalDestAddr != p.cfg.SelfAddr {
		p.forward(&pkt, now)
		return
	}

	p.handleLocal(&pkt, rssi, now)
}

func (p *Processor) forward(pkt *packet.Packet, now uint32) {
	nh := p.cfg.Routes.NextHop(pkt.FinalDestAddr)
	if nh == packet.NoRoute || nh == packet.AddrUnassigned {
		p.counters.BadRouteCount.Add(1)
		p.log.Debug("ERR: No route", "finalDest", pkt.FinalDestAddr.String())
		return
	}

	fwd := pkt.Clone()
	fwd.ID = p.counters.NextID()
	fwd.DestAddr = nh
	fwd.SourceAddr = p.cfg.SelfAddr
	p.transmitIfPossible(fwd, now)
}

// responseRequiresRoute lists the types whose local handler must reply to
// the original sender, and therefore needs a return route before
// dispatching.
func responseRequiresRoute(t packet.Type) bool {
	switch t {
	case packet.TypePingReq, packet.TypeGetSedReq, packet.TypeGetRouteReq:
		return true
	default:
		return false
	}
}

func (p *Processor) handleLocal(pkt *packet.Packet, rssi int16, now uint32) {
	t := pkt.Type()

	var firstHop packet.Addr
	if responseRequiresRoute(t) {
		firstHop = p.cfg.Routes.NextHop(pkt.OriginalSourceAddr)
		if firstHop == packet.NoRoute || firstHop == packet.AddrUnassigned {
			p.counters.BadRouteCount.Add(1)
			p.log.Debug("ERR: No route", "originalSource", pkt.OriginalSourceAddr.String())
			return
		}
	}

	switch t {
	case packet.TypePingReq:
		resp := packet.SetupResponseFor(pkt, packet.TypePingResp, firstHop, p.cfg.SelfAddr, p.cfg.SelfCall, false)
		resp.ID = p.counters.NextID()
		p.transmitIfPossible(resp, now)

	case packet.TypePingResp:
		p.log.Info("ping response", "node", pkt.OriginalSourceAddr.String(), "call", pkt.OriginalSourceCall.String())

	case packet.TypeGetSedReq:
		resp := packet.SetupResponseFor(pkt, packet.TypeGetSedResp, firstHop, p.cfg.SelfAddr, p.cfg.SelfCall, false)
		resp.ID = p.counters.NextID()
		resp.Payload = p.buildSadResp(rssi, now).Encode()
		p.transmitIfPossible(resp, now)

	case packet.TypeGetSedResp:
		sed, err := packet.ParseSadResp(pkt.Payload)
		if err != nil {
			p.log.Debug("ERR: Bad message", "error", err)
			return
		}
		p.log.Info("status response", "node", pkt.OriginalSourceAddr.String(), "call", pkt.OriginalSourceCall.String(), "batteryMv", sed.BatteryMv, "uptimeSeconds", sed.UptimeSeconds)

	case packet.TypeReset:
		p.handlePasscodeCommand(pkt, packet.ResetReqSize, func(req packet.ResetReq) {
			p.cfg.Instrumentation.Restart()
		})

	case packet.TypeResetCounters:
		p.handlePasscodeCommand(pkt, packet.ResetReqSize, func(req packet.ResetReq) {
			p.counters.Reset()
		})

	case packet.TypeText:
		p.handleText(pkt)

	case packet.TypeSetRoute:
		req, err := packet.ParseSetRouteReq(pkt.Payload)
		if err != nil {
			p.counters.BadRxPacketCount.Add(1)
			p.log.Debug("ERR: Bad message", "error", err)
			return
		}
		if !p.cfg.Configuration.CheckPasscode(req.Passcode) {
			p.log.Info("ERR: Unauthorized", "type", packet.TypeName(packet.TypeSetRoute))
			return
		}
		p.cfg.Routes.SetRoute(req.TargetAddr, req.NextHopAddr)

	case packet.TypeGetRouteReq:
		req, err := packet.ParseGetRouteReq(pkt.Payload)
		if err != nil {
			p.counters.BadRxPacketCount.Add(1)
			p.log.Debug("ERR: Bad message", "error", err)
			return
		}
		resp := packet.SetupResponseFor(pkt, packet.TypeGetRouteResp, firstHop, p.cfg.SelfAddr, p.cfg.SelfCall, false)
		resp.ID = p.counters.NextID()
		resp.Payload = packet.GetRouteResp{
			TargetAddr:  req.TargetAddr,
			NextHopAddr: p.cfg.Routes.NextHop(req.TargetAddr),
		}.Encode()
		p.transmitIfPossible(resp, now)

	case packet.TypeGetRouteResp:
		resp, err := packet.ParseGetRouteResp(pkt.Payload)
		if err != nil {
			p.log.Debug("ERR: Bad message", "error", err)
			return
		}
		p.log.Info("route response", "target", resp.TargetAddr.String(), "nextHop", resp.NextHopAddr.String())

	default:
		p.log.Info("Unknown message", "type", packet.TypeName(t))
	}
}

// handlePasscodeCommand implements the shared length-check/passcode/act
// pattern for RESET and RESET_COUNTERS.
func (p *Processor) handlePasscodeCommand(pkt *packet.Packet, minLen int, act func(packet.ResetReq)) {
	if len(pkt.Payload) < minLen {
		p.counters.BadRxPacketCount.Add(1)
		p.log.Debug("ERR: Bad message", "error", ErrBadFraming)
		return
	}
	req, err := packet.ParseResetReq(pkt.Payload)
	if err != nil {
		p.counters.BadRxPacketCount.Add(1)
		p.log.Debug("ERR: Bad message", "error", err)
		return
	}
	if !p.cfg.Configuration.CheckPasscode(req.Passcode) {
		p.log.Info("ERR: Unauthorized", "type", packet.TypeName(pkt.Type()))
		return
	}
	act(req)
}

// handleText logs a TEXT payload in one of two formats depending on the
// node's configured command mode.
func (p *Processor) handleText(pkt *packet.Packet) {
	msg := string(pkt.Payload)
	if p.cfg.Configuration.CommandMode() != 0 {
		p.log.Info("text", "from", pkt.OriginalSourceCall.String(), "cmd", msg)
	} else {
		p.log.Info("text", "from", pkt.OriginalSourceCall.String(), "message", msg)
	}
}

func (p *Processor) buildSadResp(rssi int16, now uint32) packet.SadResp {
	inst := p.cfg.Instrumentation
	snap := p.counters.Snapshot()
	return packet.SadResp{
		Version:          inst.SoftwareVersion(),
		BatteryMv:        inst.BatteryVoltageMv(),
		PanelMv:          inst.PanelVoltageMv(),
		UptimeSeconds:    (now - p.bootMs) / 1000,
		Time:             now,
		BootCount:        inst.BootCount(),
		SleepCount:       inst.SleepCount(),
		LastHopRssi:      int8(rssi),
		Temp:             inst.TemperatureC10(),
		Humidity:         inst.HumidityPct10(),
		DeviceClass:      inst.DeviceClass(),
		DeviceRevision:   inst.DeviceRevision(),
		RxPacketCount:    snap.RxPacketCount,
		BadRxPacketCount: snap.BadRxPacketCount,
		BadRouteCount:    snap.BadRouteCount,
	}
}

// TransmitIfPossible enqueues pkt for transmission, stamping SourceAddr and
// SourceCall as this node so every
// transmitted packet carries this node as its sourceAddr. If DestAddr is this node, the
// packet loops back onto RX instead of going out over the radio — that loopback is NOT drained within the current call; the
// outer Pump loop picks it up on its next iteration.
//
// This is the entry point the command surface (ping, setroute, text, ...)
// uses to inject synthesized packets, and the one local handlers and the
// forwarding path use internally.
func (p *Processor) TransmitIfPossible(pkt *packet.Packet) bool {
	return p.transmitIfPossible(pkt, p.cfg.Clock.Millis())
}

func (p *Processor) transmitIfPossible(pkt *packet.Packet, now uint32) bool {
	pkt.SourceAddr = p.cfg.SelfAddr
	pkt.SourceCall = p.cfg.SelfCall

	if pkt.DestAddr == p.cfg.SelfAddr {
		side := make([]byte, rxSidechannelSize) // rssi = 0 for loopback
		ok := p.cfg.RX.Push(side, pkt.WriteTo())
		if !ok {
			p.log.Info("ERR: Full, no loopback", "type", packet.TypeName(pkt.Type()))
		}
		return ok
	}

	ok := p.opm.ScheduleTransmitIfPossible(pkt, now)
	if !ok {
		p.log.Info("ERR: Full, no send", "type", packet.TypeName(pkt.Type()))
	}
	return ok
}

// Send builds and enqueues a locally-originated packet addressed to
// finalDest, resolving the next hop via the routing table. This is the
// shared implementation behind the ping/setrouteremote/text commands.
func (p *Processor) Send(finalDest packet.Addr, t packet.Type, ackRequired bool, payload []byte) bool {
	nh := p.cfg.Routes.NextHop(finalDest)
	if nh == packet.NoRoute || nh == packet.AddrUnassigned {
		p.counters.BadRouteCount.Add(1)
		p.log.Debug("ERR: No route", "finalDest", finalDest.String())
		return false
	}

	pkt := &packet.Packet{
		Version:            packet.ProtocolVersion,
		Header:             packet.BuildHeader(t, false, ackRequired),
		ID:                 p.counters.NextID(),
		SourceAddr:         p.cfg.SelfAddr,
		DestAddr:           nh,
		OriginalSourceAddr: p.cfg.SelfAddr,
		FinalDestAddr:      finalDest,
		SourceCall:         p.cfg.SelfCall,
		OriginalSourceCall: p.cfg.SelfCall,
		Payload:            payload,
	}
	return p.TransmitIfPossible(pkt)
}
