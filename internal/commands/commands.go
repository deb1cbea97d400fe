// Package commands translates the node's external command surface (ping,
// info, setroute, setrouteremote, text, getroute, reset, resetcounters)
// into calls against an engine.Processor, and provides a string-dispatch
// entry point for a console/admin session.
package commands

import (
	"errors"
	"strconv"
	"strings"

	"github.com/wars-birdhouse/mesh-core/internal/engine"
	"github.com/wars-birdhouse/mesh-core/internal/packet"
)

var errMissingAddr = errors.New("Error: missing address argument")

// Ping sends a PING_REQ toward target, routed via the engine's routing
// table. Returns false if no route or send slot is available.
func Ping(e *engine.Processor, target packet.Addr) bool {
	return e.Send(target, packet.TypePingReq, true, nil)
}

// Info logs this node's instrumentation snapshot (software version,
// battery and panel voltage, boot and sleep counts). It never
// touches the radio: GETSED is the over-the-air equivalent for querying a
// remote node's status.
func Info(e *engine.Processor) {
	inst := e.Instrumentation()
	e.Logger().Info("node info",
		"version", inst.SoftwareVersion(),
		"batteryMv", inst.BatteryVoltageMv(),
		"panelMv", inst.PanelVoltageMv(),
		"bootCount", inst.BootCount(),
		"sleepCount", inst.SleepCount(),
	)
}

// SetRoute updates this node's routing table directly, with no packet
// sent over the radio: this is a purely local administrative action.
func SetRoute(e *engine.Processor, target, nextHop packet.Addr) {
	e.Routes().SetRoute(target, nextHop)
}

// SetRouteRemote sends a SETROUTE packet to node, asking it to install a
// route to target via nextHop. The request carries this node's own
// configured passcode; the receiving node's own Configuration.CheckPasscode
// is what actually gates the update on arrival, so the caller never
// supplies one.
func SetRouteRemote(e *engine.Processor, node, target, nextHop packet.Addr) bool {
	req := packet.SetRouteReq{Passcode: e.Configuration().Passcode(), TargetAddr: target, NextHopAddr: nextHop}
	return e.Send(node, packet.TypeSetRoute, true, req.Encode())
}

// Text sends a TEXT packet carrying message to target.
func Text(e *engine.Processor, target packet.Addr, message string) bool {
	return e.Send(target, packet.TypeText, true, []byte(message))
}

// GetRoute sends a GETROUTE_REQ to node, asking it to report its next hop
// toward target.
func GetRoute(e *engine.Processor, node, target packet.Addr) bool {
	req := packet.GetRouteReq{TargetAddr: target}
	return e.Send(node, packet.TypeGetRouteReq, true, req.Encode())
}

// Reset sends a RESET command to node, gated by passcode.
func Reset(e *engine.Processor, node packet.Addr, passcode uint32) bool {
	req := packet.ResetReq{Passcode: passcode}
	return e.Send(node, packet.TypeReset, true, req.Encode())
}

// ResetCounters sends a RESET_COUNTERS command to node, gated by passcode.
func ResetCounters(e *engine.Processor, node packet.Addr, passcode uint32) bool {
	req := packet.ResetReq{Passcode: passcode}
	return e.Send(node, packet.TypeResetCounters, true, req.Encode())
}

// Dispatch parses a whitespace-separated command line from a console
// session and executes it against e, returning a short reply string.
// Unrecognized verbs and malformed arguments return an "Error: ..." or
// "Unknown command" reply rather than an error value, matching the
// console's forgiving, always-reply style.
func Dispatch(e *engine.Processor, line string) string {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return ""
	}

	switch parts[0] {
	case "ping":
		addr, err := parseAddr(parts, 1)
		if err != nil {
			return err.Error()
		}
		if !Ping(e, addr) {
			return "Error: send failed"
		}
		return "OK"

	case "info":
		Info(e)
		return "OK"

	case "setroute":
		if len(parts) < 3 {
			return "Error: usage: setroute <target> <nextHop>"
		}
		target, err := parseAddr(parts, 1)
		if err != nil {
			return err.Error()
		}
		nextHop, err := parseAddr(parts, 2)
		if err != nil {
			return err.Error()
		}
		SetRoute(e, target, nextHop)
		return "OK"

	case "setrouteremote":
		if len(parts) < 4 {
			return "Error: usage: setrouteremote <node> <target> <nextHop>"
		}
		node, err := parseAddr(parts, 1)
		if err != nil {
			return err.Error()
		}
		target, err := parseAddr(parts, 2)
		if err != nil {
			return err.Error()
		}
		nextHop, err := parseAddr(parts, 3)
		if err != nil {
			return err.Error()
		}
		if !SetRouteRemote(e, node, target, nextHop) {
			return "Error: send failed"
		}
		return "OK"

	case "text":
		if len(parts) < 3 {
			return "Error: usage: text <addr> <message>"
		}
		addr, err := parseAddr(parts, 1)
		if err != nil {
			return err.Error()
		}
		msg := strings.Join(parts[2:], " ")
		if !Text(e, addr, msg) {
			return "Error: send failed"
		}
		return "OK"

	default:
		return "Unknown command"
	}
}

func parseAddr(parts []string, idx int) (packet.Addr, error) {
	if idx >= len(parts) {
		return 0, errMissingAddr
	}
	v, err := strconv.ParseUint(parts[idx], 10, 16)
	if err != nil {
		return 0, errors.New("Error: bad address \"" + parts[idx] + "\"")
	}
	return packet.Addr(v), nil
}
