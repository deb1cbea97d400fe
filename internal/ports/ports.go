// Package ports declares the narrow capability interfaces the engine
// depends on for everything outside its own control flow: timekeeping,
// host instrumentation, node configuration, logging, and route
// persistence. Each is small and constructor-injected, matching the
// interface-with-handler-setter shape of transport.Transport and the
// Logger-defaulting idiom of device/connection.ManagerConfig.
package ports

import (
	"io"
	"log/slog"

	"github.com/wars-birdhouse/mesh-core/internal/packet"
)

// Clock is a monotonic millisecond time source. Satisfied by
// *internal/clock.Clock.
type Clock interface {
	Millis() uint32
}

// Instrumentation exposes read-only host telemetry and the handful of
// hardware actions (restart, sleep) the engine may trigger. It never
// touches hardware directly — this is an interface boundary only.
type Instrumentation interface {
	SoftwareVersion() uint8
	BatteryVoltageMv() uint16
	PanelVoltageMv() uint16
	TemperatureC10() int16 // degrees C * 10
	HumidityPct10() uint16 // relative humidity % * 10
	DeviceClass() uint8
	DeviceRevision() uint8
	BootCount() uint16
	SleepCount() uint16

	// Restart is terminal: no further Pump calls are guaranteed once it
	// returns.
	Restart()
	RestartRadio()
	Sleep(ms uint32)
}

// Configuration exposes the node's static identity and access-control
// policy.
type Configuration interface {
	Addr() packet.Addr
	Call() packet.CallSign
	BatteryLimitMv() uint16
	BootCount() uint16
	SleepCount() uint16
	LogLevel() int
	CommandMode() int
	CheckPasscode(candidate uint32) bool

	// Passcode returns this node's own administrative passcode, stamped
	// onto locally-originated SETROUTE requests so the operator-facing
	// setrouteremote command never has to carry one: the receiving node's
	// CheckPasscode is what actually gates the action. RESET and
	// RESET_COUNTERS requests carry a passcode supplied by their caller.
	Passcode() uint32
}

// Stream is the byte-oriented sink backing the engine's logger (e.g. a
// serial console). Satisfied by anything implementing io.Writer.
type Stream = io.Writer

// NewStreamLogger wraps a Stream in a slog.Logger using a plain text
// handler, matching the rest of the module's log/slog usage while still
// honoring the Stream port the spec calls for.
func NewStreamLogger(s Stream) *slog.Logger {
	return slog.New(slog.NewTextHandler(s, nil))
}

// RouteStore persists routing-table entries across restarts. The engine
// itself only depends on the in-memory routing.Table; RouteStore is an
// optional seed/snapshot hook for whatever external mechanism (EEPROM,
// flash, a config file) owns durability.
type RouteStore interface {
	Load() (map[packet.Addr]packet.Addr, error)
	Save(routes map[packet.Addr]packet.Addr) error
}
