package commands

import (
	"log/slog"
	"testing"

	"github.com/wars-birdhouse/mesh-core/internal/clock"
	"github.com/wars-birdhouse/mesh-core/internal/engine"
	"github.com/wars-birdhouse/mesh-core/internal/packet"
	"github.com/wars-birdhouse/mesh-core/internal/ring"
	"github.com/wars-birdhouse/mesh-core/internal/routing"
)

type fakeInstrumentation struct{}

func (fakeInstrumentation) SoftwareVersion() uint8    { return 1 }
func (fakeInstrumentation) BatteryVoltageMv() uint16  { return 4100 }
func (fakeInstrumentation) PanelVoltageMv() uint16    { return 5000 }
func (fakeInstrumentation) TemperatureC10() int16     { return 205 }
func (fakeInstrumentation) HumidityPct10() uint16     { return 410 }
func (fakeInstrumentation) DeviceClass() uint8        { return 1 }
func (fakeInstrumentation) DeviceRevision() uint8     { return 1 }
func (fakeInstrumentation) BootCount() uint16         { return 1 }
func (fakeInstrumentation) SleepCount() uint16        { return 0 }
func (fakeInstrumentation) Restart()                  {}
func (fakeInstrumentation) RestartRadio()              {}
func (fakeInstrumentation) Sleep(ms uint32)            {}

type fakeConfiguration struct{ passcode uint32 }

func (c fakeConfiguration) Addr() packet.Addr             { return 1 }
func (c fakeConfiguration) Call() packet.CallSign         { return packet.CallSign{} }
func (c fakeConfiguration) BatteryLimitMv() uint16        { return 3300 }
func (c fakeConfiguration) BootCount() uint16             { return 1 }
func (c fakeConfiguration) SleepCount() uint16            { return 0 }
func (c fakeConfiguration) LogLevel() int                 { return 0 }
func (c fakeConfiguration) CommandMode() int               { return 0 }
func (c fakeConfiguration) CheckPasscode(candidate uint32) bool { return candidate == c.passcode }
func (c fakeConfiguration) Passcode() uint32                    { return c.passcode }

type testHarness struct {
	p  *engine.Processor
	tx *ring.Buffer
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	cl := clock.New()
	tx := ring.New(4096, 0)
	p := engine.New(engine.Config{
		SelfAddr:        1,
		SelfCall:        packet.CallSign{'K', 'X', '1', ' ', ' ', ' ', ' ', ' '},
		Clock:           cl,
		Routes:          routing.New(),
		Instrumentation: fakeInstrumentation{},
		Configuration:   fakeConfiguration{passcode: 1234},
		RX:              ring.New(4096, 2),
		TX:              tx,
		TxTimeoutMs:     10_000,
		TxRetryMs:       1_000,
		Logger:          slog.New(slog.NewTextHandler(discard{}, nil)),
	})
	return &testHarness{p: p, tx: tx}
}

func newTestProcessor(t *testing.T) *engine.Processor {
	t.Helper()
	return newHarness(t).p
}

func drainOne(t *testing.T, buf *ring.Buffer) *packet.Packet {
	t.Helper()
	_, payload, ok := buf.PopIfNotEmpty()
	if !ok {
		t.Fatal("expected a packet on the buffer, found none")
	}
	var p packet.Packet
	if err := p.ReadFrom(payload); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	return &p
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestPingDispatchNoRoute(t *testing.T) {
	e := newTestProcessor(t)
	if reply := Dispatch(e, "ping 9"); reply != "Error: send failed" {
		t.Errorf("Dispatch(ping) = %q, want send-failed reply with no route", reply)
	}
}

func TestPingDispatchWithRoute(t *testing.T) {
	e := newTestProcessor(t)
	e.Routes().SetRoute(7, 3)
	if reply := Dispatch(e, "ping 7"); reply != "OK" {
		t.Errorf("Dispatch(ping) = %q, want OK", reply)
	}
	if e.PendingCount() != 1 {
		t.Errorf("PendingCount() = %d, want 1 pending ack-required ping", e.PendingCount())
	}
}

func TestSetRouteLocalDispatch(t *testing.T) {
	e := newTestProcessor(t)
	if reply := Dispatch(e, "setroute 8 3"); reply != "OK" {
		t.Fatalf("Dispatch(setroute) = %q, want OK", reply)
	}
	if got := e.Routes().NextHop(8); got != 3 {
		t.Errorf("NextHop(8) = %d, want 3", got)
	}
}

func TestSetRouteRemoteDispatch(t *testing.T) {
	e := newTestProcessor(t)
	e.Routes().SetRoute(5, 5) // self-route is legal (special-direct isn't; this is an ordinary entry)
	if reply := Dispatch(e, "setrouteremote 5 8 3"); reply != "OK" {
		t.Errorf("Dispatch(setrouteremote) = %q, want OK", reply)
	}
}

// Scenario 4: `setrouteremote <node> <target> <nextHop>` sends a SETROUTE
// packet to node carrying this node's own configured passcode, with no
// passcode argument on the command line itself.
func TestScenario4_RemoteSetRouteViaCLI(t *testing.T) {
	h := newHarness(t)
	h.p.Routes().SetRoute(7, 3)

	if reply := Dispatch(h.p, "setrouteremote 7 1 4"); reply != "OK" {
		t.Fatalf("Dispatch(setrouteremote) = %q, want OK", reply)
	}

	tx := drainOne(t, h.tx)
	if tx.Type() != packet.TypeSetRoute {
		t.Errorf("Type() = %v, want TypeSetRoute", tx.Type())
	}
	if tx.DestAddr != 3 {
		t.Errorf("DestAddr = %d, want 3 (next hop)", tx.DestAddr)
	}
	if tx.SourceAddr != 1 {
		t.Errorf("SourceAddr = %d, want 1 (self)", tx.SourceAddr)
	}

	req, err := packet.ParseSetRouteReq(tx.Payload)
	if err != nil {
		t.Fatalf("ParseSetRouteReq: %v", err)
	}
	if req.TargetAddr != 1 || req.NextHopAddr != 4 {
		t.Errorf("SetRouteReq = %+v, want target=1 nextHop=4", req)
	}
	if req.Passcode != 1234 {
		t.Errorf("Passcode = %d, want 1234 (this node's own configured passcode)", req.Passcode)
	}
}

func TestTextDispatchMultiWordMessage(t *testing.T) {
	e := newTestProcessor(t)
	e.Routes().SetRoute(7, 3)
	if reply := Dispatch(e, "text 7 hello there friend"); reply != "OK" {
		t.Errorf("Dispatch(text) = %q, want OK", reply)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	e := newTestProcessor(t)
	if reply := Dispatch(e, "bogus"); reply != "Unknown command" {
		t.Errorf("Dispatch(bogus) = %q, want Unknown command", reply)
	}
}

func TestDispatchEmptyLine(t *testing.T) {
	e := newTestProcessor(t)
	if reply := Dispatch(e, "   "); reply != "" {
		t.Errorf("Dispatch(empty) = %q, want empty reply", reply)
	}
}

func TestDispatchBadAddress(t *testing.T) {
	e := newTestProcessor(t)
	if reply := Dispatch(e, "ping notanumber"); reply == "OK" {
		t.Errorf("Dispatch(ping notanumber) should not succeed")
	}
}
