package packet

import "testing"

func TestSetRouteReqRoundTrip(t *testing.T) {
	want := SetRouteReq{Passcode: 12345, TargetAddr: 8, NextHopAddr: 3}
	got, err := ParseSetRouteReq(want.Encode())
	if err != nil {
		t.Fatalf("ParseSetRouteReq: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGetRouteRespZeroCounters(t *testing.T) {
	// txPacketCount/rxPacketCount are an open question in the source design and
	// are always encoded as zero.
	resp := GetRouteResp{TargetAddr: 7, NextHopAddr: 3}
	encoded := resp.Encode()
	decoded, err := ParseGetRouteResp(encoded)
	if err != nil {
		t.Fatalf("ParseGetRouteResp: %v", err)
	}
	if decoded.TxPacketCount != 0 || decoded.RxPacketCount != 0 {
		t.Errorf("expected zero counters, got tx=%d rx=%d", decoded.TxPacketCount, decoded.RxPacketCount)
	}
	if decoded.TargetAddr != 7 || decoded.NextHopAddr != 3 {
		t.Errorf("got %+v", decoded)
	}
}

func TestSadRespRoundTrip(t *testing.T) {
	want := SadResp{
		Version: 1, BatteryMv: 4100, PanelMv: 5200,
		UptimeSeconds: 123456, Time: 1_700_000_000,
		BootCount: 4, SleepCount: 99, LastHopRssi: -42,
		Temp: 215, Humidity: 560, DeviceClass: 2, DeviceRevision: 1,
		RxPacketCount: 10, BadRxPacketCount: 2, BadRouteCount: 1,
	}
	got, err := ParseSadResp(want.Encode())
	if err != nil {
		t.Fatalf("ParseSadResp: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParseTooShort(t *testing.T) {
	if _, err := ParseSetRouteReq(nil); err == nil {
		t.Error("expected error for short SetRouteReq")
	}
	if _, err := ParseResetReq([]byte{1, 2}); err == nil {
		t.Error("expected error for short ResetReq")
	}
}
