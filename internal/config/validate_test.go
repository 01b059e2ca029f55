// internal/config/validate_test.go
package config

import (
	"strings"
	"testing"
)

// helper to build a valid config quickly
func valid() *Config {
	return &Config{
		Version: "1.2.0",
		Network: NetworkConfig{
			ID:   "net1",
			Type: "serial",
			Serial: SerialConfig{
				Address: "/dev/ttyACM0",
			},
		},
		Poll: PollConfig{
			IntervalMs: 1000,
			Reads: []ReadConfig{
				{Node: "1", Interface: "thermometer", Method: "0"},
			},
		},
	}
}

func expectError(t *testing.T, cfg *Config, contains string) {
	t.Helper()
	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", contains)
	}
	if !strings.Contains(err.Error(), contains) {
		t.Fatalf("expected error containing %q, got %v", contains, err)
	}
}

// ---- tests ----

func TestValidate_OK(t *testing.T) {
	if err := Validate(valid()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Version(t *testing.T) {
	cfg := valid()
	cfg.Version = ""
	expectError(t, cfg, "version is required")

	cfg.Version = "banana"
	expectError(t, cfg, "banana")

	cfg.Version = "2.0.0"
	expectError(t, cfg, "not supported")
}

func TestValidate_ResponseWaitingNegative(t *testing.T) {
	cfg := valid()
	cfg.Connector.Type.ResponseWaiting.AttemptPause = -1
	expectError(t, cfg, "attemptPause")
}

func TestValidate_IdleTime(t *testing.T) {
	cfg := valid()
	zero := 0
	cfg.Connector.CallRequestsMaxIdleTime = &zero
	if err := Validate(cfg); err != nil {
		t.Fatalf("zero idle time must be accepted: %v", err)
	}

	neg := -1
	cfg.Connector.CallRequestsMaxIdleTime = &neg
	expectError(t, cfg, "callRequestsMaxIdleTime")
}

func TestValidate_Network(t *testing.T) {
	cfg := valid()
	cfg.Network.Type = "can"
	expectError(t, cfg, "unknown type")

	cfg = valid()
	cfg.Network.Serial.Address = ""
	expectError(t, cfg, "serial.address")

	cfg = valid()
	cfg.Network.Type = "udp"
	expectError(t, cfg, "udp.remote_addr")

	cfg.Network.UDP.RemoteAddr = "10.0.0.5:55300"
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_PollReads(t *testing.T) {
	cfg := valid()
	cfg.Poll.IntervalMs = 0
	expectError(t, cfg, "interval_ms")

	cfg = valid()
	cfg.Poll.Reads[0].Method = ""
	expectError(t, cfg, "poll.reads[0]")
}

func u16(v uint16) *uint16 { return &v }

func TestValidate_ExportDeviceName(t *testing.T) {
	cfg := valid()
	cfg.Export = &ExportConfig{Endpoint: "10.0.0.9:502", DeviceName: "Čidlo"}
	expectError(t, cfg, "ASCII")

	cfg.Export.Endpoint = ""
	cfg.Export.DeviceName = "GW-01"
	expectError(t, cfg, "export.endpoint")
}

func TestValidate_RegisterWithoutExport(t *testing.T) {
	cfg := valid()
	cfg.Poll.Reads[0].Register = u16(10)
	cfg.Poll.Reads[0].Quantity = 2
	expectError(t, cfg, "export is not configured")

	cfg = valid()
	cfg.Poll.Reads[0].Quantity = 2
	expectError(t, cfg, "quantity set without register")

	cfg = valid()
	cfg.Export = &ExportConfig{Endpoint: "10.0.0.9:502"}
	cfg.Poll.Reads[0].Register = u16(10)
	expectError(t, cfg, "quantity must be > 0")
}

func TestValidate_RegisterOverlap(t *testing.T) {
	cfg := valid()
	cfg.Export = &ExportConfig{Endpoint: "10.0.0.9:502"}
	cfg.Poll.Reads = []ReadConfig{
		{Node: "1", Interface: "thermometer", Method: "0", Register: u16(0), Quantity: 10}, // 0–9
		{Node: "2", Interface: "thermometer", Method: "0", Register: u16(5), Quantity: 10}, // 5–14 → overlap
	}
	expectError(t, cfg, "register overlap")

	cfg.Poll.Reads[1].Register = u16(10) // 10–19 → adjacent, ok
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// status slot 1 covers 20–39
	cfg.Export.StatusSlot = u16(1)
	cfg.Poll.Reads[1].Register = u16(15) // 15–24 → overlap
	expectError(t, cfg, "export.status_slot")
}

func TestValidate_DoesNotMutate(t *testing.T) {
	cfg := valid()
	cfg.Protocol.Peripherals = map[string]uint8{"Custom": 0x20}
	cfg.Export = &ExportConfig{Endpoint: "10.0.0.9:502", DeviceName: "A-VERY-LONG-DEVICE-NAME"}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cfg.Protocol.Peripherals["Custom"]; !ok {
		t.Fatalf("Validate changed peripheral names")
	}
	if cfg.Export.DeviceName != "A-VERY-LONG-DEVICE-NAME" {
		t.Fatalf("Validate changed device name")
	}

	Normalize(cfg)
	if _, ok := cfg.Protocol.Peripherals["custom"]; !ok {
		t.Fatalf("Normalize did not lower-case peripheral names")
	}
	if len(cfg.Export.DeviceName) != 16 {
		t.Fatalf("device name not truncated: %q", cfg.Export.DeviceName)
	}
	if cfg.Export.TimeoutMs != 1000 {
		t.Fatalf("export timeout default not applied: %d", cfg.Export.TimeoutMs)
	}
}
