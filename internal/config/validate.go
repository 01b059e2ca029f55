// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/Masterminds/semver"

	"github.com/tamzrod/simply/internal/status"
)

// SupportedVersions is the constraint the config version must satisfy.
const SupportedVersions = "~1"

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ------------------------------------------------------------
	// VERSION
	// ------------------------------------------------------------

	if cfg.Version == "" {
		return fmt.Errorf("version is required")
	}
	v, err := semver.NewVersion(cfg.Version)
	if err != nil {
		return fmt.Errorf("version %q: %w", cfg.Version, err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("version %s not supported, require %s", cfg.Version, SupportedVersions)
	}

	// ------------------------------------------------------------
	// CONNECTOR
	// ------------------------------------------------------------

	rw := cfg.Connector.Type.ResponseWaiting
	for name, val := range map[string]int{
		"maxSendAttempts":  rw.MaxSendAttempts,
		"responseTimeout":  rw.ResponseTimeout,
		"attemptPause":     rw.AttemptPause,
		"betweenSendPause": rw.BetweenSendPause,
	} {
		if val < 0 {
			return fmt.Errorf("connector.type.responseWaiting.%s must be > 0, got %d", name, val)
		}
	}
	if idle := cfg.Connector.CallRequestsMaxIdleTime; idle != nil && *idle < 0 {
		return fmt.Errorf("connector.callRequestsMaxIdleTime must be >= 0, got %d", *idle)
	}
	if cfg.Connector.DefaultWaitingTimeout < 0 {
		return fmt.Errorf("connector.defaultWaitingTimeout must be >= 0, got %d", cfg.Connector.DefaultWaitingTimeout)
	}

	// ------------------------------------------------------------
	// NETWORK
	// ------------------------------------------------------------

	n := cfg.Network
	if n.ID == "" {
		return fmt.Errorf("network.id is required")
	}
	switch n.Type {
	case "serial":
		if n.Serial.Address == "" {
			return fmt.Errorf("network %q: serial.address is required", n.ID)
		}
		if n.Serial.BaudRate < 0 || n.Serial.ReadTimeoutMs < 0 {
			return fmt.Errorf("network %q: serial values must be >= 0", n.ID)
		}
	case "udp":
		if n.UDP.RemoteAddr == "" {
			return fmt.Errorf("network %q: udp.remote_addr is required", n.ID)
		}
	default:
		return fmt.Errorf("network %q: unknown type %q (want serial or udp)", n.ID, n.Type)
	}

	// ------------------------------------------------------------
	// PROTOCOL
	// ------------------------------------------------------------

	for name := range cfg.Protocol.Peripherals {
		if name == "" {
			return fmt.Errorf("protocol.peripherals: empty interface name")
		}
	}
	if cfg.Protocol.MaxRequestDuration < 0 {
		return fmt.Errorf("protocol.maxRequestDuration must be >= 0, got %d", cfg.Protocol.MaxRequestDuration)
	}

	// ------------------------------------------------------------
	// POLL (OPT-IN)
	// ------------------------------------------------------------

	if len(cfg.Poll.Reads) > 0 && cfg.Poll.IntervalMs <= 0 {
		return fmt.Errorf("poll.interval_ms must be > 0 when reads are configured")
	}
	for i, r := range cfg.Poll.Reads {
		if r.Node == "" || r.Interface == "" || r.Method == "" {
			return fmt.Errorf("poll.reads[%d]: node, interface and method are required", i)
		}
	}

	// ------------------------------------------------------------
	// EXPORT (OPT-IN)
	// ------------------------------------------------------------

	type span struct {
		name       string
		start, end int
	}
	var spans []span

	for i, r := range cfg.Poll.Reads {
		if r.Register == nil {
			if r.Quantity != 0 {
				return fmt.Errorf("poll.reads[%d]: quantity set without register", i)
			}
			continue
		}
		if cfg.Export == nil {
			return fmt.Errorf("poll.reads[%d]: register set but export is not configured", i)
		}
		if r.Quantity == 0 {
			return fmt.Errorf("poll.reads[%d]: quantity must be > 0", i)
		}
		start := int(*r.Register)
		end := start + int(r.Quantity) - 1
		if end > 0xFFFF {
			return fmt.Errorf("poll.reads[%d]: register range %d-%d exceeds address space", i, start, end)
		}
		spans = append(spans, span{name: fmt.Sprintf("poll.reads[%d]", i), start: start, end: end})
	}

	if e := cfg.Export; e != nil {
		if e.Endpoint == "" {
			return fmt.Errorf("export.endpoint is required")
		}
		if e.TimeoutMs < 0 {
			return fmt.Errorf("export.timeout_ms must be >= 0")
		}
		// device_name sanity (ASCII only)
		for i := 0; i < len(e.DeviceName); i++ {
			if e.DeviceName[i] > 0x7F {
				return fmt.Errorf("export.device_name must contain ASCII characters only")
			}
		}
		if e.StatusSlot != nil {
			start := int(*e.StatusSlot) * status.SlotsPerDevice
			end := start + status.SlotsPerDevice - 1
			if end > 0xFFFF {
				return fmt.Errorf("export.status_slot %d exceeds address space", *e.StatusSlot)
			}
			spans = append(spans, span{name: "export.status_slot", start: start, end: end})
		}
	}

	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			// overlap check (inclusive)
			if a.start <= b.end && b.start <= a.end {
				return fmt.Errorf(
					"register overlap: %s range=%d-%d overlaps with %s range=%d-%d",
					b.name, b.start, b.end, a.name, a.start, a.end,
				)
			}
		}
	}

	return nil
}
