// internal/config/normalize.go
package config

import (
	"strings"

	"github.com/tamzrod/simply/internal/status"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// Interface names are matched case-insensitively.
	if len(cfg.Protocol.Peripherals) > 0 {
		lower := make(map[string]uint8, len(cfg.Protocol.Peripherals))
		for name, pnum := range cfg.Protocol.Peripherals {
			lower[strings.ToLower(name)] = pnum
		}
		cfg.Protocol.Peripherals = lower
	}

	if e := cfg.Export; e != nil {
		// Normalize device_name:
		// - ASCII already validated
		// - Truncate to max 16 characters
		if len(e.DeviceName) > status.DeviceNameMaxChars {
			e.DeviceName = e.DeviceName[:status.DeviceNameMaxChars]
		}
		if e.TimeoutMs == 0 {
			e.TimeoutMs = 1000
		}
	}
}
