// internal/config/resolve.go
package config

import (
	"time"

	"github.com/imdario/mergo"

	"github.com/tamzrod/simply/internal/dispatcher"
)

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// Apply returns defaults overridden by every value set in r.
func (r ResponseWaitingConfig) Apply(defaults dispatcher.Settings) (dispatcher.Settings, error) {
	out := dispatcher.Settings{
		MaxSendAttempts:  r.MaxSendAttempts,
		AttemptPause:     ms(r.AttemptPause),
		BetweenSendPause: ms(r.BetweenSendPause),
		ResponseTimeout:  ms(r.ResponseTimeout),
	}
	if err := mergo.Merge(&out, defaults); err != nil {
		return dispatcher.Settings{}, err
	}
	return out, out.Validate()
}

// MaxIdleTime returns the configured idle time and whether it is set.
func (c ConnectorConfig) MaxIdleTime() (time.Duration, bool) {
	if c.CallRequestsMaxIdleTime == nil {
		return 0, false
	}
	return ms(*c.CallRequestsMaxIdleTime), true
}

// WaitingTimeout returns the configured default waiting timeout, or def.
func (c ConnectorConfig) WaitingTimeout(def time.Duration) time.Duration {
	if c.DefaultWaitingTimeout <= 0 {
		return def
	}
	return ms(c.DefaultWaitingTimeout)
}

// Interval returns the poll interval.
func (p PollConfig) Interval() time.Duration {
	return ms(p.IntervalMs)
}

// Timeout returns the export request timeout.
func (e ExportConfig) Timeout() time.Duration {
	return ms(e.TimeoutMs)
}

// ReadTimeout returns the serial read timeout.
func (s SerialConfig) ReadTimeout() time.Duration {
	return ms(s.ReadTimeoutMs)
}

// RequestLifetime returns how long a sent request awaits its response.
func (p ProtocolConfig) RequestLifetime() time.Duration {
	return ms(p.MaxRequestDuration)
}
