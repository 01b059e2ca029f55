// internal/dispatcher/settings.go
package dispatcher

import (
	"errors"
	"time"
)

// Defaults of the response waiting settings.
const (
	DefaultMaxSendAttempts  = 3
	DefaultAttemptPause     = 1000 * time.Millisecond
	DefaultBetweenSendPause = 1000 * time.Millisecond
	DefaultResponseTimeout  = 25000 * time.Millisecond
)

// Settings controls how the worker waits for responses.
type Settings struct {
	// MaxSendAttempts is the number of transmissions of one request,
	// the first one included.
	MaxSendAttempts int
	// AttemptPause separates a timed out attempt from the resend.
	AttemptPause time.Duration
	// BetweenSendPause is the minimum gap between the end of one request
	// and the first transmission of the next.
	BetweenSendPause time.Duration
	// ResponseTimeout applies to every attempt of a request that does not
	// carry its own MaxProcessingTime.
	ResponseTimeout time.Duration
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		MaxSendAttempts:  DefaultMaxSendAttempts,
		AttemptPause:     DefaultAttemptPause,
		BetweenSendPause: DefaultBetweenSendPause,
		ResponseTimeout:  DefaultResponseTimeout,
	}
}

// Validate rejects non-positive values.
func (s Settings) Validate() error {
	switch {
	case s.MaxSendAttempts <= 0:
		return errors.New("dispatcher: max send attempts must be > 0")
	case s.AttemptPause <= 0:
		return errors.New("dispatcher: attempt pause must be > 0")
	case s.BetweenSendPause <= 0:
		return errors.New("dispatcher: between send pause must be > 0")
	case s.ResponseTimeout <= 0:
		return errors.New("dispatcher: response timeout must be > 0")
	}
	return nil
}
