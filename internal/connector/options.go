// internal/connector/options.go
package connector

import (
	"log/slog"
	"time"

	"github.com/tamzrod/simply/internal/dispatcher"
	"github.com/tamzrod/simply/internal/results"
)

type options struct {
	log          *slog.Logger
	settings     dispatcher.Settings
	maxIdleTime  time.Duration
	asyncOffload bool
}

func defaultOptions() options {
	return options{
		log:         slog.Default(),
		settings:    dispatcher.DefaultSettings(),
		maxIdleTime: results.DefaultMaxIdleTime,
	}
}

// Option configures a Connector.
type Option func(*options)

// WithLogger sets the logger shared by the connector and its dispatcher.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithResponseWaiting sets the initial response waiting settings.
func WithResponseWaiting(s dispatcher.Settings) Option {
	return func(o *options) {
		o.settings = s
	}
}

// WithMaxIdleTime sets how long finished requests stay queryable.
func WithMaxIdleTime(d time.Duration) Option {
	return func(o *options) {
		o.maxIdleTime = d
	}
}

// WithAsyncOffload delivers asynchronous messages from a single worker
// instead of the protocol receive goroutine. Order is kept.
func WithAsyncOffload(on bool) Option {
	return func(o *options) {
		o.asyncOffload = on
	}
}
