// internal/poller/types.go
package poller

import "time"

// ReadBlock describes one call issued every cycle.
type ReadBlock struct {
	Node      string
	Interface string
	Method    string
	Args      []any
}

// BlockResult is the raw result of a single call.
type BlockResult struct {
	Node      string
	Interface string
	Method    string

	Value          any
	AdditionalInfo any
}

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	NetworkID string
	At        time.Time

	// RawErrorCode is derived from Err by ErrorCode.
	// 0 means success.
	RawErrorCode uint16

	Blocks []BlockResult
	Err    error // non-nil means the poll cycle failed
}
