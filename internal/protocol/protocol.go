// internal/protocol/protocol.go

// Package protocol converts call requests to network frames and inbound
// frames back to responses and asynchronous messages.
package protocol

import (
	"errors"

	"github.com/tamzrod/simply/internal/asyncmsg"
	"github.com/tamzrod/simply/internal/call"
)

// ErrEncoding marks a request the protocol layer could not turn into a frame.
var ErrEncoding = errors.New("protocol: cannot encode request")

// Response is the outcome of one sent request as seen by the protocol layer.
// Err is set for remote errors and undecodable responses.
type Response struct {
	RequestID      call.ID
	Value          any
	AdditionalInfo any
	Err            *call.ProcessingError
}

// Listener receives everything the protocol layer decodes.
// Callbacks run on the network receive goroutine.
type Listener interface {
	OnResponse(resp Response)
	OnAsyncMessage(msg asyncmsg.Message)
}

// Layer is what the connector needs from a protocol implementation.
type Layer interface {
	Start() error
	SendRequest(req *call.Request) error
	SetListener(l Listener)
	Close() error
}
