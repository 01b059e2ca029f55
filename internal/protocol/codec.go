// internal/protocol/codec.go
package protocol

import (
	"github.com/tamzrod/simply/internal/asyncmsg"
	"github.com/tamzrod/simply/internal/call"
	"github.com/tamzrod/simply/internal/network"
)

// FrameKind tells the framed layer how to route a decoded frame.
type FrameKind int

const (
	FrameResponse FrameKind = iota + 1
	FrameConfirmation
	FrameAsync
)

// Frame is one decoded inbound frame.
type Frame struct {
	Kind FrameKind

	// Key correlates responses and confirmations with the request that
	// produced the same key in Encode. Unused for async frames.
	Key string

	Value          any
	AdditionalInfo any
	// Err is a remote error reported inside a well-formed response.
	Err *call.ProcessingError

	Async asyncmsg.Message
}

// Codec is the wire format of one protocol.
type Codec interface {
	// Encode returns the frame payload and the key its response will carry.
	// Errors must wrap ErrEncoding.
	Encode(req *call.Request) (key string, payload []byte, err error)

	// Decode parses one inbound payload. On error, a non-empty Frame.Key
	// means the frame could be attributed to a request.
	Decode(d network.Data) (Frame, error)
}
