// internal/network/network.go

// Package network defines the byte transport under the protocol layer.
package network

import "errors"

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("network: layer closed")

// Data is one frame's payload exchanged with a network.
type Data struct {
	NetworkID string
	Payload   []byte
}

// Layer moves payloads to and from one physical network.
//
// Implementations deliver inbound data from a single receive goroutine,
// in arrival order. Send may be called while that goroutine runs.
type Layer interface {
	Start() error
	Send(d Data) error
	SetListener(fn func(Data))
	Close() error
}
