// internal/device/broadcast.go
package device

import (
	"errors"
	"time"

	"github.com/tamzrod/simply/internal/call"
)

// BroadcastCaller is the connector surface needed for broadcasts.
type BroadcastCaller interface {
	Broadcast(networkID, iface, method string, args ...any) (call.ID, error)
	BroadcastResult(id call.ID, timeout time.Duration) (call.BroadcastResult, error)
}

// Broadcaster sends requests to every node of a network.
type Broadcaster struct {
	NetworkID string

	// DefaultWaitingTimeout bounds Broadcast.
	DefaultWaitingTimeout time.Duration

	conn BroadcastCaller
}

// NewBroadcaster returns a broadcaster for networkID.
func NewBroadcaster(conn BroadcastCaller, networkID string) (*Broadcaster, error) {
	if conn == nil {
		return nil, errors.New("device: broadcast caller is nil")
	}
	if networkID == "" {
		return nil, errors.New("device: network id required")
	}
	return &Broadcaster{
		NetworkID:             networkID,
		DefaultWaitingTimeout: DefaultWaitingTimeout,
		conn:                  conn,
	}, nil
}

// Send issues a broadcast and returns its id without waiting.
func (b *Broadcaster) Send(iface, method string, args ...any) (call.ID, error) {
	return b.conn.Broadcast(b.NetworkID, iface, method, args...)
}

// Result waits up to timeout for the outcome of a broadcast.
func (b *Broadcaster) Result(id call.ID, timeout time.Duration) (call.BroadcastResult, error) {
	return b.conn.BroadcastResult(id, timeout)
}

// Broadcast sends and waits up to DefaultWaitingTimeout for the
// confirmation.
func (b *Broadcaster) Broadcast(iface, method string, args ...any) (call.BroadcastResult, error) {
	id, err := b.Send(iface, method, args...)
	if err != nil {
		return call.BroadcastError, err
	}
	return b.conn.BroadcastResult(id, b.DefaultWaitingTimeout)
}
