// internal/call/request.go
package call

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Unlimited as MaxProcessingTime makes the dispatcher wait for a response
// without a deadline.
const Unlimited time.Duration = -1

// ID identifies one call request. Zero value means "not yet assigned".
type ID uuid.UUID

// NewID returns a random 128-bit request id.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID parses the textual form produced by ID.String.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("call: bad request id %q: %w", s, err)
	}
	return ID(u), nil
}

func (id ID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether the id was never assigned.
func (id ID) IsZero() bool { return id == ID{} }

// Request is one outstanding operation on a remote node.
// Addressing and method fields are opaque to the core.
type Request struct {
	ID        ID
	NetworkID string
	// NodeID is empty for broadcast requests.
	NodeID    string
	Broadcast bool

	DeviceInterface string
	MethodID        string
	Args            []any

	// MaxProcessingTime overrides the response timeout for this request.
	// 0 keeps the dispatcher default, Unlimited disables the deadline.
	MaxProcessingTime time.Duration

	IssuedAt time.Time
}

// NewRequest builds a unicast request with a fresh id.
func NewRequest(networkID, nodeID, iface, method string, args ...any) *Request {
	return &Request{
		ID:              NewID(),
		NetworkID:       networkID,
		NodeID:          nodeID,
		DeviceInterface: iface,
		MethodID:        method,
		Args:            args,
		IssuedAt:        time.Now(),
	}
}

// NewBroadcastRequest builds a request addressed to every node of a network.
func NewBroadcastRequest(networkID, iface, method string, args ...any) *Request {
	r := NewRequest(networkID, "", iface, method, args...)
	r.Broadcast = true
	return r
}

// Validate checks the fields every request must carry.
func (r *Request) Validate() error {
	switch {
	case r == nil:
		return fmt.Errorf("call: nil request")
	case r.NetworkID == "":
		return fmt.Errorf("call: network id required")
	case r.DeviceInterface == "":
		return fmt.Errorf("call: device interface required")
	case r.MethodID == "":
		return fmt.Errorf("call: method id required")
	case !r.Broadcast && r.NodeID == "":
		return fmt.Errorf("call: node id required for unicast request")
	case r.MaxProcessingTime < 0 && r.MaxProcessingTime != Unlimited:
		return fmt.Errorf("call: max processing time must be positive or Unlimited")
	}
	return nil
}

func (r *Request) String() string {
	node := r.NodeID
	if r.Broadcast {
		node = "*"
	}
	return fmt.Sprintf("request{id=%s net=%s node=%s iface=%s method=%s args=%v}",
		r.ID, r.NetworkID, node, r.DeviceInterface, r.MethodID, r.Args)
}
