// internal/device/network.go
package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tamzrod/simply/internal/call"
)

// Network hands out device objects of one network, one per node interface.
// Objects are created on first use and reused afterwards.
type Network struct {
	ID string

	// WaitingTimeout is copied into every object created from now on.
	WaitingTimeout time.Duration

	conn Caller

	mu      sync.Mutex
	objects map[objectKey]*Object
}

type objectKey struct {
	node  string
	iface string
}

func NewNetwork(conn Caller, id string) (*Network, error) {
	if conn == nil {
		return nil, errors.New("device: caller is nil")
	}
	if id == "" {
		return nil, errors.New("device: network id required")
	}
	return &Network{
		ID:             id,
		WaitingTimeout: DefaultWaitingTimeout,
		conn:           conn,
		objects:        make(map[objectKey]*Object),
	}, nil
}

// Object returns the object for iface on node.
func (n *Network) Object(nodeID, iface string) (*Object, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	k := objectKey{node: nodeID, iface: iface}
	if obj, ok := n.objects[k]; ok {
		return obj, nil
	}
	obj, err := NewObject(n.conn, n.ID, nodeID, iface, nil)
	if err != nil {
		return nil, err
	}
	if n.WaitingTimeout > 0 {
		obj.DefaultWaitingTimeout = n.WaitingTimeout
	}
	n.objects[k] = obj
	return obj, nil
}

// CallSync calls method on the addressed object and waits for the result.
func (n *Network) CallSync(ctx context.Context, nodeID, iface, method string, args ...any) (*call.Result, error) {
	obj, err := n.Object(nodeID, iface)
	if err != nil {
		return nil, err
	}
	return obj.CallSync(ctx, method, args...)
}

// Len returns the number of objects created so far.
func (n *Network) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.objects)
}
