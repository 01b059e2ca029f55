// internal/device/object.go

// Package device offers per-node helpers on top of the connector.
package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/simply/internal/call"
)

// DefaultWaitingTimeout is used by the synchronous helpers.
const DefaultWaitingTimeout = 5 * time.Second

// Caller is the connector surface needed for unicast calls.
type Caller interface {
	Call(networkID, nodeID, iface, method string, args ...any) (call.ID, error)
	Result(id call.ID, timeout time.Duration) (*call.Result, error)
	WaitResult(ctx context.Context, id call.ID) (*call.Result, error)
	State(id call.ID) call.State
	Error(id call.ID) *call.ProcessingError
}

// Object addresses one device interface of one node.
type Object struct {
	NetworkID string
	NodeID    string
	Interface string

	// DefaultWaitingTimeout bounds CallSync and ResultDefault.
	DefaultWaitingTimeout time.Duration

	conn    Caller
	results *ResultsContainer
}

// NewObject binds a node interface to conn. A nil container gets a default
// one.
func NewObject(conn Caller, networkID, nodeID, iface string, results *ResultsContainer) (*Object, error) {
	if conn == nil {
		return nil, errors.New("device: caller is nil")
	}
	if networkID == "" || nodeID == "" || iface == "" {
		return nil, errors.New("device: network id, node id and interface required")
	}
	if results == nil {
		var err error
		results, err = NewResultsContainer(DefaultContainerCapacity, 0)
		if err != nil {
			return nil, err
		}
	}
	return &Object{
		NetworkID:             networkID,
		NodeID:                nodeID,
		Interface:             iface,
		DefaultWaitingTimeout: DefaultWaitingTimeout,
		conn:                  conn,
		results:               results,
	}, nil
}

func (o *Object) String() string {
	return fmt.Sprintf("%s/%s/%s", o.NetworkID, o.NodeID, o.Interface)
}

// Call issues method asynchronously and returns the request id.
func (o *Object) Call(method string, args ...any) (call.ID, error) {
	return o.conn.Call(o.NetworkID, o.NodeID, o.Interface, method, args...)
}

// CallSync issues method and waits for its result for at most the default
// waiting timeout or until ctx ends.
func (o *Object) CallSync(ctx context.Context, method string, args ...any) (*call.Result, error) {
	id, err := o.Call(method, args...)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, o.DefaultWaitingTimeout)
	defer cancel()
	return o.wait(ctx, id)
}

// Result waits up to timeout for the result of id.
func (o *Object) Result(id call.ID, timeout time.Duration) (*call.Result, error) {
	if res, ok := o.results.Get(id); ok {
		return res, nil
	}
	res, err := o.conn.Result(id, timeout)
	if err != nil {
		return nil, err
	}
	o.results.Put(id, res)
	return res, nil
}

// ResultImmediately returns the result of id without waiting.
func (o *Object) ResultImmediately(id call.ID) (*call.Result, error) {
	return o.Result(id, 0)
}

// ResultDefault waits up to DefaultWaitingTimeout.
func (o *Object) ResultDefault(id call.ID) (*call.Result, error) {
	return o.Result(id, o.DefaultWaitingTimeout)
}

// ResultUnlimited waits until the request finishes or ctx ends.
func (o *Object) ResultUnlimited(ctx context.Context, id call.ID) (*call.Result, error) {
	return o.wait(ctx, id)
}

func (o *Object) wait(ctx context.Context, id call.ID) (*call.Result, error) {
	if res, ok := o.results.Get(id); ok {
		return res, nil
	}
	res, err := o.conn.WaitResult(ctx, id)
	if err != nil {
		return nil, err
	}
	o.results.Put(id, res)
	return res, nil
}

// State returns the processing state of id.
func (o *Object) State(id call.ID) call.State {
	return o.conn.State(id)
}

// Error returns the processing error of id, if any.
func (o *Object) Error(id call.ID) *call.ProcessingError {
	return o.conn.Error(id)
}

// AdditionalInfo returns the protocol metadata of a finished call.
func (o *Object) AdditionalInfo(id call.ID) (any, bool) {
	res, ok := o.results.Get(id)
	if !ok {
		return nil, false
	}
	return res.AdditionalInfo, true
}
