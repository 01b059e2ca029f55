// internal/connector/connector.go

// Package connector is the entry point for application code: it accepts
// call requests, drives them through the dispatcher and answers queries
// about their outcome.
package connector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JekaMas/workerpool"

	"github.com/tamzrod/simply/internal/asyncmsg"
	"github.com/tamzrod/simply/internal/call"
	"github.com/tamzrod/simply/internal/dispatcher"
	"github.com/tamzrod/simply/internal/protocol"
	"github.com/tamzrod/simply/internal/results"
)

// ErrStopped is returned for calls issued after Stop.
var ErrStopped = errors.New("connector: stopped")

// Connector ties a protocol layer to the dispatcher, the result store and
// the asynchronous message registry.
type Connector struct {
	layer protocol.Layer
	store *results.Store
	disp  *dispatcher.Dispatcher
	async *asyncmsg.Registry
	pool  *workerpool.WorkerPool
	log   *slog.Logger

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopOnce sync.Once
}

// New builds a connector over layer. Nothing runs until Start.
func New(layer protocol.Layer, opts ...Option) (*Connector, error) {
	if layer == nil {
		return nil, errors.New("connector: protocol layer is nil")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	store := results.New()
	if err := store.SetMaxIdleTime(o.maxIdleTime); err != nil {
		return nil, err
	}
	disp, err := dispatcher.New(layer, store, o.settings, dispatcher.WithLogger(o.log))
	if err != nil {
		return nil, err
	}

	c := &Connector{
		layer: layer,
		store: store,
		disp:  disp,
		async: asyncmsg.NewRegistry(o.log),
		log:   o.log.With("component", "connector"),
	}
	if o.asyncOffload {
		c.pool = workerpool.New(1)
	}
	return c, nil
}

// Start registers the connector as the protocol layer's listener, starts
// the layer and launches the worker.
func (c *Connector) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}
	if c.started {
		return nil
	}

	c.layer.SetListener(c)
	if err := c.layer.Start(); err != nil {
		c.layer.SetListener(nil)
		return fmt.Errorf("connector: start protocol layer: %w", err)
	}
	c.disp.Start()
	c.started = true
	c.log.Info("connector started")
	return nil
}

// Stop detaches from the protocol layer and stops the worker. Queued
// requests end in Error with KindDispatchToConnector. The protocol layer
// itself is left open for its owner to close.
func (c *Connector) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		started := c.started
		c.mu.Unlock()

		if started {
			c.layer.SetListener(nil)
		}
		c.disp.Stop()
		if c.pool != nil {
			c.pool.StopWait()
		}
		c.log.Info("connector stopped")
	})
}

func (c *Connector) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Call issues a unicast request and returns its id.
func (c *Connector) Call(networkID, nodeID, iface, method string, args ...any) (call.ID, error) {
	return c.Dispatch(call.NewRequest(networkID, nodeID, iface, method, args...))
}

// Broadcast issues a request to every node of a network.
func (c *Connector) Broadcast(networkID, iface, method string, args ...any) (call.ID, error) {
	return c.Dispatch(call.NewBroadcastRequest(networkID, iface, method, args...))
}

// Dispatch queues a prepared request.
func (c *Connector) Dispatch(req *call.Request) (call.ID, error) {
	if c.isStopped() {
		return call.ID{}, ErrStopped
	}
	id, err := c.disp.Dispatch(req)
	if errors.Is(err, dispatcher.ErrStopped) {
		return call.ID{}, ErrStopped
	}
	return id, err
}

// State returns the processing state of a request without blocking.
func (c *Connector) State(id call.ID) call.State {
	return c.store.State(id)
}

// Result waits up to timeout for the request outcome. See results.Store.Result.
func (c *Connector) Result(id call.ID, timeout time.Duration) (*call.Result, error) {
	return c.store.Result(id, timeout)
}

// WaitResult waits for the request outcome until ctx ends.
func (c *Connector) WaitResult(ctx context.Context, id call.ID) (*call.Result, error) {
	return c.store.Wait(ctx, id)
}

// Error returns the processing error of a failed request.
func (c *Connector) Error(id call.ID) *call.ProcessingError {
	return c.store.Error(id)
}

// Info returns a snapshot of the request.
func (c *Connector) Info(id call.ID) call.Info {
	return c.store.Info(id)
}

// BroadcastResult waits up to timeout for a broadcast request. A request
// that ended in Error yields BroadcastError with a nil error; err is set
// only when the outcome is unknown.
func (c *Connector) BroadcastResult(id call.ID, timeout time.Duration) (call.BroadcastResult, error) {
	res, err := c.store.Result(id, timeout)
	if err != nil {
		var perr *call.ProcessingError
		if errors.As(err, &perr) {
			return call.BroadcastError, nil
		}
		return call.BroadcastError, err
	}
	if b, ok := res.Value.(call.BroadcastResult); ok {
		return b, nil
	}
	return call.BroadcastOK, nil
}

// SetCallRequestsMaximalIdleTime changes how long finished requests stay
// queryable.
func (c *Connector) SetCallRequestsMaximalIdleTime(d time.Duration) error {
	return c.store.SetMaxIdleTime(d)
}

// CallRequestsMaximalIdleTime returns the current idle limit.
func (c *Connector) CallRequestsMaximalIdleTime() time.Duration {
	return c.store.MaxIdleTime()
}

// SetResponseWaiting replaces the response waiting settings.
func (c *Connector) SetResponseWaiting(s dispatcher.Settings) error {
	return c.disp.SetSettings(s)
}

// ResponseWaiting returns the response waiting settings.
func (c *Connector) ResponseWaiting() dispatcher.Settings {
	return c.disp.Settings()
}

// SetCallRequestMaximalProcessingTime overrides the response timeout of a
// request still waiting in the queue.
func (c *Connector) SetCallRequestMaximalProcessingTime(id call.ID, d time.Duration) error {
	return c.disp.SetMaxProcessingTime(id, d)
}

// Stats returns dispatcher counters.
func (c *Connector) Stats() dispatcher.Stats {
	return c.disp.Stats()
}

// RegisterAsyncListener subscribes l to asynchronous messages matching f.
// Nil, duplicate and uncomparable listeners are rejected with the asyncmsg
// sentinel errors.
func (c *Connector) RegisterAsyncListener(l asyncmsg.Listener, f asyncmsg.Filter) error {
	return c.async.Register(l, f)
}

// UnregisterAsyncListener removes l.
func (c *Connector) UnregisterAsyncListener(l asyncmsg.Listener) bool {
	return c.async.Unregister(l)
}

// OnResponse implements protocol.Listener.
func (c *Connector) OnResponse(resp protocol.Response) {
	c.disp.Deliver(resp)
}

// OnAsyncMessage implements protocol.Listener.
func (c *Connector) OnAsyncMessage(msg asyncmsg.Message) {
	if c.pool == nil {
		if !c.isStopped() {
			c.async.Deliver(msg)
		}
		return
	}

	// Held so Stop cannot drain the pool between the check and Submit.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.pool.Submit(context.Background(), func() error {
		c.async.Deliver(msg)
		return nil
	}, 0)
}
