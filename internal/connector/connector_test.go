// internal/connector/connector_test.go
package connector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tamzrod/simply/internal/asyncmsg"
	"github.com/tamzrod/simply/internal/call"
	"github.com/tamzrod/simply/internal/dispatcher"
	"github.com/tamzrod/simply/internal/protocol"
	"github.com/tamzrod/simply/internal/results"
)

// fakeLayer answers every request with its method id unless silent is set.
type fakeLayer struct {
	mu       sync.Mutex
	listener protocol.Listener
	startErr error
	silent   bool
	sent     []*call.Request
}

func (f *fakeLayer) Start() error { return f.startErr }
func (f *fakeLayer) Close() error { return nil }

func (f *fakeLayer) SetListener(l protocol.Listener) {
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()
}

func (f *fakeLayer) currentListener() protocol.Listener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listener
}

func (f *fakeLayer) SendRequest(req *call.Request) error {
	f.mu.Lock()
	f.sent = append(f.sent, req)
	l := f.listener
	silent := f.silent
	f.mu.Unlock()

	if silent || l == nil {
		return nil
	}
	var val any = req.MethodID
	if req.Broadcast {
		val = nil
	}
	go l.OnResponse(protocol.Response{RequestID: req.ID, Value: val})
	return nil
}

type collector struct {
	mu  sync.Mutex
	got []asyncmsg.Message
}

func (c *collector) OnAsynchronousMessage(msg asyncmsg.Message) {
	c.mu.Lock()
	c.got = append(c.got, msg)
	c.mu.Unlock()
}

func (c *collector) messages() []asyncmsg.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]asyncmsg.Message(nil), c.got...)
}

func fastSettings() dispatcher.Settings {
	return dispatcher.Settings{
		MaxSendAttempts:  2,
		AttemptPause:     5 * time.Millisecond,
		BetweenSendPause: time.Millisecond,
		ResponseTimeout:  50 * time.Millisecond,
	}
}

func startConnector(t *testing.T, layer *fakeLayer, opts ...Option) *Connector {
	t.Helper()
	opts = append([]Option{WithResponseWaiting(fastSettings())}, opts...)
	c, err := New(layer, opts...)
	require.NoError(t, err)
	require.NoError(t, c.Start())
	return c
}

func TestConnector_CallAndWait(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := startConnector(t, &fakeLayer{})
	defer c.Stop()

	id, err := c.Call("net1", "1", "os", "read")
	require.NoError(t, err)

	res, err := c.Result(id, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "read", res.Value)
	assert.Equal(t, call.ResultArrived, c.State(id))

	info := c.Info(id)
	assert.Equal(t, call.ResultArrived, info.State)
	assert.Nil(t, info.Err)
}

func TestConnector_Polling(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := startConnector(t, &fakeLayer{})
	defer c.Stop()

	id, err := c.Call("net1", "1", "os", "read")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.State(id) == call.ResultArrived
	}, time.Second, 2*time.Millisecond)

	res, err := c.Result(id, 0)
	require.NoError(t, err)
	assert.Equal(t, "read", res.Value)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err = c.WaitResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "read", res.Value)
}

func TestConnector_NoResponse(t *testing.T) {
	defer goleak.VerifyNone(t)

	layer := &fakeLayer{silent: true}
	c := startConnector(t, layer)
	defer c.Stop()

	id, err := c.Call("net1", "1", "os", "read")
	require.NoError(t, err)

	_, err = c.Result(id, time.Second)
	var perr *call.ProcessingError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, call.KindNoResponse, perr.Kind)
	assert.Equal(t, call.KindNoResponse, c.Error(id).Kind)
	assert.Equal(t, uint64(1), c.Stats().Failed)
}

func TestConnector_Broadcast(t *testing.T) {
	defer goleak.VerifyNone(t)

	layer := &fakeLayer{}
	c := startConnector(t, layer)
	defer c.Stop()

	id, err := c.Broadcast("net1", "ledr", "1")
	require.NoError(t, err)
	br, err := c.BroadcastResult(id, time.Second)
	require.NoError(t, err)
	assert.Equal(t, call.BroadcastOK, br)

	layer.mu.Lock()
	layer.silent = true
	layer.mu.Unlock()

	id, err = c.Broadcast("net1", "ledr", "1")
	require.NoError(t, err)
	br, err = c.BroadcastResult(id, time.Second)
	require.NoError(t, err)
	assert.Equal(t, call.BroadcastError, br)

	_, err = c.BroadcastResult(call.NewID(), 0)
	assert.ErrorIs(t, err, results.ErrNotFound)
}

func TestConnector_Stop(t *testing.T) {
	defer goleak.VerifyNone(t)

	layer := &fakeLayer{silent: true}
	c, err := New(layer, WithResponseWaiting(dispatcher.Settings{
		MaxSendAttempts:  1,
		AttemptPause:     time.Millisecond,
		BetweenSendPause: time.Millisecond,
		ResponseTimeout:  10 * time.Second,
	}))
	require.NoError(t, err)
	require.NoError(t, c.Start())

	inFlight, err := c.Call("net1", "1", "os", "a")
	require.NoError(t, err)
	queued, err := c.Call("net1", "1", "os", "b")
	require.NoError(t, err)

	c.Stop()
	c.Stop()

	assert.Nil(t, layer.currentListener())
	assert.Equal(t, call.KindDispatchToConnector, c.Error(inFlight).Kind)
	assert.Equal(t, call.KindDispatchToConnector, c.Error(queued).Kind)

	_, err = c.Call("net1", "1", "os", "c")
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, c.Start(), ErrStopped)
}

func TestConnector_StartFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	layer := &fakeLayer{startErr: errors.New("port busy")}
	c, err := New(layer)
	require.NoError(t, err)

	err = c.Start()
	assert.ErrorContains(t, err, "port busy")
	assert.Nil(t, layer.currentListener())
	c.Stop()
}

func TestConnector_Settings(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := startConnector(t, &fakeLayer{})
	defer c.Stop()

	assert.Equal(t, fastSettings(), c.ResponseWaiting())
	assert.Error(t, c.SetResponseWaiting(dispatcher.Settings{}))
	require.NoError(t, c.SetResponseWaiting(dispatcher.DefaultSettings()))
	assert.Equal(t, dispatcher.DefaultSettings(), c.ResponseWaiting())

	assert.Error(t, c.SetCallRequestsMaximalIdleTime(-time.Second))
	require.NoError(t, c.SetCallRequestsMaximalIdleTime(time.Minute))
	assert.Equal(t, time.Minute, c.CallRequestsMaximalIdleTime())

	assert.ErrorIs(t, c.SetCallRequestMaximalProcessingTime(call.NewID(), time.Second), dispatcher.ErrNotQueued)
}

func TestConnector_NewValidation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
	_, err = New(&fakeLayer{}, WithMaxIdleTime(-1))
	assert.Error(t, err)
	_, err = New(&fakeLayer{}, WithResponseWaiting(dispatcher.Settings{}))
	assert.Error(t, err)
}

func TestConnector_AsyncMessages(t *testing.T) {
	defer goleak.VerifyNone(t)

	layer := &fakeLayer{}
	c := startConnector(t, layer)
	defer c.Stop()

	all := &collector{}
	node2 := &collector{}
	require.NoError(t, c.RegisterAsyncListener(all, asyncmsg.Filter{}))
	assert.ErrorIs(t, c.RegisterAsyncListener(all, asyncmsg.Filter{}), asyncmsg.ErrDuplicateListener)
	require.NoError(t, c.RegisterAsyncListener(node2, asyncmsg.Filter{NodeID: "2"}))

	l := layer.currentListener()
	l.OnAsyncMessage(asyncmsg.Message{Kind: "DPA", Source: asyncmsg.Source{NetworkID: "net1", NodeID: "1"}})
	l.OnAsyncMessage(asyncmsg.Message{Kind: "DPA", Source: asyncmsg.Source{NetworkID: "net1", NodeID: "2"}})

	assert.Len(t, all.messages(), 2)
	assert.Len(t, node2.messages(), 1)

	assert.True(t, c.UnregisterAsyncListener(all))
	l.OnAsyncMessage(asyncmsg.Message{Kind: "DPA"})
	assert.Len(t, all.messages(), 2)
}

func TestConnector_AsyncOffload(t *testing.T) {
	layer := &fakeLayer{}
	c := startConnector(t, layer, WithAsyncOffload(true))

	col := &collector{}
	require.NoError(t, c.RegisterAsyncListener(col, asyncmsg.Filter{}))

	l := layer.currentListener()
	for i := 0; i < 20; i++ {
		l.OnAsyncMessage(asyncmsg.Message{Kind: "DPA", MainData: i})
	}

	require.Eventually(t, func() bool { return len(col.messages()) == 20 }, time.Second, 2*time.Millisecond)
	for i, m := range col.messages() {
		assert.Equal(t, i, m.MainData)
	}

	c.Stop()
	l.OnAsyncMessage(asyncmsg.Message{Kind: "DPA", MainData: 99})
	assert.Len(t, col.messages(), 20)
}
