// internal/device/device_test.go
package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/simply/internal/call"
	"github.com/tamzrod/simply/internal/results"
)

// fakeConn completes every call immediately with the method id as value.
type fakeConn struct {
	store    *results.Store
	calls    []string
	callErr  error
	fetches  int
	lastNode string
}

func newFakeConn() *fakeConn {
	return &fakeConn{store: results.New()}
}

func (f *fakeConn) Call(networkID, nodeID, iface, method string, args ...any) (call.ID, error) {
	if f.callErr != nil {
		return call.ID{}, f.callErr
	}
	f.calls = append(f.calls, iface+"."+method)
	f.lastNode = nodeID
	id := call.NewID()
	f.store.Add(id)
	if method == "fail" {
		f.store.Fail(id, call.NewError(call.KindNetworkInternal, "ERROR_FAIL"))
	} else if method != "hang" {
		f.store.Complete(id, &call.Result{Value: method, AdditionalInfo: "info"})
	}
	return id, nil
}

func (f *fakeConn) Result(id call.ID, timeout time.Duration) (*call.Result, error) {
	f.fetches++
	return f.store.Result(id, timeout)
}

func (f *fakeConn) WaitResult(ctx context.Context, id call.ID) (*call.Result, error) {
	f.fetches++
	return f.store.Wait(ctx, id)
}

func (f *fakeConn) State(id call.ID) call.State            { return f.store.State(id) }
func (f *fakeConn) Error(id call.ID) *call.ProcessingError { return f.store.Error(id) }

func (f *fakeConn) Broadcast(networkID, iface, method string, args ...any) (call.ID, error) {
	if f.callErr != nil {
		return call.ID{}, f.callErr
	}
	id := call.NewID()
	f.store.Add(id)
	if method != "hang" {
		f.store.Complete(id, &call.Result{Value: call.BroadcastOK})
	}
	return id, nil
}

func (f *fakeConn) BroadcastResult(id call.ID, timeout time.Duration) (call.BroadcastResult, error) {
	res, err := f.store.Result(id, timeout)
	if err != nil {
		return call.BroadcastError, err
	}
	return res.Value.(call.BroadcastResult), nil
}

func TestObject_CallSync(t *testing.T) {
	conn := newFakeConn()
	obj, err := NewObject(conn, "net1", "3", "ledr", nil)
	require.NoError(t, err)

	res, err := obj.CallSync(context.Background(), "pulse")
	require.NoError(t, err)
	assert.Equal(t, "pulse", res.Value)
	assert.Equal(t, []string{"ledr.pulse"}, conn.calls)
	assert.Equal(t, "3", conn.lastNode)
	assert.Equal(t, "net1/3/ledr", obj.String())
}

func TestObject_CallSyncTimeout(t *testing.T) {
	obj, err := NewObject(newFakeConn(), "net1", "3", "ledr", nil)
	require.NoError(t, err)
	obj.DefaultWaitingTimeout = 20 * time.Millisecond

	_, err = obj.CallSync(context.Background(), "hang")
	assert.ErrorIs(t, err, results.ErrNotYetAvailable)
}

func TestObject_ResultIsCached(t *testing.T) {
	conn := newFakeConn()
	obj, err := NewObject(conn, "net1", "3", "os", nil)
	require.NoError(t, err)

	id, err := obj.Call("read")
	require.NoError(t, err)
	assert.Equal(t, call.ResultArrived, obj.State(id))

	res, err := obj.ResultImmediately(id)
	require.NoError(t, err)
	assert.Equal(t, "read", res.Value)

	res, err = obj.ResultDefault(id)
	require.NoError(t, err)
	assert.Equal(t, "read", res.Value)
	assert.Equal(t, 1, conn.fetches)

	info, ok := obj.AdditionalInfo(id)
	assert.True(t, ok)
	assert.Equal(t, "info", info)
}

func TestObject_Failure(t *testing.T) {
	obj, err := NewObject(newFakeConn(), "net1", "3", "os", nil)
	require.NoError(t, err)

	id, err := obj.Call("fail")
	require.NoError(t, err)

	_, err = obj.ResultUnlimited(context.Background(), id)
	var perr *call.ProcessingError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, call.KindNetworkInternal, obj.Error(id).Kind)

	_, ok := obj.AdditionalInfo(id)
	assert.False(t, ok)
}

func TestObject_CallError(t *testing.T) {
	conn := newFakeConn()
	conn.callErr = errors.New("connector: stopped")
	obj, err := NewObject(conn, "net1", "3", "os", nil)
	require.NoError(t, err)

	_, err = obj.CallSync(context.Background(), "read")
	assert.EqualError(t, err, "connector: stopped")
}

func TestNewObject_Validation(t *testing.T) {
	_, err := NewObject(nil, "net1", "3", "os", nil)
	assert.Error(t, err)
	_, err = NewObject(newFakeConn(), "net1", "", "os", nil)
	assert.Error(t, err)
}

func TestBroadcaster(t *testing.T) {
	conn := newFakeConn()
	b, err := NewBroadcaster(conn, "net1")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, b.DefaultWaitingTimeout)

	br, err := b.Broadcast("ledr", "1")
	require.NoError(t, err)
	assert.Equal(t, call.BroadcastOK, br)

	id, err := b.Send("ledr", "hang")
	require.NoError(t, err)
	br, err = b.Result(id, 10*time.Millisecond)
	assert.ErrorIs(t, err, results.ErrNotYetAvailable)
	assert.Equal(t, call.BroadcastError, br)

	conn.callErr = errors.New("down")
	br, err = b.Broadcast("ledr", "1")
	assert.Error(t, err)
	assert.Equal(t, call.BroadcastError, br)

	_, err = NewBroadcaster(conn, "")
	assert.Error(t, err)
}

func TestResultsContainer_Capacity(t *testing.T) {
	c, err := NewResultsContainer(2, 0)
	require.NoError(t, err)

	a, b, d := call.NewID(), call.NewID(), call.NewID()
	c.Put(a, &call.Result{Value: 1})
	c.Put(b, &call.Result{Value: 2})
	c.Put(d, &call.Result{Value: 3})

	_, ok := c.Get(a)
	assert.False(t, ok)
	res, ok := c.Get(d)
	require.True(t, ok)
	assert.Equal(t, 3, res.Value)
	assert.Equal(t, 2, c.Len())

	c.Remove(d)
	_, ok = c.Get(d)
	assert.False(t, ok)
}

func TestResultsContainer_MaxAge(t *testing.T) {
	c, err := NewResultsContainer(DefaultContainerCapacity, time.Second)
	require.NoError(t, err)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }

	id := call.NewID()
	c.Put(id, &call.Result{Value: 1})

	now = now.Add(500 * time.Millisecond)
	_, ok := c.Get(id)
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestNewResultsContainer_Validation(t *testing.T) {
	_, err := NewResultsContainer(0, 0)
	assert.Error(t, err)
	_, err = NewResultsContainer(1, -time.Second)
	assert.Error(t, err)
}

func TestNetwork_ReusesObjects(t *testing.T) {
	conn := newFakeConn()
	n, err := NewNetwork(conn, "net1")
	require.NoError(t, err)
	n.WaitingTimeout = time.Second

	a, err := n.Object("1", "thermometer")
	require.NoError(t, err)
	b, err := n.Object("1", "thermometer")
	require.NoError(t, err)
	c, err := n.Object("2", "thermometer")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, n.Len())
	assert.Equal(t, time.Second, a.DefaultWaitingTimeout)

	res, err := n.CallSync(context.Background(), "2", "thermometer", "get")
	require.NoError(t, err)
	assert.Equal(t, "get", res.Value)
	assert.Equal(t, "2", conn.lastNode)

	_, err = n.CallSync(context.Background(), "", "thermometer", "get")
	assert.Error(t, err)
}

func TestNewNetwork_Validation(t *testing.T) {
	_, err := NewNetwork(nil, "net1")
	assert.Error(t, err)
	_, err = NewNetwork(newFakeConn(), "")
	assert.Error(t, err)
}
