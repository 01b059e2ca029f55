// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tamzrod/simply/internal/call"
	"github.com/tamzrod/simply/internal/config"
)

type fakeClient struct {
	failMethod string
	failErr    error
	calls      []string
	args       [][]any
}

func (f *fakeClient) CallSync(ctx context.Context, nodeID, iface, method string, args ...any) (*call.Result, error) {
	f.calls = append(f.calls, nodeID+"/"+iface+"."+method)
	f.args = append(f.args, args)
	if method == f.failMethod {
		return nil, f.failErr
	}
	return &call.Result{Value: []byte{0x01, 0x02}, AdditionalInfo: nodeID}, nil
}

func testConfig() Config {
	return Config{
		NetworkID: "net1",
		Interval:  1 * time.Second,
		Reads: []ReadBlock{
			{Node: "1", Interface: "thermometer", Method: "get"},
			{Node: "2", Interface: "ledr", Method: "get"},
		},
	}
}

func TestPollOnce_Success(t *testing.T) {
	p, err := New(testConfig(), &fakeClient{})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	res := p.PollOnce(context.Background())
	if res.Err != nil {
		t.Fatalf("PollOnce err=%v", res.Err)
	}
	if len(res.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(res.Blocks))
	}
	if res.Blocks[1].Node != "2" || res.Blocks[1].AdditionalInfo != "2" {
		t.Fatalf("unexpected block: %+v", res.Blocks[1])
	}
	if res.RawErrorCode != 0 {
		t.Fatalf("RawErrorCode = %d, want 0", res.RawErrorCode)
	}
}

func TestPollOnce_Failure(t *testing.T) {
	cli := &fakeClient{
		failMethod: "get",
		failErr:    &call.ProcessingError{Kind: call.KindNetworkInternal, Code: 3},
	}
	p, err := New(testConfig(), cli)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	res := p.PollOnce(context.Background())
	if res.Err == nil {
		t.Fatalf("expected error, got nil")
	}
	if res.Blocks != nil {
		t.Fatalf("blocks committed on failure: %+v", res.Blocks)
	}
	if len(cli.calls) != 1 {
		t.Fatalf("cycle not aborted on first failure: %v", cli.calls)
	}
	want := uint16(call.KindNetworkInternal)<<8 | 3
	if res.RawErrorCode != want {
		t.Fatalf("RawErrorCode = %#04x, want %#04x", res.RawErrorCode, want)
	}
}

func TestErrorCode(t *testing.T) {
	if got := ErrorCode(nil); got != 0 {
		t.Fatalf("ErrorCode(nil) = %d", got)
	}
	if got := ErrorCode(errors.New("boom")); got != 1 {
		t.Fatalf("ErrorCode(plain) = %d", got)
	}
	perr := call.NewError(call.KindNoResponse, "no response after 3 attempts")
	if got := ErrorCode(perr); got != uint16(call.KindNoResponse)<<8 {
		t.Fatalf("ErrorCode(no response) = %#04x", got)
	}
}

func TestNew_Validation(t *testing.T) {
	cfg := testConfig()
	cfg.NetworkID = ""
	if _, err := New(cfg, &fakeClient{}); err == nil {
		t.Fatalf("expected error for empty network id")
	}

	cfg = testConfig()
	cfg.Interval = 0
	if _, err := New(cfg, &fakeClient{}); err == nil {
		t.Fatalf("expected error for zero interval")
	}

	cfg = testConfig()
	cfg.Reads = nil
	if _, err := New(cfg, &fakeClient{}); err == nil {
		t.Fatalf("expected error for no reads")
	}

	if _, err := New(testConfig(), nil); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestBuild_PassesData(t *testing.T) {
	cli := &fakeClient{}
	p, err := Build("net1", config.PollConfig{
		IntervalMs: 500,
		Reads: []config.ReadConfig{
			{Node: "1", Interface: "io", Method: "get"},
			{Node: "1", Interface: "io", Method: "set", Data: []byte{0x07}},
		},
	}, cli)
	if err != nil {
		t.Fatalf("Build() err=%v", err)
	}

	if res := p.PollOnce(context.Background()); res.Err != nil {
		t.Fatalf("PollOnce err=%v", res.Err)
	}
	if len(cli.args[0]) != 0 {
		t.Fatalf("unexpected args for read without data: %v", cli.args[0])
	}
	if len(cli.args[1]) != 1 {
		t.Fatalf("data not passed as argument: %v", cli.args[1])
	}
}

func TestRun_EmitsAndStops(t *testing.T) {
	cfg := testConfig()
	cfg.Interval = 10 * time.Millisecond
	p, err := New(cfg, &fakeClient{})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan PollResult)
	done := make(chan struct{})
	go func() {
		p.Run(ctx, out)
		close(done)
	}()

	select {
	case res := <-out:
		if res.NetworkID != "net1" {
			t.Fatalf("NetworkID = %q", res.NetworkID)
		}
	case <-time.After(time.Second):
		t.Fatalf("no poll result emitted")
	}

	// Run must not block on a full channel once ctx ends.
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
