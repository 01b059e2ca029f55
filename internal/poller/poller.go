// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/simply/internal/call"
)

// Client abstracts the synchronous call the poller needs.
// device.Network satisfies it.
type Client interface {
	CallSync(ctx context.Context, nodeID, iface, method string, args ...any) (*call.Result, error)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	NetworkID string
	Interval  time.Duration
	Reads     []ReadBlock
}

// Poller is a dumb, clock-driven reader.
type Poller struct {
	cfg    Config
	client Client
	now    func() time.Time
}

// New creates a poller with immutable config.
func New(cfg Config, client Client) (*Poller, error) {
	if cfg.NetworkID == "" {
		return nil, errors.New("poller: network id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if len(cfg.Reads) == 0 {
		return nil, errors.New("poller: at least one read block required")
	}
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	return &Poller{cfg: cfg, client: client, now: time.Now}, nil
}

// PollOnce performs exactly one poll cycle.
// All-or-nothing: any failure aborts the cycle.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	res := PollResult{
		NetworkID: p.cfg.NetworkID,
		At:        p.now(),
	}

	blocks := make([]BlockResult, 0, len(p.cfg.Reads))

	for _, rb := range p.cfg.Reads {
		r, err := p.client.CallSync(ctx, rb.Node, rb.Interface, rb.Method, rb.Args...)
		if err != nil {
			res.Err = fmt.Errorf("poller: %s/%s.%s: %w", rb.Node, rb.Interface, rb.Method, err)
			res.RawErrorCode = ErrorCode(err)
			return res
		}
		blocks = append(blocks, BlockResult{
			Node:           rb.Node,
			Interface:      rb.Interface,
			Method:         rb.Method,
			Value:          r.Value,
			AdditionalInfo: r.AdditionalInfo,
		})
	}

	// Commit only if all reads succeeded
	res.Blocks = blocks
	return res
}

// ErrorCode maps a poll error to a 16-bit code.
// Processing errors carry their kind in the high byte and the low byte of
// the remote response code in the low byte. Any other error is 1.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}
	var perr *call.ProcessingError
	if errors.As(err, &perr) {
		return uint16(perr.Kind)<<8 | uint16(perr.Code&0xFF)
	}
	return 1
}
