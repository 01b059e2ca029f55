// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/simply/internal/poller"
)

// endpointClient is the exact contract the writers use.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

type dataWriter struct {
	plan Plan
	cli  endpointClient
}

// New returns a writer delivering poll data according to plan.
func New(plan Plan, cli endpointClient) Writer {
	return &dataWriter{
		plan: plan,
		cli:  cli,
	}
}

// Write copies the value of every exported read into its register range.
// Failed cycles write nothing; the status block reports them.
func (w *dataWriter) Write(res poller.PollResult) error {
	if res.Err != nil {
		return nil
	}
	if w.cli == nil {
		return fmt.Errorf("writer: missing client for endpoint %s", w.plan.Endpoint)
	}

	var errs []string

	for _, tgt := range w.plan.Targets {
		if tgt.Index < 0 || tgt.Index >= len(res.Blocks) {
			errs = append(errs, fmt.Sprintf(
				"writer: read %d missing from poll result (%d blocks)",
				tgt.Index, len(res.Blocks),
			))
			continue
		}

		regs, err := encodeValue(res.Blocks[tgt.Index].Value, tgt.Quantity)
		if err != nil {
			errs = append(errs, fmt.Sprintf(
				"writer: %s/%s.%s: %v",
				tgt.Node, tgt.Interface, tgt.Method, err,
			))
			continue
		}

		if err := w.cli.WriteRegisters(w.plan.UnitID, tgt.Register, regs); err != nil {
			errs = append(errs, fmt.Sprintf(
				"writer: ep=%s unit=%d addr=%d qty=%d err=%v",
				w.plan.Endpoint, w.plan.UnitID, tgt.Register, tgt.Quantity, err,
			))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}

	return nil
}

// encodeValue packs a response value into exactly qty registers.
// Bytes are stored two per register, big-endian; short values are
// zero-padded and long ones truncated.
func encodeValue(v any, qty uint16) ([]uint16, error) {
	var b []byte

	switch x := v.(type) {
	case nil:
	case []byte:
		b = x
	case string:
		b = []byte(x)
	case bool:
		if x {
			b = []byte{0, 1}
		} else {
			b = []byte{0, 0}
		}
	case uint8:
		b = []byte{0, x}
	case uint16:
		b = []byte{byte(x >> 8), byte(x)}
	case uint32:
		b = []byte{byte(x >> 24), byte(x >> 16), byte(x >> 8), byte(x)}
	case int:
		if x < 0 || x > 0xFFFF {
			return nil, fmt.Errorf("value %d out of register range", x)
		}
		b = []byte{byte(x >> 8), byte(x)}
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}

	regs := make([]uint16, qty)
	for i := 0; i < int(qty); i++ {
		var hi, lo byte
		if 2*i < len(b) {
			hi = b[2*i]
		}
		if 2*i+1 < len(b) {
			lo = b[2*i+1]
		}
		regs[i] = uint16(hi)<<8 | uint16(lo)
	}
	return regs, nil
}
