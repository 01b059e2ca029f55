// internal/protocol/framed.go
package protocol

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tamzrod/simply/internal/call"
	"github.com/tamzrod/simply/internal/network"
)

// DefaultMaxRequestDuration bounds how long a sent request waits for its
// response in the correlation table.
const DefaultMaxRequestDuration = 10 * time.Second

type sentRequest struct {
	id        call.ID
	broadcast bool
	sentAt    time.Time
}

// Framed is a Layer built from a network layer and a Codec.
type Framed struct {
	net   network.Layer
	codec Codec
	log   *slog.Logger
	now   func() time.Time

	maxRequestDuration time.Duration

	sendMu sync.Mutex

	mu       sync.Mutex
	sent     map[string]sentRequest
	listener Listener
}

// Option configures a Framed layer.
type Option func(*Framed)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Framed) {
		if l != nil {
			f.log = l
		}
	}
}

// WithMaxRequestDuration overrides DefaultMaxRequestDuration.
func WithMaxRequestDuration(d time.Duration) Option {
	return func(f *Framed) {
		if d > 0 {
			f.maxRequestDuration = d
		}
	}
}

// NewFramed builds a protocol layer over net.
func NewFramed(net network.Layer, codec Codec, opts ...Option) (*Framed, error) {
	if net == nil {
		return nil, errors.New("protocol: network layer is nil")
	}
	if codec == nil {
		return nil, errors.New("protocol: codec is nil")
	}
	f := &Framed{
		net:                net,
		codec:              codec,
		log:                slog.Default(),
		now:                time.Now,
		maxRequestDuration: DefaultMaxRequestDuration,
		sent:               make(map[string]sentRequest),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With("component", "protocol")
	return f, nil
}

// SetListener installs the receiver of decoded responses. Passing nil
// detaches the current listener.
func (f *Framed) SetListener(l Listener) {
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()
}

// Start hooks into the network layer and starts it.
func (f *Framed) Start() error {
	f.net.SetListener(f.onData)
	if err := f.net.Start(); err != nil {
		return fmt.Errorf("protocol: start network: %w", err)
	}
	return nil
}

// Close stops the network layer and forgets every sent request.
func (f *Framed) Close() error {
	err := f.net.Close()
	f.mu.Lock()
	f.sent = make(map[string]sentRequest)
	f.mu.Unlock()
	return err
}

// SendRequest encodes req and hands it to the network layer.
// Encoding failures wrap ErrEncoding.
func (f *Framed) SendRequest(req *call.Request) error {
	key, payload, err := f.codec.Encode(req)
	if err != nil {
		if !errors.Is(err, ErrEncoding) {
			err = fmt.Errorf("%w: %v", ErrEncoding, err)
		}
		return err
	}

	f.mu.Lock()
	f.dropExpiredLocked()
	f.sent[key] = sentRequest{id: req.ID, broadcast: req.Broadcast, sentAt: f.now()}
	f.mu.Unlock()

	f.sendMu.Lock()
	err = f.net.Send(network.Data{NetworkID: req.NetworkID, Payload: payload})
	f.sendMu.Unlock()
	if err != nil {
		f.mu.Lock()
		if s, ok := f.sent[key]; ok && s.id == req.ID {
			delete(f.sent, key)
		}
		f.mu.Unlock()
		return fmt.Errorf("protocol: send: %w", err)
	}

	f.log.Debug("request sent", "id", req.ID, "key", key, "len", len(payload))
	return nil
}

// Pending returns how many sent requests wait for a response.
func (f *Framed) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropExpiredLocked()
	return len(f.sent)
}

func (f *Framed) dropExpiredLocked() {
	now := f.now()
	for key, s := range f.sent {
		if now.Sub(s.sentAt) > f.maxRequestDuration {
			f.log.Debug("dropping expired request", "id", s.id, "key", key)
			delete(f.sent, key)
		}
	}
}

// take removes and returns the request matching key.
func (f *Framed) take(key string, keep bool) (sentRequest, Listener, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dropExpiredLocked()
	s, ok := f.sent[key]
	if ok && !keep {
		delete(f.sent, key)
	}
	return s, f.listener, ok
}

func (f *Framed) currentListener() Listener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listener
}

func (f *Framed) onData(d network.Data) {
	frame, err := f.codec.Decode(d)
	if err != nil {
		f.onDecodeError(frame.Key, err)
		return
	}

	switch frame.Kind {
	case FrameAsync:
		if l := f.currentListener(); l != nil {
			l.OnAsyncMessage(frame.Async)
		}

	case FrameConfirmation:
		s, ok := f.peek(frame.Key)
		if !ok {
			f.log.Debug("confirmation without request", "key", frame.Key)
			return
		}
		if !s.broadcast {
			f.log.Debug("confirmation received", "id", s.id)
			return
		}
		s, l, ok := f.take(frame.Key, false)
		if !ok || l == nil {
			return
		}
		l.OnResponse(Response{
			RequestID:      s.id,
			Value:          call.BroadcastOK,
			AdditionalInfo: frame.AdditionalInfo,
		})

	case FrameResponse:
		s, l, ok := f.take(frame.Key, false)
		if !ok {
			f.log.Warn("response without request", "key", frame.Key)
			return
		}
		if l == nil {
			return
		}
		l.OnResponse(Response{
			RequestID:      s.id,
			Value:          frame.Value,
			AdditionalInfo: frame.AdditionalInfo,
			Err:            frame.Err,
		})

	default:
		f.log.Warn("unknown frame kind", "kind", int(frame.Kind))
	}
}

func (f *Framed) peek(key string) (sentRequest, bool) {
	s, _, ok := f.take(key, true)
	return s, ok
}

func (f *Framed) onDecodeError(key string, err error) {
	if key == "" {
		f.log.Warn("undecodable frame dropped", "err", err)
		return
	}
	s, l, ok := f.take(key, false)
	if !ok {
		f.log.Warn("undecodable frame without request", "key", key, "err", err)
		return
	}
	if l == nil {
		return
	}
	l.OnResponse(Response{
		RequestID: s.id,
		Err:       call.WrapError(call.KindResponseDecoding, err),
	})
}
