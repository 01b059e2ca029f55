// internal/network/serial/layer.go

// Package serial is a network layer over a UART link to an IQRF
// coordinator.
package serial

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	goserial "github.com/goburrow/serial"

	"github.com/tamzrod/simply/internal/network"
)

// Config describes the serial port.
type Config struct {
	NetworkID   string
	Address     string
	BaudRate    int
	ReadTimeout time.Duration
}

// Layer implements network.Layer on a serial port.
type Layer struct {
	cfg  Config
	open func() (io.ReadWriteCloser, error)
	log  *slog.Logger

	mu       sync.Mutex
	port     io.ReadWriteCloser
	listener func(network.Data)
	closed   bool
	done     chan struct{}

	writeMu sync.Mutex
}

// Option configures a Layer.
type Option func(*Layer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Layer) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPort uses an already open port instead of opening cfg.Address.
func WithPort(p io.ReadWriteCloser) Option {
	return func(s *Layer) {
		s.open = func() (io.ReadWriteCloser, error) { return p, nil }
	}
}

// New validates cfg. The port is opened by Start.
func New(cfg Config, opts ...Option) (*Layer, error) {
	if cfg.NetworkID == "" {
		return nil, errors.New("serial: network id required")
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 115200
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 100 * time.Millisecond
	}

	s := &Layer{cfg: cfg, log: slog.Default()}
	s.open = s.openPort
	for _, opt := range opts {
		opt(s)
	}
	if s.open == nil {
		return nil, errors.New("serial: no port")
	}
	s.log = s.log.With("component", "serial", "network", cfg.NetworkID)
	return s, nil
}

func (s *Layer) openPort() (io.ReadWriteCloser, error) {
	if s.cfg.Address == "" {
		return nil, errors.New("serial: address required")
	}
	return goserial.Open(&goserial.Config{
		Address:  s.cfg.Address,
		BaudRate: s.cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  s.cfg.ReadTimeout,
	})
}

// SetListener implements network.Layer.
func (s *Layer) SetListener(fn func(network.Data)) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

// Start opens the port and launches the receive goroutine.
func (s *Layer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return network.ErrClosed
	}
	if s.port != nil {
		return nil
	}
	port, err := s.open()
	if err != nil {
		return fmt.Errorf("serial: open %s: %w", s.cfg.Address, err)
	}
	s.port = port
	s.done = make(chan struct{})
	go s.readLoop(port, s.done)

	s.log.Info("serial port open", "address", s.cfg.Address, "baud", s.cfg.BaudRate)
	return nil
}

// Send frames and writes one payload.
func (s *Layer) Send(d network.Data) error {
	s.mu.Lock()
	port, closed := s.port, s.closed
	s.mu.Unlock()

	if closed {
		return network.ErrClosed
	}
	if port == nil {
		return errors.New("serial: not started")
	}

	frame := encodeFrame(d.Payload)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := port.Write(frame); err != nil {
		return fmt.Errorf("serial: write: %w", err)
	}
	return nil
}

// Close closes the port and waits for the receive goroutine.
func (s *Layer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	port, done := s.port, s.done
	s.mu.Unlock()

	if port == nil {
		return nil
	}
	err := port.Close()
	<-done
	return err
}

func (s *Layer) readLoop(port io.Reader, done chan struct{}) {
	defer close(done)

	var df deframer
	buf := make([]byte, 256)
	emit := func(payload []byte) {
		s.mu.Lock()
		fn := s.listener
		s.mu.Unlock()
		if fn != nil {
			fn(network.Data{NetworkID: s.cfg.NetworkID, Payload: payload})
		}
	}
	bad := func(err error) {
		s.log.Warn("dropping frame", "err", err)
	}

	for {
		n, err := port.Read(buf)
		if n > 0 {
			df.feed(buf[:n], emit, bad)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, goserial.ErrTimeout) {
			continue
		}
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			s.log.Error("serial read failed", "err", err)
		}
		return
	}
}
