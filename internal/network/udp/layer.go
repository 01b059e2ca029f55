// internal/network/udp/layer.go

// Package udp is a network layer talking to an IQRF Ethernet gateway.
package udp

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/tamzrod/simply/internal/network"
)

// DefaultLocalAddr is the local endpoint used when none is configured.
const DefaultLocalAddr = ":55000"

// Config describes the gateway endpoint.
type Config struct {
	NetworkID  string
	RemoteAddr string
	LocalAddr  string
}

// Layer implements network.Layer over UDP.
type Layer struct {
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	conn     *net.UDPConn
	remote   *net.UDPAddr
	listener func(network.Data)
	pacID    uint16
	closed   bool
	done     chan struct{}
}

// Option configures a Layer.
type Option func(*Layer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(u *Layer) {
		if l != nil {
			u.log = l
		}
	}
}

// New validates cfg. The socket is opened by Start.
func New(cfg Config, opts ...Option) (*Layer, error) {
	if cfg.NetworkID == "" {
		return nil, errors.New("udp: network id required")
	}
	if cfg.RemoteAddr == "" {
		return nil, errors.New("udp: remote address required")
	}
	if cfg.LocalAddr == "" {
		cfg.LocalAddr = DefaultLocalAddr
	}
	u := &Layer{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(u)
	}
	u.log = u.log.With("component", "udp", "network", cfg.NetworkID)
	return u, nil
}

// SetListener implements network.Layer.
func (u *Layer) SetListener(fn func(network.Data)) {
	u.mu.Lock()
	u.listener = fn
	u.mu.Unlock()
}

// Start binds the local socket and launches the receive goroutine.
func (u *Layer) Start() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return network.ErrClosed
	}
	if u.conn != nil {
		return nil
	}

	remote, err := net.ResolveUDPAddr("udp", u.cfg.RemoteAddr)
	if err != nil {
		return fmt.Errorf("udp: resolve %s: %w", u.cfg.RemoteAddr, err)
	}
	local, err := net.ResolveUDPAddr("udp", u.cfg.LocalAddr)
	if err != nil {
		return fmt.Errorf("udp: resolve %s: %w", u.cfg.LocalAddr, err)
	}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return fmt.Errorf("udp: listen %s: %w", u.cfg.LocalAddr, err)
	}

	u.conn = conn
	u.remote = remote
	u.done = make(chan struct{})
	go u.readLoop(conn, u.done)

	u.log.Info("udp socket open", "local", conn.LocalAddr().String(), "remote", remote.String())
	return nil
}

// LocalAddr returns the bound address, nil before Start.
func (u *Layer) LocalAddr() net.Addr {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return nil
	}
	return u.conn.LocalAddr()
}

// Send wraps the payload in a send-to-TR packet.
func (u *Layer) Send(d network.Data) error {
	if len(d.Payload) > maxDataLen {
		return fmt.Errorf("udp: payload of %d bytes too long", len(d.Payload))
	}

	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return network.ErrClosed
	}
	conn, remote := u.conn, u.remote
	if conn == nil {
		u.mu.Unlock()
		return errors.New("udp: not started")
	}
	u.pacID++
	p := packet{gwAddr: GatewayAddress, cmd: cmdSendToTR, pacID: u.pacID, data: d.Payload}
	u.mu.Unlock()

	if _, err := conn.WriteToUDP(p.marshal(), remote); err != nil {
		return fmt.Errorf("udp: write: %w", err)
	}
	return nil
}

// Close closes the socket and waits for the receive goroutine.
func (u *Layer) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true
	conn, done := u.conn, u.done
	u.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-done
	return err
}

func (u *Layer) readLoop(conn *net.UDPConn, done chan struct{}) {
	defer close(done)

	buf := make([]byte, headerLen+maxDataLen+crcLen)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			u.log.Error("udp read failed", "err", err)
			continue
		}

		p, err := parsePacket(buf[:n])
		if err != nil {
			u.log.Warn("dropping packet", "from", from.String(), "err", err)
			continue
		}
		u.handle(conn, from, p)
	}
}

func (u *Layer) handle(conn *net.UDPConn, from *net.UDPAddr, p packet) {
	switch p.cmd {
	case cmdDataFromTR:
		ack := packet{gwAddr: p.gwAddr, cmd: cmdDataFromTR | cmdResponse, subcmd: subcmdOK, pacID: p.pacID}
		if _, err := conn.WriteToUDP(ack.marshal(), from); err != nil {
			u.log.Warn("ack failed", "err", err)
		}

		u.mu.Lock()
		fn := u.listener
		u.mu.Unlock()
		if fn != nil {
			fn(network.Data{NetworkID: u.cfg.NetworkID, Payload: p.data})
		}

	case cmdSendToTR | cmdResponse:
		if p.subcmd != subcmdOK {
			u.log.Warn("gateway rejected packet", "pacid", p.pacID, "subcmd", p.subcmd)
		}

	default:
		u.log.Debug("ignoring packet", "cmd", p.cmd)
	}
}
