// internal/dispatcher/dispatcher.go

// Package dispatcher serializes call requests onto one link.
//
// Requests are queued FIFO and a single worker goroutine sends them one at a
// time, waiting for the matching response before moving on. The worker is
// the only code that talks to the protocol layer.
package dispatcher

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tamzrod/simply/internal/call"
	"github.com/tamzrod/simply/internal/protocol"
	"github.com/tamzrod/simply/internal/results"
)

var (
	// ErrStopped is returned by Dispatch after Stop.
	ErrStopped = errors.New("dispatcher: stopped")
	// ErrNotQueued is returned when a request is no longer waiting in the queue.
	ErrNotQueued = errors.New("dispatcher: request not queued")
)

// Sender is the part of the protocol layer the worker uses.
type Sender interface {
	SendRequest(req *call.Request) error
}

// Stats is a snapshot of the dispatcher counters.
type Stats struct {
	QueueLength int
	InFlight    bool

	Dispatched uint64
	Succeeded  uint64
	Failed     uint64
	Retries    uint64

	// LastError is the most recent terminal failure, nil if none yet.
	LastError   *call.ProcessingError
	LastErrorAt time.Time
}

// Dispatcher owns the request queue and its worker.
type Dispatcher struct {
	sender Sender
	store  *results.Store
	log    *slog.Logger

	mu       sync.Mutex
	settings Settings
	queue    []*call.Request
	current  call.ID
	started  bool
	stopped  bool
	stats    Stats

	signal    chan struct{}
	responses chan protocol.Response
	quit      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// New validates settings and returns a dispatcher that is not yet running.
func New(sender Sender, store *results.Store, settings Settings, opts ...Option) (*Dispatcher, error) {
	if sender == nil {
		return nil, errors.New("dispatcher: sender is nil")
	}
	if store == nil {
		return nil, errors.New("dispatcher: result store is nil")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		sender:    sender,
		store:     store,
		log:       slog.Default(),
		settings:  settings,
		signal:    make(chan struct{}, 1),
		responses: make(chan protocol.Response, 4),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With("component", "dispatcher")
	return d, nil
}

// Start launches the worker. Calling it again, or after Stop, does nothing.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true
	go d.run()
}

// Stop abandons the request in flight, fails every queued request with
// KindDispatchToConnector and waits for the worker to exit.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		started := d.started
		queued := d.queue
		d.queue = nil
		d.mu.Unlock()

		close(d.quit)
		if started {
			<-d.done
		}

		for _, req := range queued {
			d.fail(req, call.NewError(call.KindDispatchToConnector, "connector destroyed"))
		}
		d.log.Info("dispatcher stopped", "discarded", len(queued))
	})
}

// Dispatch registers req in the result store and appends it to the queue.
// It never blocks on the link. A zero request id is replaced with a fresh one.
func (d *Dispatcher) Dispatch(req *call.Request) (call.ID, error) {
	if err := req.Validate(); err != nil {
		return call.ID{}, err
	}
	r := *req
	if r.ID.IsZero() {
		r.ID = call.NewID()
	}
	if r.IssuedAt.IsZero() {
		r.IssuedAt = time.Now()
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return call.ID{}, ErrStopped
	}
	d.store.Add(r.ID)
	d.queue = append(d.queue, &r)
	d.stats.Dispatched++
	d.mu.Unlock()

	select {
	case d.signal <- struct{}{}:
	default:
	}

	d.log.Debug("request queued", "id", r.ID, "req", r.String())
	return r.ID, nil
}

// Deliver hands a protocol response to the worker. Responses that do not
// belong to the request in flight are logged and discarded.
func (d *Dispatcher) Deliver(resp protocol.Response) {
	d.mu.Lock()
	cur := d.current
	d.mu.Unlock()

	if cur.IsZero() || resp.RequestID != cur {
		d.log.Warn("discarding response for request not in flight", "id", resp.RequestID)
		return
	}
	select {
	case d.responses <- resp:
	case <-d.quit:
	}
}

// Settings returns the current response waiting settings.
func (d *Dispatcher) Settings() Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

// SetSettings replaces the response waiting settings. The request in flight
// keeps the settings it started with.
func (d *Dispatcher) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.settings = s
	d.mu.Unlock()
	return nil
}

// SetMaxProcessingTime changes the response timeout of a request that is
// still waiting in the queue.
func (d *Dispatcher) SetMaxProcessingTime(id call.ID, t time.Duration) error {
	if t <= 0 && t != call.Unlimited {
		return errors.New("dispatcher: max processing time must be > 0 or Unlimited")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, req := range d.queue {
		if req.ID == id {
			req.MaxProcessingTime = t
			return nil
		}
	}
	return ErrNotQueued
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.QueueLength = len(d.queue)
	s.InFlight = !d.current.IsZero()
	return s
}
