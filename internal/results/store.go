// internal/results/store.go
package results

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tamzrod/simply/internal/call"
)

// DefaultMaxIdleTime is how long a finished request is kept without being
// queried.
const DefaultMaxIdleTime = 30 * time.Second

// sweepInterval bounds how often a query scans the whole store.
const sweepInterval = time.Second

var (
	// ErrNotFound is returned for ids that were never dispatched or are purged.
	ErrNotFound = errors.New("results: request not found")
	// ErrNotYetAvailable is returned when a wait ends before the request
	// reached a terminal state.
	ErrNotYetAvailable = errors.New("results: result not yet available")
)

type entry struct {
	state  call.State
	result *call.Result
	err    *call.ProcessingError

	// lastAccess is refreshed by every query and by every state change.
	lastAccess time.Time
	done       chan struct{}
}

// Store maps request ids to their processing state and outcome.
//
// The dispatcher worker is the only writer (Add, MarkWaiting, Complete,
// Fail). Any goroutine may read.
type Store struct {
	mu      sync.Mutex
	entries map[call.ID]*entry
	maxIdle time.Duration
	now     func() time.Time

	lastSweep time.Time
}

// New returns an empty store with the default idle time.
func New() *Store {
	return &Store{
		entries: make(map[call.ID]*entry),
		maxIdle: DefaultMaxIdleTime,
		now:     time.Now,
	}
}

// SetMaxIdleTime changes how long terminal entries survive without a query.
func (s *Store) SetMaxIdleTime(d time.Duration) error {
	if d < 0 {
		return errors.New("results: max idle time must be nonnegative")
	}
	s.mu.Lock()
	s.maxIdle = d
	s.mu.Unlock()
	return nil
}

// MaxIdleTime returns the current idle limit.
func (s *Store) MaxIdleTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxIdle
}

// Add registers a freshly dispatched request in state New.
// Adding an id twice is a no-op.
func (s *Store) Add(id call.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; ok {
		return
	}
	s.entries[id] = &entry{
		state:      call.New,
		lastAccess: s.now(),
		done:       make(chan struct{}),
	}
}

// MarkWaiting moves a New request to WaitingForProcessing.
func (s *Store) MarkWaiting(id call.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.state != call.New {
		return
	}
	e.state = call.WaitingForProcessing
	e.lastAccess = s.now()
}

// Complete records a successful result. It reports false if the request is
// unknown or already terminal; the stored outcome is then left untouched.
func (s *Store) Complete(id call.ID, res *call.Result) bool {
	if res == nil {
		res = &call.Result{}
	}
	return s.finish(id, call.ResultArrived, res, nil)
}

// Fail records a terminal processing error. Same contract as Complete.
func (s *Store) Fail(id call.ID, perr *call.ProcessingError) bool {
	if perr == nil {
		perr = call.NewError(call.KindNetworkInternal, "unspecified error")
	}
	return s.finish(id, call.Error, nil, perr)
}

func (s *Store) finish(id call.ID, st call.State, res *call.Result, perr *call.ProcessingError) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.state.Terminal() {
		return false
	}
	e.state = st
	e.result = res
	e.err = perr
	e.lastAccess = s.now()
	close(e.done)
	return true
}

// State returns the current state without blocking.
func (s *Store) State(id call.ID) call.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookupLocked(id)
	if !ok {
		return call.NotFound
	}
	e.lastAccess = s.now()
	return e.state
}

// Info returns a snapshot of the request.
func (s *Store) Info(id call.ID) call.Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookupLocked(id)
	if !ok {
		return call.Info{ID: id, State: call.NotFound}
	}
	e.lastAccess = s.now()
	return call.Info{ID: id, State: e.state, Result: e.result, Err: e.err}
}

// Error returns the processing error if the request ended in Error, nil
// otherwise.
func (s *Store) Error(id call.ID) *call.ProcessingError {
	info := s.Info(id)
	if info.State != call.Error {
		return nil
	}
	return info.Err
}

// Result waits up to timeout for the request to finish.
//
// A zero timeout polls. The returned error is ErrNotFound, ErrNotYetAvailable
// or the request's *call.ProcessingError.
func (s *Store) Result(id call.ID, timeout time.Duration) (*call.Result, error) {
	if timeout <= 0 {
		return s.outcome(id)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Wait(ctx, id)
}

// Wait blocks until the request finishes or ctx ends. When ctx ends first
// the error is ErrNotYetAvailable.
func (s *Store) Wait(ctx context.Context, id call.ID) (*call.Result, error) {
	s.mu.Lock()
	e, ok := s.lookupLocked(id)
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	e.lastAccess = s.now()
	done := e.done
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ErrNotYetAvailable
	}

	// e may be purged from the map by now. Its terminal fields never change.
	s.mu.Lock()
	defer s.mu.Unlock()
	e.lastAccess = s.now()
	return e.outcome()
}

func (s *Store) outcome(id call.ID) (*call.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookupLocked(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.lastAccess = s.now()
	return e.outcome()
}

func (e *entry) outcome() (*call.Result, error) {
	switch e.state {
	case call.ResultArrived:
		return e.result, nil
	case call.Error:
		return nil, e.err
	default:
		return nil, ErrNotYetAvailable
	}
}

// Len returns the number of tracked requests.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Purge drops terminal entries idle for longer than the max idle time and
// returns how many were removed. In-flight requests are never purged.
func (s *Store) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeLocked()
}

// lookupLocked returns the live entry for id. The queried entry is expired
// on the spot; the rest of the store is swept at most once per sweepInterval.
func (s *Store) lookupLocked(id call.ID) (*entry, bool) {
	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.purgeLocked()
	}
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	if e.state.Terminal() && now.Sub(e.lastAccess) > s.maxIdle {
		delete(s.entries, id)
		return nil, false
	}
	return e, true
}

func (s *Store) purgeLocked() int {
	now := s.now()
	s.lastSweep = now
	n := 0
	for id, e := range s.entries {
		if !e.state.Terminal() {
			continue
		}
		if now.Sub(e.lastAccess) > s.maxIdle {
			delete(s.entries, id)
			n++
		}
	}
	return n
}
