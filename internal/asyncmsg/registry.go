// internal/asyncmsg/registry.go
package asyncmsg

import (
	"errors"
	"log/slog"
	"reflect"
	"sync"
)

var (
	ErrNilListener       = errors.New("asyncmsg: listener is nil")
	ErrDuplicateListener = errors.New("asyncmsg: listener already registered")
	// ErrNotComparable rejects listeners that cannot be told apart, such as
	// structs holding slices or maps. Register a pointer instead.
	ErrNotComparable = errors.New("asyncmsg: listener is not comparable")
)

// Listener receives asynchronous messages. Implementations must be
// comparable (pointer types) so they can be unregistered.
type Listener interface {
	OnAsynchronousMessage(msg Message)
}

type registration struct {
	listener Listener
	filter   Filter
}

// Registry fans asynchronous messages out to registered listeners.
//
// Deliver runs every matching listener synchronously, in registration order,
// on the goroutine that calls it. That goroutine is normally the protocol
// layer's receive loop, so a listener that blocks holds up every later
// message. This is intentional backpressure toward the link; listeners that
// need to do slow work should hand the message off themselves.
type Registry struct {
	mu   sync.RWMutex
	regs []registration
	log  *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{log: log.With("component", "asyncmsg")}
}

// Register adds a listener with a filter. A listener registered twice gets
// ErrDuplicateListener and keeps its original filter.
func (r *Registry) Register(l Listener, f Filter) error {
	if l == nil {
		return ErrNilListener
	}
	if !isComparable(l) {
		return ErrNotComparable
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, reg := range r.regs {
		if reg.listener == l {
			return ErrDuplicateListener
		}
	}
	r.regs = append(r.regs, registration{listener: l, filter: f})
	return nil
}

// Unregister removes a listener. It reports whether it was registered.
func (r *Registry) Unregister(l Listener) bool {
	if l == nil || !isComparable(l) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, reg := range r.regs {
		if reg.listener == l {
			r.regs = append(r.regs[:i:i], r.regs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.regs)
}

// Deliver hands msg to every listener whose filter matches and returns how
// many listeners received it.
func (r *Registry) Deliver(msg Message) int {
	// Snapshot so listeners may (un)register from inside the callback.
	r.mu.RLock()
	regs := make([]registration, len(r.regs))
	copy(regs, r.regs)
	r.mu.RUnlock()

	n := 0
	for _, reg := range regs {
		if !reg.filter.Match(msg) {
			continue
		}
		reg.listener.OnAsynchronousMessage(msg)
		n++
	}
	if n == 0 {
		r.log.Debug("async message without listener", "msg", msg.String())
	}
	return n
}

// isComparable reports whether == on l cannot panic, looking through
// interface fields at the values they currently hold.
func isComparable(l Listener) bool {
	return reflect.ValueOf(l).Comparable()
}
