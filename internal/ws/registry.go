package ws

import (
	"sync"
	"sync/atomic"

	"kruzhok/internal/models"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
)

const handleBuffer = 100

// Handle is one live connection of a user. It owns the outbound event
// queue for that connection; cross-connection fanout is a send into this
// queue, never a shared call stack.
type Handle struct {
	id     string
	userID string
	events chan models.ServerEvent
	closed atomic.Bool
}

func NewHandle(userID string) *Handle {
	return &Handle{
		id:     uuid.NewString(),
		userID: userID,
		events: make(chan models.ServerEvent, handleBuffer),
	}
}

func (h *Handle) ID() string     { return h.id }
func (h *Handle) UserID() string { return h.userID }

// Events is the outbound queue drained by the connection's write loop.
func (h *Handle) Events() <-chan models.ServerEvent { return h.events }

// Send enqueues an event for this connection. It never blocks: events to
// a closed handle or a full queue are dropped, so a stale or slow
// connection cannot stall fanout to anyone else.
func (h *Handle) Send(ev models.ServerEvent) bool {
	if h.closed.Load() {
		return false
	}
	select {
	case h.events <- ev:
		return true
	default:
		return false
	}
}

// Registry maps user IDs to their live connection handles. It is the only
// shared, concurrently-mutated structure in the coordinator. Pure
// in-memory state, instantiated per process (and per test).
type Registry struct {
	mu    sync.RWMutex
	conns map[string]mapset.Set[*Handle]
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]mapset.Set[*Handle])}
}

// Register adds the handle under its user and reports whether it is the
// user's first live handle. Registering the same handle twice is a no-op.
func (r *Registry) Register(h *Handle) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[h.userID]
	if !ok {
		set = mapset.NewThreadUnsafeSet[*Handle]()
		r.conns[h.userID] = set
	}
	first = set.Cardinality() == 0
	set.Add(h)
	return first
}

// Unregister removes the handle and reports whether it was present and
// whether it was the user's last live handle. A handle can be
// unregistered at most once, even if the transport reports disconnect
// multiple times.
func (r *Registry) Unregister(h *Handle) (removed, last bool) {
	if !h.closed.CompareAndSwap(false, true) {
		return false, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[h.userID]
	if !ok {
		return false, false
	}
	if !set.Contains(h) {
		return false, false
	}
	set.Remove(h)
	if set.Cardinality() == 0 {
		delete(r.conns, h.userID)
		return true, true
	}
	return true, false
}

// HandlesFor returns the user's live handles, possibly empty. A handle
// that has been unregistered is never returned.
func (r *Registry) HandlesFor(userID string) []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.conns[userID]
	if !ok {
		return nil
	}
	return set.ToSlice()
}

// Online reports whether the user has at least one live handle.
func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.conns[userID]
	return ok && set.Cardinality() > 0
}
