package ws

import (
	"errors"
	"log/slog"
	"sync"

	"kruzhok/internal/models"
)

// Store is the persistence collaborator consumed by the coordinator.
// Implemented by internal/storage; faked in tests.
type Store interface {
	FindUser(id string) (models.User, error)
	AreFriends(a, b string) (bool, error)
	FindGroup(id string) (models.Group, error)
	InsertMessage(draft models.Message) (models.Message, error)
	FindMessage(id string) (models.Message, error)
	UpdateMessageStatus(id string, status models.DeliveryStatus) error
	SetUserOnlineStatus(id string, online bool, lastSeen int64) error
}

// Hub is the real-time coordinator: it tracks live connections via the
// Registry and routes presence, message, delivery-status, typing and
// notification events to the right handles. One slow persistence call
// never holds the registry lock, so it cannot stall fanout for unrelated
// users.
type Hub struct {
	registry *Registry
	store    Store
	log      *slog.Logger

	// Serializes the connect/disconnect presence sequence per user so a
	// user is never seen to emit offline before a later online for the
	// same disconnect/reconnect pair.
	presenceMu lockMap
}

func NewHub(store Store, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		registry: NewRegistry(),
		store:    store,
		log:      log,
	}
}

func (h *Hub) Registry() *Registry { return h.registry }

// pushTo sends an event to every live handle of a user. Each push is
// independent: one full or stale handle does not prevent delivery to the
// others. Returns the number of handles the event was enqueued to.
func (h *Hub) pushTo(userID string, ev models.ServerEvent) int {
	n := 0
	for _, handle := range h.registry.HandlesFor(userID) {
		if handle.Send(ev) {
			n++
		} else {
			h.log.Warn("dropped event", "event", ev.Type, "user_id", userID, "handle_id", handle.ID())
		}
	}
	return n
}

// reason converts a coordinator error into the user-facing text of an
// error event. Infrastructure details never leak to the client.
func reason(err error) string {
	if errors.Is(err, models.ErrValidation) ||
		errors.Is(err, models.ErrUnauthorized) ||
		errors.Is(err, models.ErrNotFound) {
		return err.Error()
	}
	return models.ErrInfrastructure.Error()
}

// lockMap hands out one mutex per key.
type lockMap struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *lockMap) get(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}
