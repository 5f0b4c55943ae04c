package ws

import (
	"time"

	"kruzhok/internal/models"
)

// Connect registers the handle and, if it is the user's first live
// connection, marks the user online in the store and pushes a userOnline
// event to every friend's live handles.
//
// The durable online-status write is best-effort telemetry: a failure is
// logged and never fails the connection.
func (h *Hub) Connect(handle *Handle) {
	mu := h.presenceMu.get(handle.UserID())
	mu.Lock()
	defer mu.Unlock()

	first := h.registry.Register(handle)
	if !first {
		return
	}
	h.publishPresence(handle.UserID(), true)
}

// Disconnect unregisters the handle and, if it was the user's last live
// connection, marks the user offline with a last-seen timestamp and
// pushes a userOffline event to every friend's live handles. Safe to call
// more than once for the same handle.
func (h *Hub) Disconnect(handle *Handle) {
	mu := h.presenceMu.get(handle.UserID())
	mu.Lock()
	defer mu.Unlock()

	removed, last := h.registry.Unregister(handle)
	if !removed || !last {
		return
	}
	h.publishPresence(handle.UserID(), false)
}

func (h *Hub) publishPresence(userID string, online bool) {
	now := time.Now().Unix()
	if err := h.store.SetUserOnlineStatus(userID, online, now); err != nil {
		h.log.Warn("online status write failed", "user_id", userID, "online", online, "error", err)
	}

	user, err := h.store.FindUser(userID)
	if err != nil {
		h.log.Warn("presence fanout skipped", "user_id", userID, "error", err)
		return
	}

	evType := models.ServerEventUserOnline
	if !online {
		evType = models.ServerEventUserOffline
	}
	ev := models.ServerEvent{Type: evType, UserID: userID}
	for _, friendID := range user.Friends {
		h.pushTo(friendID, ev)
	}
}
