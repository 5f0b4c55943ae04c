package ws

import "kruzhok/internal/models"

// PushNotification delivers an already-persisted notification to the
// target user's live handles. Callers must persist the record first, so a
// client reacting to the live event and immediately re-reading
// notification state is guaranteed to see it. A user with no live handles
// needs no special handling: the stored record stays discoverable through
// its unread flag.
func (h *Hub) PushNotification(n models.Notification) {
	h.pushTo(n.UserID, models.ServerEvent{
		Type:         models.ServerEventNotification,
		Notification: &n,
	})
}
