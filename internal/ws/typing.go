package ws

import "kruzhok/internal/models"

// RelayTyping passes a transient typing signal to the receiver's live
// handles. Typing is a low-stakes signal: no friendship check, no
// persistence, and if the receiver has no live handle the event is
// silently dropped.
func (h *Hub) RelayTyping(senderID, receiverID string, isTyping bool) {
	if receiverID == "" {
		return
	}
	h.pushTo(receiverID, models.ServerEvent{
		Type:     models.ServerEventTyping,
		SenderID: senderID,
		IsTyping: isTyping,
	})
}
