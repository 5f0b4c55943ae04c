package ws

import (
	"fmt"
	"time"

	"kruzhok/internal/content"
	"kruzhok/internal/models"
)

// SendMessage validates, persists and fans out one message. The sender ID
// comes from the authenticated connection, never from the client payload.
//
// Direct messages require an established friendship, group messages
// require current membership. On success the sender always receives its
// own copy; a direct message additionally moves to delivered when the
// receiver has at least one live handle. A receiver with no live handles
// is not an error: the message stays at sent and surfaces through the
// stored status on the next history read.
func (h *Hub) SendMessage(senderID string, target Target, rawContent string) (models.Message, error) {
	text, err := content.NormalizeMessage(rawContent)
	if err != nil {
		return models.Message{}, err
	}
	if !target.IsDirect() && !target.IsGroup() {
		return models.Message{}, fmt.Errorf("%w: receiver or group is required", models.ErrValidation)
	}

	var group models.Group
	if target.IsDirect() {
		friends, err := h.store.AreFriends(senderID, target.User())
		if err != nil {
			return models.Message{}, fmt.Errorf("%w: friendship check: %v", models.ErrInfrastructure, err)
		}
		if !friends {
			return models.Message{}, fmt.Errorf("%w: you can only message your friends", models.ErrUnauthorized)
		}
	} else {
		group, err = h.store.FindGroup(target.Group())
		if err != nil {
			return models.Message{}, fmt.Errorf("%w: group", models.ErrNotFound)
		}
		if !group.IsMember(senderID) {
			return models.Message{}, fmt.Errorf("%w: you are not a member of this group", models.ErrUnauthorized)
		}
	}

	sender, err := h.store.FindUser(senderID)
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: sender lookup: %v", models.ErrInfrastructure, err)
	}

	msg, err := h.store.InsertMessage(models.Message{
		SenderID:   senderID,
		ReceiverID: target.User(),
		GroupID:    target.Group(),
		Content:    text,
		Kind:       models.KindText,
		Status:     models.StatusSent,
		Sender:     sender.Ref(),
		CreatedAt:  time.Now().Unix(),
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: message insert: %v", models.ErrInfrastructure, err)
	}

	if target.IsGroup() {
		h.fanOutGroup(group, msg)
	} else {
		msg = h.fanOutDirect(msg)
	}
	return msg, nil
}

func (h *Hub) fanOutGroup(group models.Group, msg models.Message) {
	ev := models.ServerEvent{Type: models.ServerEventNewMessage, Message: &msg}
	for _, memberID := range group.Recipients(msg.SenderID) {
		h.pushTo(memberID, ev)
	}
	h.pushTo(msg.SenderID, ev)
}

func (h *Hub) fanOutDirect(msg models.Message) models.Message {
	// Sender echo goes out first so it is never delayed by receiver fanout.
	h.pushTo(msg.SenderID, models.ServerEvent{Type: models.ServerEventNewMessage, Message: &msg})

	if !h.registry.Online(msg.ReceiverID) {
		return msg
	}

	msg.Status = models.StatusDelivered
	if err := h.store.UpdateMessageStatus(msg.ID, models.StatusDelivered); err != nil {
		h.log.Warn("delivered status write failed", "message_id", msg.ID, "error", err)
	}
	h.pushTo(msg.ReceiverID, models.ServerEvent{Type: models.ServerEventNewMessage, Message: &msg})
	return msg
}
