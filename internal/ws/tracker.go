package ws

import (
	"errors"
	"fmt"

	"kruzhok/internal/models"
)

// MarkSeen records an explicit seen acknowledgement for one message. The
// acknowledging user must be the message's receiver. On success a
// messageSeen event is pushed to the sender's live handles; a sender with
// none is a no-op.
func (h *Hub) MarkSeen(userID, messageID string) error {
	if messageID == "" {
		return fmt.Errorf("%w: message id is required", models.ErrValidation)
	}

	msg, err := h.store.FindMessage(messageID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: message", models.ErrNotFound)
		}
		return fmt.Errorf("%w: message lookup: %v", models.ErrInfrastructure, err)
	}
	if msg.ReceiverID == "" || msg.ReceiverID != userID {
		return fmt.Errorf("%w: you are not the receiver of this message", models.ErrUnauthorized)
	}

	if msg.Status == models.StatusSeen {
		return nil
	}
	if err := h.store.UpdateMessageStatus(messageID, models.StatusSeen); err != nil {
		return fmt.Errorf("%w: status update: %v", models.ErrInfrastructure, err)
	}

	h.pushTo(msg.SenderID, models.ServerEvent{
		Type:      models.ServerEventMessageSeen,
		MessageID: messageID,
	})
	return nil
}
