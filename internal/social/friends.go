// Package social implements the friend-graph and group CRUD services.
// They own their own state mutations and call into the coordinator's
// notification fanout as a side effect, always after the underlying
// persistence write is durable.
package social

import (
	"fmt"
	"log/slog"

	"kruzhok/internal/models"
)

// Notifier is the live-push side of the coordinator.
type Notifier interface {
	PushNotification(n models.Notification)
}

// FriendStore is the persistence surface the friend service needs.
type FriendStore interface {
	FindUser(id string) (models.User, error)
	AddFriendRequest(fromID, toID string) error
	AcceptFriendRequest(userID, requesterID string) error
	DeclineFriendRequest(userID, requesterID string) error
	InsertNotification(n models.Notification) (models.Notification, error)
}

type FriendService struct {
	store  FriendStore
	notify Notifier
	log    *slog.Logger
}

func NewFriendService(store FriendStore, notify Notifier, log *slog.Logger) *FriendService {
	if log == nil {
		log = slog.Default()
	}
	return &FriendService{store: store, notify: notify, log: log}
}

// SendRequest records a pending friend request and notifies the target.
func (s *FriendService) SendRequest(fromID, toID string) error {
	from, err := s.store.FindUser(fromID)
	if err != nil {
		return err
	}
	if err := s.store.AddFriendRequest(fromID, toID); err != nil {
		return err
	}
	s.pushNotification(models.Notification{
		UserID: toID,
		Type:   models.NotificationFriendRequest,
		FromID: fromID,
		Text:   fmt.Sprintf("%s sent you a friend request", from.DisplayName),
		Link:   "/friends/requests",
	})
	return nil
}

// AcceptRequest converts the pending request into a friendship and
// notifies the requester.
func (s *FriendService) AcceptRequest(userID, requesterID string) error {
	user, err := s.store.FindUser(userID)
	if err != nil {
		return err
	}
	if err := s.store.AcceptFriendRequest(userID, requesterID); err != nil {
		return err
	}
	s.pushNotification(models.Notification{
		UserID: requesterID,
		Type:   models.NotificationFriendAccepted,
		FromID: userID,
		Text:   fmt.Sprintf("%s accepted your friend request", user.DisplayName),
		Link:   "/chats",
	})
	return nil
}

// DeclineRequest clears the pending request and notifies the requester.
func (s *FriendService) DeclineRequest(userID, requesterID string) error {
	user, err := s.store.FindUser(userID)
	if err != nil {
		return err
	}
	if err := s.store.DeclineFriendRequest(userID, requesterID); err != nil {
		return err
	}
	s.pushNotification(models.Notification{
		UserID: requesterID,
		Type:   models.NotificationFriendDeclined,
		FromID: userID,
		Text:   fmt.Sprintf("%s declined your friend request", user.DisplayName),
	})
	return nil
}

// pushNotification persists first, fans out second. A failed persistence
// write means no live push, so clients never see a notification they
// cannot re-read.
func (s *FriendService) pushNotification(n models.Notification) {
	stored, err := s.store.InsertNotification(n)
	if err != nil {
		s.log.Error("notification insert failed", "user_id", n.UserID, "type", n.Type, "error", err)
		return
	}
	s.notify.PushNotification(stored)
}
