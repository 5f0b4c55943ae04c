package social

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"kruzhok/internal/content"
	"kruzhok/internal/models"
)

// GroupStore is the persistence surface the group service needs.
type GroupStore interface {
	FindUser(id string) (models.User, error)
	InsertGroup(group models.Group) (models.Group, error)
	FindGroup(id string) (models.Group, error)
	UpdateGroup(id string, mutate func(*models.Group) error) (models.Group, error)
	ListGroupsFor(userID string) ([]models.Group, error)
	InsertNotification(n models.Notification) (models.Notification, error)
}

type GroupService struct {
	store  GroupStore
	notify Notifier
	log    *slog.Logger
}

func NewGroupService(store GroupStore, notify Notifier, log *slog.Logger) *GroupService {
	if log == nil {
		log = slog.Default()
	}
	return &GroupService{store: store, notify: notify, log: log}
}

// Create makes a new group with the creator as initial admin and member,
// then notifies every other initial member.
func (s *GroupService) Create(creatorID, name, description string, memberIDs []string) (models.Group, error) {
	name = strings.TrimSpace(content.Sanitize(name))
	if name == "" {
		return models.Group{}, fmt.Errorf("%w: group name is required", models.ErrValidation)
	}

	members := []string{creatorID}
	for _, id := range memberIDs {
		if id != creatorID && !slices.Contains(members, id) {
			members = append(members, id)
		}
	}

	group, err := s.store.InsertGroup(models.Group{
		Name:        name,
		Description: strings.TrimSpace(content.Sanitize(description)),
		Members:     members,
		Admins:      []string{creatorID},
		CreatedBy:   creatorID,
	})
	if err != nil {
		return models.Group{}, err
	}

	s.notifyInvited(group, creatorID, members)
	return group, nil
}

// AddMembers adds users to the group. Only admins may add; each newly
// added member gets a group-invite notification.
func (s *GroupService) AddMembers(groupID, actorID string, memberIDs []string) (models.Group, error) {
	var added []string
	group, err := s.store.UpdateGroup(groupID, func(g *models.Group) error {
		if !g.IsAdmin(actorID) {
			return fmt.Errorf("%w: only admins can add members", models.ErrUnauthorized)
		}
		for _, id := range memberIDs {
			if g.IsMember(id) {
				continue
			}
			g.Members = append(g.Members, id)
			added = append(added, id)
		}
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}

	s.notifyInvited(group, actorID, added)
	return group, nil
}

// RemoveMember removes a user from the group. Only admins may remove, and
// admins cannot be removed.
func (s *GroupService) RemoveMember(groupID, actorID, memberID string) (models.Group, error) {
	return s.store.UpdateGroup(groupID, func(g *models.Group) error {
		if !g.IsAdmin(actorID) {
			return fmt.Errorf("%w: only admins can remove members", models.ErrUnauthorized)
		}
		if g.IsAdmin(memberID) {
			return fmt.Errorf("%w: cannot remove an admin", models.ErrValidation)
		}
		if !g.IsMember(memberID) {
			return fmt.Errorf("%w: group member", models.ErrNotFound)
		}
		out := g.Members[:0]
		for _, id := range g.Members {
			if id != memberID {
				out = append(out, id)
			}
		}
		g.Members = out
		return nil
	})
}

func (s *GroupService) ListFor(userID string) ([]models.Group, error) {
	return s.store.ListGroupsFor(userID)
}

func (s *GroupService) Get(groupID, userID string) (models.Group, error) {
	group, err := s.store.FindGroup(groupID)
	if err != nil {
		return models.Group{}, fmt.Errorf("%w: group", models.ErrNotFound)
	}
	if !group.IsMember(userID) {
		return models.Group{}, fmt.Errorf("%w: you are not a member of this group", models.ErrUnauthorized)
	}
	return group, nil
}

func (s *GroupService) notifyInvited(group models.Group, actorID string, memberIDs []string) {
	for _, id := range memberIDs {
		if id == actorID {
			continue
		}
		stored, err := s.store.InsertNotification(models.Notification{
			UserID:  id,
			Type:    models.NotificationGroupInvite,
			FromID:  actorID,
			GroupID: group.ID,
			Text:    fmt.Sprintf("You were added to the group %q", group.Name),
			Link:    "/groups/" + group.ID,
		})
		if err != nil {
			s.log.Error("notification insert failed", "user_id", id, "group_id", group.ID, "error", err)
			continue
		}
		s.notify.PushNotification(stored)
	}
}
