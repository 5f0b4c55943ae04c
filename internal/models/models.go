package models

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInfrastructure = errors.New("internal error")
)

// User represents a user in the system. Friends, request and block lists
// hold user IDs.
type User struct {
	ID               string   `json:"id"`
	UserName         string   `json:"userName"`
	DisplayName      string   `json:"displayName"`
	Email            string   `json:"email,omitempty"`
	AvatarURL        string   `json:"avatarUrl"`
	Bio              string   `json:"bio,omitempty"`
	Friends          []string `json:"friends,omitempty"`
	RequestsSent     []string `json:"-"`
	RequestsReceived []string `json:"-"`
	BlockedUsers     []string `json:"-"`
	Presence         Presence `json:"presence"`
}

// Presence represents the durably stored online status of a user,
// distinct from live registry state.
type Presence struct {
	Online   bool  `json:"online"`
	LastSeen int64 `json:"lastSeen"` // Unix timestamp (seconds)
}

// Ref carries the display attributes of a user that get embedded into
// pushed events, so receivers never need a follow-up lookup.
type Ref struct {
	ID          string `json:"id"`
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

func (u User) Ref() Ref {
	return Ref{
		ID:          u.ID,
		UserName:    u.UserName,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusSeen      DeliveryStatus = "seen"
)

// Rank orders delivery statuses so transitions can be checked for
// monotonicity: sent < delivered < seen. Unknown statuses rank below sent.
func (s DeliveryStatus) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusSeen:
		return 3
	}
	return 0
}

type MessageKind string

const (
	KindText   MessageKind = "text"
	KindSystem MessageKind = "system"
)

// Message is a direct or group chat message. Exactly one of ReceiverID and
// GroupID is set. Status only ever moves forward.
type Message struct {
	ID         string         `json:"id"`
	SenderID   string         `json:"senderId"`
	ReceiverID string         `json:"receiverId,omitempty"`
	GroupID    string         `json:"groupId,omitempty"`
	Content    string         `json:"content"`
	Kind       MessageKind    `json:"kind"`
	Status     DeliveryStatus `json:"status"`
	Sender     Ref            `json:"sender"`
	Deleted    bool           `json:"-"`
	DeletedFor []string       `json:"-"`
	CreatedAt  int64          `json:"createdAt"` // Unix timestamp (seconds)
}

// VisibleTo reports whether the message should appear in reads for the
// given viewer. Soft-deleted messages are hidden from everyone, privately
// deleted ones only from the users in DeletedFor.
func (m Message) VisibleTo(userID string) bool {
	if m.Deleted {
		return false
	}
	for _, id := range m.DeletedFor {
		if id == userID {
			return false
		}
	}
	return true
}

// Group has an admin set and a member set. Admins are always treated as
// members for messaging purposes, even if not listed in Members.
type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	AvatarURL   string   `json:"avatarUrl,omitempty"`
	Members     []string `json:"members"`
	Admins      []string `json:"admins"`
	CreatedBy   string   `json:"createdBy"`
	CreatedAt   int64    `json:"createdAt"`
}

func (g Group) IsAdmin(userID string) bool {
	for _, id := range g.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

func (g Group) IsMember(userID string) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return g.IsAdmin(userID)
}

// Recipients returns the member IDs that should receive a group message,
// excluding the sender. Admins are included even if missing from Members.
func (g Group) Recipients(senderID string) []string {
	seen := make(map[string]bool, len(g.Members)+len(g.Admins))
	var out []string
	add := func(id string) {
		if id == senderID || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, id := range g.Members {
		add(id)
	}
	for _, id := range g.Admins {
		add(id)
	}
	return out
}

type NotificationType string

const (
	NotificationFriendRequest  NotificationType = "friend_request"
	NotificationFriendAccepted NotificationType = "friend_accepted"
	NotificationFriendDeclined NotificationType = "friend_declined"
	NotificationGroupInvite    NotificationType = "group_invite"
	NotificationMessage        NotificationType = "message"
)

// Notification is created by the friend/group CRUD services as a side
// effect of their own state mutation and pushed live to the target user's
// connections if any exist.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	FromID    string           `json:"fromId,omitempty"`
	GroupID   string           `json:"groupId,omitempty"`
	Text      string           `json:"text"`
	Link      string           `json:"link,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt int64            `json:"createdAt"`
}
