package models

// ClientEvent represents an event sent from the client to the server
// over an established connection.
type ClientEvent struct {
	Type       ClientEventType `json:"type"`
	ReceiverID string          `json:"receiverId,omitempty"`
	GroupID    string          `json:"groupId,omitempty"`
	Content    string          `json:"content,omitempty"`
	IsTyping   bool            `json:"isTyping,omitempty"`
	MessageID  string          `json:"messageId,omitempty"`
}

type ClientEventType string

const (
	ClientEventTyping      ClientEventType = "typing"
	ClientEventSendMessage ClientEventType = "sendMessage"
	ClientEventMessageSeen ClientEventType = "messageSeen"
)

// ServerEvent represents an event pushed to a client. Only the fields
// relevant for the given Type are populated.
type ServerEvent struct {
	Type         ServerEventType `json:"type"`
	Message      *Message        `json:"message,omitempty"`
	Notification *Notification   `json:"notification,omitempty"`
	UserID       string          `json:"userId,omitempty"`
	SenderID     string          `json:"senderId,omitempty"`
	IsTyping     bool            `json:"isTyping,omitempty"`
	MessageID    string          `json:"messageId,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

type ServerEventType string

const (
	ServerEventNewMessage   ServerEventType = "newMessage"
	ServerEventTyping       ServerEventType = "typing"
	ServerEventMessageSeen  ServerEventType = "messageSeen"
	ServerEventUserOnline   ServerEventType = "userOnline"
	ServerEventUserOffline  ServerEventType = "userOffline"
	ServerEventNotification ServerEventType = "notification"
	ServerEventError        ServerEventType = "error"
)
