package storage

import (
	"encoding"
	"encoding/binary"

	"github.com/vmihailenco/msgpack/v5"
)

type Storeable interface {
	Key() []byte
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type DBUser struct {
	ID               string   `msgpack:"id"`
	UserName         string   `msgpack:"userName"`
	DisplayName      string   `msgpack:"displayName"`
	Email            string   `msgpack:"email"`
	AvatarURL        string   `msgpack:"avatarUrl"`
	Bio              string   `msgpack:"bio"`
	Friends          []string `msgpack:"friends"`
	RequestsSent     []string `msgpack:"requestsSent"`
	RequestsReceived []string `msgpack:"requestsReceived"`
	BlockedUsers     []string `msgpack:"blockedUsers"`
	IsOnline         bool     `msgpack:"isOnline"`
	LastSeen         int64    `msgpack:"lastSeen"`
	PasswordHash     string   `msgpack:"passwordHash"`
}

func (u *DBUser) Key() []byte {
	return []byte(u.ID)
}

func (u *DBUser) MarshalBinary() (data []byte, err error) {
	type alias DBUser
	return msgpack.Marshal((*alias)(u))
}

func (u *DBUser) UnmarshalBinary(data []byte) error {
	type alias DBUser
	return msgpack.Unmarshal(data, (*alias)(u))
}

type DBMessage struct {
	ID             string   `msgpack:"id"`
	SenderID       string   `msgpack:"senderId"`
	ReceiverID     string   `msgpack:"receiverId"`
	GroupID        string   `msgpack:"groupId"`
	Content        string   `msgpack:"content"`
	Kind           string   `msgpack:"kind"`
	Status         string   `msgpack:"status"`
	SenderUserName string   `msgpack:"senderUserName"`
	SenderName     string   `msgpack:"senderName"`
	SenderAvatar   string   `msgpack:"senderAvatar"`
	Deleted        bool     `msgpack:"deleted"`
	DeletedFor     []string `msgpack:"deletedFor"`
	CreatedAt      int64    `msgpack:"createdAt"`
	Seq            uint64   `msgpack:"seq"`
}

// Key orders messages within a conversation bucket by insertion sequence.
func (m *DBMessage) Key() []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, m.Seq)
	return key
}

func (m *DBMessage) MarshalBinary() (data []byte, err error) {
	type alias DBMessage
	return msgpack.Marshal((*alias)(m))
}

func (m *DBMessage) UnmarshalBinary(data []byte) error {
	type alias DBMessage
	return msgpack.Unmarshal(data, (*alias)(m))
}

// DBMessageRef locates a message by ID: the conversation bucket it lives
// in and its key there.
type DBMessageRef struct {
	ID   string `msgpack:"id"`
	Conv string `msgpack:"conv"`
	Seq  uint64 `msgpack:"seq"`
}

func (r *DBMessageRef) Key() []byte {
	return []byte(r.ID)
}

func (r *DBMessageRef) MarshalBinary() (data []byte, err error) {
	type alias DBMessageRef
	return msgpack.Marshal((*alias)(r))
}

func (r *DBMessageRef) UnmarshalBinary(data []byte) error {
	type alias DBMessageRef
	return msgpack.Unmarshal(data, (*alias)(r))
}

type DBGroup struct {
	ID          string   `msgpack:"id"`
	Name        string   `msgpack:"name"`
	Description string   `msgpack:"description"`
	AvatarURL   string   `msgpack:"avatarUrl"`
	Members     []string `msgpack:"members"`
	Admins      []string `msgpack:"admins"`
	CreatedBy   string   `msgpack:"createdBy"`
	CreatedAt   int64    `msgpack:"createdAt"`
}

func (g *DBGroup) Key() []byte {
	return []byte(g.ID)
}

func (g *DBGroup) MarshalBinary() (data []byte, err error) {
	type alias DBGroup
	return msgpack.Marshal((*alias)(g))
}

func (g *DBGroup) UnmarshalBinary(data []byte) error {
	type alias DBGroup
	return msgpack.Unmarshal(data, (*alias)(g))
}

type DBNotification struct {
	ID        string `msgpack:"id"`
	UserID    string `msgpack:"userId"`
	Type      string `msgpack:"type"`
	FromID    string `msgpack:"fromId"`
	GroupID   string `msgpack:"groupId"`
	Text      string `msgpack:"text"`
	Link      string `msgpack:"link"`
	Read      bool   `msgpack:"read"`
	CreatedAt int64  `msgpack:"createdAt"`
	Seq       uint64 `msgpack:"seq"`
}

// Key orders notifications within a user's bucket by insertion sequence.
func (n *DBNotification) Key() []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, n.Seq)
	return key
}

func (n *DBNotification) MarshalBinary() (data []byte, err error) {
	type alias DBNotification
	return msgpack.Marshal((*alias)(n))
}

func (n *DBNotification) UnmarshalBinary(data []byte) error {
	type alias DBNotification
	return msgpack.Unmarshal(data, (*alias)(n))
}
