package storage

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"kruzhok/internal/auth"
	"kruzhok/internal/models"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	bucketUsers         = []byte("users")
	bucketUserNames     = []byte("usernames")
	bucketMessages      = []byte("messages")
	bucketMessageIndex  = []byte("message_index")
	bucketGroups        = []byte("groups")
	bucketNotifications = []byte("notifications")
)

type BboltStorage struct {
	db *bbolt.DB
}

func NewBboltStorage(path string) (*BboltStorage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			bucketUsers,
			bucketUserNames,
			bucketMessages,
			bucketMessageIndex,
			bucketGroups,
			bucketNotifications,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BboltStorage{db: db}, nil
}

func (s *BboltStorage) Close() error {
	return s.db.Close()
}

// directConvID builds a deterministic conversation bucket name for a user
// pair, independent of who sent first.
func directConvID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return fmt.Sprintf("dm_%s_%s", ids[0], ids[1])
}

func groupConvID(groupID string) string {
	return "grp_" + groupID
}

func convID(m models.Message) string {
	if m.GroupID != "" {
		return groupConvID(m.GroupID)
	}
	return directConvID(m.SenderID, m.ReceiverID)
}

// --- users and credentials ---

// UpsertCredentials stores new or updated user credentials and maintains
// the username index.
func (s *BboltStorage) UpsertCredentials(creds auth.UserCredentials) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		dbUser := toDBUser(creds)
		data, err := dbUser.MarshalBinary()
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketUsers).Put(dbUser.Key(), data); err != nil {
			return err
		}
		return tx.Bucket(bucketUserNames).Put([]byte(dbUser.UserName), dbUser.Key())
	})
}

func (s *BboltStorage) FindCredentialsByUsername(username string) (auth.UserCredentials, error) {
	var creds auth.UserCredentials
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketUserNames).Get([]byte(username))
		if id == nil {
			return models.ErrNotFound
		}
		dbUser, err := getUser(tx, string(id))
		if err != nil {
			return err
		}
		creds = auth.UserCredentials{User: fromDBUser(dbUser), PasswordHash: dbUser.PasswordHash}
		return nil
	})
	return creds, err
}

func (s *BboltStorage) FindUser(id string) (models.User, error) {
	var user models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		dbUser, err := getUser(tx, id)
		if err != nil {
			return err
		}
		user = fromDBUser(dbUser)
		return nil
	})
	return user, err
}

// SearchUsers matches the query against name, username and email,
// excluding the requesting user and anyone blocked in either direction.
func (s *BboltStorage) SearchUsers(query, currentUserID string, limit int) ([]models.User, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return nil, nil
	}

	var users []models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		current, err := getUser(tx, currentUserID)
		if err != nil {
			return err
		}
		blocked := mapset.NewThreadUnsafeSet(current.BlockedUsers...)

		return tx.Bucket(bucketUsers).ForEach(func(k, v []byte) error {
			if len(users) >= limit {
				return nil
			}
			var dbUser DBUser
			if err := dbUser.UnmarshalBinary(v); err != nil {
				return err
			}
			if dbUser.ID == currentUserID || blocked.Contains(dbUser.ID) {
				return nil
			}
			if slices.Contains(dbUser.BlockedUsers, currentUserID) {
				return nil
			}
			if strings.Contains(strings.ToLower(dbUser.DisplayName), q) ||
				strings.Contains(strings.ToLower(dbUser.UserName), q) ||
				strings.Contains(strings.ToLower(dbUser.Email), q) {
				users = append(users, fromDBUser(dbUser))
			}
			return nil
		})
	})
	return users, err
}

func (s *BboltStorage) SetUserOnlineStatus(id string, online bool, lastSeen int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		dbUser, err := getUser(tx, id)
		if err != nil {
			return err
		}
		dbUser.IsOnline = online
		dbUser.LastSeen = lastSeen
		return putUser(tx, dbUser)
	})
}

// --- friend graph ---

func (s *BboltStorage) AreFriends(a, b string) (bool, error) {
	var friends bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		dbUser, err := getUser(tx, a)
		if err != nil {
			return err
		}
		friends = slices.Contains(dbUser.Friends, b)
		return nil
	})
	return friends, err
}

// AddFriendRequest records a directional pending request in the sender's
// outgoing and the receiver's incoming set in one transaction.
func (s *BboltStorage) AddFriendRequest(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("%w: cannot friend yourself", models.ErrValidation)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		from, err := getUser(tx, fromID)
		if err != nil {
			return err
		}
		to, err := getUser(tx, toID)
		if err != nil {
			return err
		}

		switch {
		case slices.Contains(from.Friends, toID):
			return fmt.Errorf("%w: already friends", models.ErrValidation)
		case slices.Contains(from.RequestsSent, toID):
			return fmt.Errorf("%w: friend request already sent", models.ErrValidation)
		case slices.Contains(from.RequestsReceived, toID):
			return fmt.Errorf("%w: this user already sent you a request", models.ErrValidation)
		case slices.Contains(from.BlockedUsers, toID) || slices.Contains(to.BlockedUsers, fromID):
			return fmt.Errorf("%w: cannot send friend request to this user", models.ErrUnauthorized)
		}

		from.RequestsSent = append(from.RequestsSent, toID)
		to.RequestsReceived = append(to.RequestsReceived, fromID)

		if err := putUser(tx, from); err != nil {
			return err
		}
		return putUser(tx, to)
	})
}

// AcceptFriendRequest converts a pending request into a symmetric friend
// edge and clears both pending entries atomically.
func (s *BboltStorage) AcceptFriendRequest(userID, requesterID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}
		requester, err := getUser(tx, requesterID)
		if err != nil {
			return err
		}

		if !slices.Contains(user.RequestsReceived, requesterID) {
			return fmt.Errorf("%w: friend request", models.ErrNotFound)
		}

		user.RequestsReceived = remove(user.RequestsReceived, requesterID)
		requester.RequestsSent = remove(requester.RequestsSent, userID)
		if !slices.Contains(user.Friends, requesterID) {
			user.Friends = append(user.Friends, requesterID)
		}
		if !slices.Contains(requester.Friends, userID) {
			requester.Friends = append(requester.Friends, userID)
		}

		if err := putUser(tx, user); err != nil {
			return err
		}
		return putUser(tx, requester)
	})
}

// DeclineFriendRequest clears the pending entries on both sides.
func (s *BboltStorage) DeclineFriendRequest(userID, requesterID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}
		requester, err := getUser(tx, requesterID)
		if err != nil {
			return err
		}

		if !slices.Contains(user.RequestsReceived, requesterID) {
			return fmt.Errorf("%w: friend request", models.ErrNotFound)
		}

		user.RequestsReceived = remove(user.RequestsReceived, requesterID)
		requester.RequestsSent = remove(requester.RequestsSent, userID)

		if err := putUser(tx, user); err != nil {
			return err
		}
		return putUser(tx, requester)
	})
}

// BlockUser adds the target to the blocker's block list and severs any
// friendship or pending requests between the two, in both directions.
// Blocking an already-blocked user is a no-op.
func (s *BboltStorage) BlockUser(userID, targetID string) error {
	if userID == targetID {
		return fmt.Errorf("%w: cannot block yourself", models.ErrValidation)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}
		target, err := getUser(tx, targetID)
		if err != nil {
			return err
		}

		if !slices.Contains(user.BlockedUsers, targetID) {
			user.BlockedUsers = append(user.BlockedUsers, targetID)
		}
		user.Friends = remove(user.Friends, targetID)
		user.RequestsSent = remove(user.RequestsSent, targetID)
		user.RequestsReceived = remove(user.RequestsReceived, targetID)
		target.Friends = remove(target.Friends, userID)
		target.RequestsSent = remove(target.RequestsSent, userID)
		target.RequestsReceived = remove(target.RequestsReceived, userID)

		if err := putUser(tx, user); err != nil {
			return err
		}
		return putUser(tx, target)
	})
}

// UnblockUser removes the target from the blocker's block list. It does
// not restore severed friendships; those go through a new request.
func (s *BboltStorage) UnblockUser(userID, targetID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}
		user.BlockedUsers = remove(user.BlockedUsers, targetID)
		return putUser(tx, user)
	})
}

// ListBlockedUsers returns display refs for the user's block list.
// Entries for since-deleted accounts are skipped.
func (s *BboltStorage) ListBlockedUsers(userID string) ([]models.Ref, error) {
	var refs []models.Ref
	err := s.db.View(func(tx *bbolt.Tx) error {
		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}
		for _, id := range user.BlockedUsers {
			blocked, err := getUser(tx, id)
			if err != nil {
				continue
			}
			refs = append(refs, fromDBUser(blocked).Ref())
		}
		return nil
	})
	return refs, err
}

// --- messages ---

// InsertMessage persists a new message and indexes it by ID.
func (s *BboltStorage) InsertMessage(draft models.Message) (models.Message, error) {
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	if draft.CreatedAt == 0 {
		draft.CreatedAt = time.Now().Unix()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		conv := convID(draft)
		convBucket, err := tx.Bucket(bucketMessages).CreateBucketIfNotExists([]byte(conv))
		if err != nil {
			return fmt.Errorf("failed to create conversation bucket: %w", err)
		}

		seq, err := convBucket.NextSequence()
		if err != nil {
			return err
		}

		dbMsg := toDBMessage(draft)
		dbMsg.Seq = seq
		data, err := dbMsg.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		if err := convBucket.Put(dbMsg.Key(), data); err != nil {
			return fmt.Errorf("failed to put message: %w", err)
		}

		ref := DBMessageRef{ID: draft.ID, Conv: conv, Seq: seq}
		refData, err := ref.MarshalBinary()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMessageIndex).Put(ref.Key(), refData)
	})
	if err != nil {
		return models.Message{}, err
	}
	return draft, nil
}

func (s *BboltStorage) FindMessage(id string) (models.Message, error) {
	var msg models.Message
	err := s.db.View(func(tx *bbolt.Tx) error {
		dbMsg, err := getMessage(tx, id)
		if err != nil {
			return err
		}
		msg = fromDBMessage(dbMsg)
		return nil
	})
	return msg, err
}

// UpdateMessageStatus advances a message's delivery status. Transitions
// never move backward: a regression is a silent no-op.
func (s *BboltStorage) UpdateMessageStatus(id string, status models.DeliveryStatus) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		dbMsg, err := getMessage(tx, id)
		if err != nil {
			return err
		}
		if status.Rank() <= models.DeliveryStatus(dbMsg.Status).Rank() {
			return nil
		}
		dbMsg.Status = string(status)
		return putMessage(tx, dbMsg)
	})
}

// BulkMarkSeen marks all not-yet-seen messages from one sender to the
// receiver as seen. Used when the receiver opens the direct channel.
func (s *BboltStorage) BulkMarkSeen(receiverID, senderID string) error {
	conv := directConvID(receiverID, senderID)
	return s.db.Update(func(tx *bbolt.Tx) error {
		convBucket := tx.Bucket(bucketMessages).Bucket([]byte(conv))
		if convBucket == nil {
			return nil
		}
		// Collect first, write after: the bucket must not be modified
		// while a cursor walks it.
		var updates []keyedValue
		c := convBucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var dbMsg DBMessage
			if err := dbMsg.UnmarshalBinary(v); err != nil {
				return err
			}
			if dbMsg.ReceiverID != receiverID || dbMsg.Status == string(models.StatusSeen) {
				continue
			}
			dbMsg.Status = string(models.StatusSeen)
			data, err := dbMsg.MarshalBinary()
			if err != nil {
				return err
			}
			updates = append(updates, keyedValue{key: k, value: data})
		}
		return putAll(convBucket, updates)
	})
}

// ListDirectMessages returns the direct-channel history between two users
// in chronological order, excluding messages deleted for the viewer.
func (s *BboltStorage) ListDirectMessages(viewerID, otherID string, limit int) ([]models.Message, error) {
	return s.listConversation(directConvID(viewerID, otherID), viewerID, limit)
}

// ListGroupMessages returns the group history in chronological order,
// excluding messages deleted for the viewer.
func (s *BboltStorage) ListGroupMessages(groupID, viewerID string, limit int) ([]models.Message, error) {
	return s.listConversation(groupConvID(groupID), viewerID, limit)
}

func (s *BboltStorage) listConversation(conv, viewerID string, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.View(func(tx *bbolt.Tx) error {
		convBucket := tx.Bucket(bucketMessages).Bucket([]byte(conv))
		if convBucket == nil {
			return nil
		}
		return convBucket.ForEach(func(k, v []byte) error {
			var dbMsg DBMessage
			if err := dbMsg.UnmarshalBinary(v); err != nil {
				return err
			}
			msg := fromDBMessage(dbMsg)
			if msg.VisibleTo(viewerID) {
				messages = append(messages, msg)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// DeleteMessage soft-deletes a message, either for everyone or only for
// the requesting user. Only the sender may delete.
func (s *BboltStorage) DeleteMessage(id, requesterID string, forEveryone bool) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		dbMsg, err := getMessage(tx, id)
		if err != nil {
			return err
		}
		if dbMsg.SenderID != requesterID {
			return fmt.Errorf("%w: only the sender can delete a message", models.ErrUnauthorized)
		}
		if forEveryone {
			dbMsg.Deleted = true
		} else if !slices.Contains(dbMsg.DeletedFor, requesterID) {
			dbMsg.DeletedFor = append(dbMsg.DeletedFor, requesterID)
		}
		return putMessage(tx, dbMsg)
	})
}

// --- groups ---

func (s *BboltStorage) InsertGroup(group models.Group) (models.Group, error) {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		dbGroup := toDBGroup(group)
		data, err := dbGroup.MarshalBinary()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketGroups).Put(dbGroup.Key(), data)
	})
	if err != nil {
		return models.Group{}, err
	}
	return group, nil
}

func (s *BboltStorage) FindGroup(id string) (models.Group, error) {
	var group models.Group
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketGroups).Get([]byte(id))
		if data == nil {
			return models.ErrNotFound
		}
		var dbGroup DBGroup
		if err := dbGroup.UnmarshalBinary(data); err != nil {
			return err
		}
		group = fromDBGroup(dbGroup)
		return nil
	})
	return group, err
}

// UpdateGroup loads the group, applies the mutation and saves the result
// in one transaction. The closure's error aborts the update.
func (s *BboltStorage) UpdateGroup(id string, mutate func(*models.Group) error) (models.Group, error) {
	var group models.Group
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketGroups)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: group", models.ErrNotFound)
		}
		var dbGroup DBGroup
		if err := dbGroup.UnmarshalBinary(data); err != nil {
			return err
		}
		group = fromDBGroup(dbGroup)
		if err := mutate(&group); err != nil {
			return err
		}
		dbGroup = toDBGroup(group)
		out, err := dbGroup.MarshalBinary()
		if err != nil {
			return err
		}
		return b.Put(dbGroup.Key(), out)
	})
	if err != nil {
		return models.Group{}, err
	}
	return group, nil
}

func (s *BboltStorage) ListGroupsFor(userID string) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketGroups).ForEach(func(k, v []byte) error {
			var dbGroup DBGroup
			if err := dbGroup.UnmarshalBinary(v); err != nil {
				return err
			}
			group := fromDBGroup(dbGroup)
			if group.IsMember(userID) {
				groups = append(groups, group)
			}
			return nil
		})
	})
	return groups, err
}

// --- notifications ---

func (s *BboltStorage) InsertNotification(n models.Notification) (models.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().Unix()
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		userBucket, err := tx.Bucket(bucketNotifications).CreateBucketIfNotExists([]byte(n.UserID))
		if err != nil {
			return err
		}
		seq, err := userBucket.NextSequence()
		if err != nil {
			return err
		}
		dbNotif := toDBNotification(n)
		dbNotif.Seq = seq
		data, err := dbNotif.MarshalBinary()
		if err != nil {
			return err
		}
		return userBucket.Put(dbNotif.Key(), data)
	})
	if err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// ListNotifications returns the user's notifications, newest first.
func (s *BboltStorage) ListNotifications(userID string, limit int) ([]models.Notification, error) {
	var notifs []models.Notification
	err := s.db.View(func(tx *bbolt.Tx) error {
		userBucket := tx.Bucket(bucketNotifications).Bucket([]byte(userID))
		if userBucket == nil {
			return nil
		}
		c := userBucket.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(notifs) >= limit {
				break
			}
			var dbNotif DBNotification
			if err := dbNotif.UnmarshalBinary(v); err != nil {
				return err
			}
			notifs = append(notifs, fromDBNotification(dbNotif))
		}
		return nil
	})
	return notifs, err
}

// MarkNotificationRead marks one notification as read. The notification
// must belong to the given user.
func (s *BboltStorage) MarkNotificationRead(userID, notifID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		userBucket := tx.Bucket(bucketNotifications).Bucket([]byte(userID))
		if userBucket == nil {
			return fmt.Errorf("%w: notification", models.ErrNotFound)
		}
		var update *keyedValue
		c := userBucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var dbNotif DBNotification
			if err := dbNotif.UnmarshalBinary(v); err != nil {
				return err
			}
			if dbNotif.ID != notifID {
				continue
			}
			dbNotif.Read = true
			data, err := dbNotif.MarshalBinary()
			if err != nil {
				return err
			}
			update = &keyedValue{key: k, value: data}
			break
		}
		if update == nil {
			return fmt.Errorf("%w: notification", models.ErrNotFound)
		}
		return userBucket.Put(update.key, update.value)
	})
}

func (s *BboltStorage) MarkAllNotificationsRead(userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		userBucket := tx.Bucket(bucketNotifications).Bucket([]byte(userID))
		if userBucket == nil {
			return nil
		}
		var updates []keyedValue
		c := userBucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var dbNotif DBNotification
			if err := dbNotif.UnmarshalBinary(v); err != nil {
				return err
			}
			if dbNotif.Read {
				continue
			}
			dbNotif.Read = true
			data, err := dbNotif.MarshalBinary()
			if err != nil {
				return err
			}
			updates = append(updates, keyedValue{key: k, value: data})
		}
		return putAll(userBucket, updates)
	})
}

func (s *BboltStorage) UnreadNotificationCount(userID string) (int, error) {
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		userBucket := tx.Bucket(bucketNotifications).Bucket([]byte(userID))
		if userBucket == nil {
			return nil
		}
		return userBucket.ForEach(func(k, v []byte) error {
			var dbNotif DBNotification
			if err := dbNotif.UnmarshalBinary(v); err != nil {
				return err
			}
			if !dbNotif.Read {
				count++
			}
			return nil
		})
	})
	return count, err
}

// --- tx helpers and conversions ---

// keyedValue is a deferred bucket write. Cursor iteration collects these
// so puts never happen while the cursor is walking the bucket.
type keyedValue struct {
	key   []byte
	value []byte
}

func putAll(b *bbolt.Bucket, updates []keyedValue) error {
	for _, u := range updates {
		if err := b.Put(u.key, u.value); err != nil {
			return err
		}
	}
	return nil
}

func getUser(tx *bbolt.Tx, id string) (DBUser, error) {
	data := tx.Bucket(bucketUsers).Get([]byte(id))
	if data == nil {
		return DBUser{}, fmt.Errorf("%w: user %s", models.ErrNotFound, id)
	}
	var dbUser DBUser
	if err := dbUser.UnmarshalBinary(data); err != nil {
		return DBUser{}, err
	}
	return dbUser, nil
}

func putUser(tx *bbolt.Tx, dbUser DBUser) error {
	data, err := dbUser.MarshalBinary()
	if err != nil {
		return err
	}
	return tx.Bucket(bucketUsers).Put(dbUser.Key(), data)
}

func getMessage(tx *bbolt.Tx, id string) (DBMessage, error) {
	refData := tx.Bucket(bucketMessageIndex).Get([]byte(id))
	if refData == nil {
		return DBMessage{}, fmt.Errorf("%w: message %s", models.ErrNotFound, id)
	}
	var ref DBMessageRef
	if err := ref.UnmarshalBinary(refData); err != nil {
		return DBMessage{}, err
	}
	convBucket := tx.Bucket(bucketMessages).Bucket([]byte(ref.Conv))
	if convBucket == nil {
		return DBMessage{}, fmt.Errorf("%w: message %s", models.ErrNotFound, id)
	}
	probe := DBMessage{Seq: ref.Seq}
	data := convBucket.Get(probe.Key())
	if data == nil {
		return DBMessage{}, fmt.Errorf("%w: message %s", models.ErrNotFound, id)
	}
	var dbMsg DBMessage
	if err := dbMsg.UnmarshalBinary(data); err != nil {
		return DBMessage{}, err
	}
	return dbMsg, nil
}

func putMessage(tx *bbolt.Tx, dbMsg DBMessage) error {
	conv := convID(fromDBMessage(dbMsg))
	convBucket := tx.Bucket(bucketMessages).Bucket([]byte(conv))
	if convBucket == nil {
		return fmt.Errorf("%w: conversation %s", models.ErrNotFound, conv)
	}
	data, err := dbMsg.MarshalBinary()
	if err != nil {
		return err
	}
	return convBucket.Put(dbMsg.Key(), data)
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func toDBUser(creds auth.UserCredentials) DBUser {
	return DBUser{
		ID:               creds.ID,
		UserName:         creds.UserName,
		DisplayName:      creds.DisplayName,
		Email:            creds.Email,
		AvatarURL:        creds.AvatarURL,
		Bio:              creds.Bio,
		Friends:          creds.Friends,
		RequestsSent:     creds.RequestsSent,
		RequestsReceived: creds.RequestsReceived,
		BlockedUsers:     creds.BlockedUsers,
		IsOnline:         creds.Presence.Online,
		LastSeen:         creds.Presence.LastSeen,
		PasswordHash:     creds.PasswordHash,
	}
}

func fromDBUser(u DBUser) models.User {
	return models.User{
		ID:               u.ID,
		UserName:         u.UserName,
		DisplayName:      u.DisplayName,
		Email:            u.Email,
		AvatarURL:        u.AvatarURL,
		Bio:              u.Bio,
		Friends:          u.Friends,
		RequestsSent:     u.RequestsSent,
		RequestsReceived: u.RequestsReceived,
		BlockedUsers:     u.BlockedUsers,
		Presence: models.Presence{
			Online:   u.IsOnline,
			LastSeen: u.LastSeen,
		},
	}
}

func toDBMessage(m models.Message) DBMessage {
	return DBMessage{
		ID:             m.ID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		GroupID:        m.GroupID,
		Content:        m.Content,
		Kind:           string(m.Kind),
		Status:         string(m.Status),
		SenderUserName: m.Sender.UserName,
		SenderName:     m.Sender.DisplayName,
		SenderAvatar:   m.Sender.AvatarURL,
		Deleted:        m.Deleted,
		DeletedFor:     m.DeletedFor,
		CreatedAt:      m.CreatedAt,
	}
}

func fromDBMessage(m DBMessage) models.Message {
	return models.Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		GroupID:    m.GroupID,
		Content:    m.Content,
		Kind:       models.MessageKind(m.Kind),
		Status:     models.DeliveryStatus(m.Status),
		Sender: models.Ref{
			ID:          m.SenderID,
			UserName:    m.SenderUserName,
			DisplayName: m.SenderName,
			AvatarURL:   m.SenderAvatar,
		},
		Deleted:    m.Deleted,
		DeletedFor: m.DeletedFor,
		CreatedAt:  m.CreatedAt,
	}
}

func toDBGroup(g models.Group) DBGroup {
	return DBGroup{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		AvatarURL:   g.AvatarURL,
		Members:     g.Members,
		Admins:      g.Admins,
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt,
	}
}

func fromDBGroup(g DBGroup) models.Group {
	return models.Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		AvatarURL:   g.AvatarURL,
		Members:     g.Members,
		Admins:      g.Admins,
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt,
	}
}

func toDBNotification(n models.Notification) DBNotification {
	return DBNotification{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		FromID:    n.FromID,
		GroupID:   n.GroupID,
		Text:      n.Text,
		Link:      n.Link,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func fromDBNotification(n DBNotification) models.Notification {
	return models.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      models.NotificationType(n.Type),
		FromID:    n.FromID,
		GroupID:   n.GroupID,
		Text:      n.Text,
		Link:      n.Link,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
