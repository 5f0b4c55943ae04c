package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"kruzhok/internal/auth"
	"kruzhok/internal/models"
)

func newTestStorage(t *testing.T) *BboltStorage {
	t.Helper()
	s, err := NewBboltStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewBboltStorage failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s *BboltStorage, id string) {
	t.Helper()
	err := s.UpsertCredentials(auth.UserCredentials{
		User: models.User{
			ID:          id,
			UserName:    id,
			DisplayName: id,
			Email:       id + "@example.com",
		},
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("seedUser(%s) failed: %v", id, err)
	}
}

func TestCredentials(t *testing.T) {
	s := newTestStorage(t)

	seedUser(t, s, "alice")

	creds, err := s.FindCredentialsByUsername("alice")
	if err != nil {
		t.Fatalf("FindCredentialsByUsername failed: %v", err)
	}
	if creds.ID != "alice" || creds.PasswordHash != "hash" {
		t.Errorf("unexpected credentials: %+v", creds)
	}

	if _, err := s.FindCredentialsByUsername("nobody"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	user, err := s.FindUser("alice")
	if err != nil {
		t.Fatalf("FindUser failed: %v", err)
	}
	if user.UserName != "alice" {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestSearchUsers(t *testing.T) {
	s := newTestStorage(t)

	seedUser(t, s, "alice")
	seedUser(t, s, "alina")
	seedUser(t, s, "bob")

	users, err := s.SearchUsers("ali", "bob", 10)
	if err != nil {
		t.Fatalf("SearchUsers failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(users))
	}

	// The requesting user never appears in their own results.
	users, err = s.SearchUsers("alice", "alice", 10)
	if err != nil {
		t.Fatalf("SearchUsers failed: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("expected no matches, got %d", len(users))
	}

	// Blocked in either direction is invisible.
	err = s.UpsertCredentials(auth.UserCredentials{
		User: models.User{ID: "carol", UserName: "carol", DisplayName: "carol", BlockedUsers: []string{"bob"}},
	})
	if err != nil {
		t.Fatalf("upsert carol failed: %v", err)
	}
	users, err = s.SearchUsers("carol", "bob", 10)
	if err != nil {
		t.Fatalf("SearchUsers failed: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("blocked user should be hidden, got %d matches", len(users))
	}
}

func TestFriendFlow(t *testing.T) {
	s := newTestStorage(t)
	seedUser(t, s, "alice")
	seedUser(t, s, "bob")

	if err := s.AddFriendRequest("alice", "alice"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("self-request should be rejected, got %v", err)
	}

	if err := s.AddFriendRequest("alice", "bob"); err != nil {
		t.Fatalf("AddFriendRequest failed: %v", err)
	}
	if err := s.AddFriendRequest("alice", "bob"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("duplicate request should be rejected, got %v", err)
	}
	if err := s.AddFriendRequest("bob", "alice"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("reverse request while pending should be rejected, got %v", err)
	}

	if err := s.AcceptFriendRequest("bob", "alice"); err != nil {
		t.Fatalf("AcceptFriendRequest failed: %v", err)
	}

	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		friends, err := s.AreFriends(pair[0], pair[1])
		if err != nil {
			t.Fatalf("AreFriends failed: %v", err)
		}
		if !friends {
			t.Errorf("%s and %s should be friends", pair[0], pair[1])
		}
	}

	// Pending sets are cleared on both sides.
	alice, _ := s.FindUser("alice")
	bob, _ := s.FindUser("bob")
	if len(alice.RequestsSent) != 0 || len(bob.RequestsReceived) != 0 {
		t.Error("pending request sets should be cleared after accept")
	}

	if err := s.AddFriendRequest("alice", "bob"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("request between friends should be rejected, got %v", err)
	}
}

func TestDeclineFriendRequest(t *testing.T) {
	s := newTestStorage(t)
	seedUser(t, s, "alice")
	seedUser(t, s, "bob")

	if err := s.DeclineFriendRequest("bob", "alice"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("declining a nonexistent request should fail, got %v", err)
	}

	if err := s.AddFriendRequest("alice", "bob"); err != nil {
		t.Fatalf("AddFriendRequest failed: %v", err)
	}
	if err := s.DeclineFriendRequest("bob", "alice"); err != nil {
		t.Fatalf("DeclineFriendRequest failed: %v", err)
	}

	friends, err := s.AreFriends("alice", "bob")
	if err != nil {
		t.Fatalf("AreFriends failed: %v", err)
	}
	if friends {
		t.Error("declined request must not create a friend edge")
	}

	// A new request after decline is allowed.
	if err := s.AddFriendRequest("alice", "bob"); err != nil {
		t.Errorf("request after decline should succeed, got %v", err)
	}
}

func TestBlockedFriendRequest(t *testing.T) {
	s := newTestStorage(t)
	seedUser(t, s, "alice")
	err := s.UpsertCredentials(auth.UserCredentials{
		User: models.User{ID: "bob", UserName: "bob", BlockedUsers: []string{"alice"}},
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := s.AddFriendRequest("alice", "bob"); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("request to a user who blocked the sender should fail, got %v", err)
	}
}

func TestMessages(t *testing.T) {
	s := newTestStorage(t)

	msg, err := s.InsertMessage(models.Message{
		SenderID:   "alice",
		ReceiverID: "bob",
		Content:    "hi",
		Status:     models.StatusSent,
	})
	if err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}
	if msg.ID == "" || msg.CreatedAt == 0 {
		t.Errorf("expected generated ID and timestamp, got %+v", msg)
	}

	found, err := s.FindMessage(msg.ID)
	if err != nil {
		t.Fatalf("FindMessage failed: %v", err)
	}
	if found.Content != "hi" || found.Status != models.StatusSent {
		t.Errorf("unexpected message: %+v", found)
	}

	if _, err := s.FindMessage("missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMessageStatusForwardOnly(t *testing.T) {
	s := newTestStorage(t)

	msg, err := s.InsertMessage(models.Message{
		SenderID: "alice", ReceiverID: "bob", Content: "hi", Status: models.StatusSent,
	})
	if err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	if err := s.UpdateMessageStatus(msg.ID, models.StatusSeen); err != nil {
		t.Fatalf("UpdateMessageStatus failed: %v", err)
	}

	// Regression to delivered is silently ignored.
	if err := s.UpdateMessageStatus(msg.ID, models.StatusDelivered); err != nil {
		t.Fatalf("UpdateMessageStatus failed: %v", err)
	}

	found, err := s.FindMessage(msg.ID)
	if err != nil {
		t.Fatalf("FindMessage failed: %v", err)
	}
	if found.Status != models.StatusSeen {
		t.Errorf("status regressed to %s", found.Status)
	}
}

func TestBulkMarkSeen(t *testing.T) {
	s := newTestStorage(t)

	var fromAlice []models.Message
	for i := 0; i < 3; i++ {
		m, err := s.InsertMessage(models.Message{
			SenderID: "alice", ReceiverID: "bob", Content: "hi", Status: models.StatusSent,
		})
		if err != nil {
			t.Fatalf("InsertMessage failed: %v", err)
		}
		fromAlice = append(fromAlice, m)
	}
	reply, err := s.InsertMessage(models.Message{
		SenderID: "bob", ReceiverID: "alice", Content: "yo", Status: models.StatusSent,
	})
	if err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	if err := s.BulkMarkSeen("bob", "alice"); err != nil {
		t.Fatalf("BulkMarkSeen failed: %v", err)
	}

	for _, m := range fromAlice {
		found, err := s.FindMessage(m.ID)
		if err != nil {
			t.Fatalf("FindMessage failed: %v", err)
		}
		if found.Status != models.StatusSeen {
			t.Errorf("message %s should be seen, got %s", m.ID, found.Status)
		}
	}

	// bob's own message is untouched: he is not its receiver.
	found, err := s.FindMessage(reply.ID)
	if err != nil {
		t.Fatalf("FindMessage failed: %v", err)
	}
	if found.Status != models.StatusSent {
		t.Errorf("sender's own message must not be marked, got %s", found.Status)
	}

	// Unknown conversation is a no-op.
	if err := s.BulkMarkSeen("bob", "stranger"); err != nil {
		t.Errorf("BulkMarkSeen on empty conversation failed: %v", err)
	}
}

func TestBulkMarkSeenLargeBatch(t *testing.T) {
	s := newTestStorage(t)

	const batch = 200
	var ids []string
	for i := 0; i < batch; i++ {
		m, err := s.InsertMessage(models.Message{
			SenderID: "alice", ReceiverID: "bob", Content: "hi",
			Status: models.StatusDelivered, CreatedAt: int64(i + 1),
		})
		if err != nil {
			t.Fatalf("InsertMessage failed: %v", err)
		}
		ids = append(ids, m.ID)
	}

	if err := s.BulkMarkSeen("bob", "alice"); err != nil {
		t.Fatalf("BulkMarkSeen failed: %v", err)
	}

	for _, id := range ids {
		found, err := s.FindMessage(id)
		if err != nil {
			t.Fatalf("FindMessage(%s) failed: %v", id, err)
		}
		if found.Status != models.StatusSeen {
			t.Fatalf("message %s should be seen, got %s", id, found.Status)
		}
	}

	// Conversation contents survive the rewrite intact.
	msgs, err := s.ListDirectMessages("bob", "alice", 0)
	if err != nil {
		t.Fatalf("ListDirectMessages failed: %v", err)
	}
	if len(msgs) != batch {
		t.Errorf("expected %d messages, got %d", batch, len(msgs))
	}
}

func TestBlockUnblock(t *testing.T) {
	s := newTestStorage(t)
	seedUser(t, s, "alice")
	seedUser(t, s, "bob")

	if err := s.BlockUser("alice", "alice"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("self-block should be rejected, got %v", err)
	}

	// Establish a friendship, then block: the edge is severed both ways.
	if err := s.AddFriendRequest("alice", "bob"); err != nil {
		t.Fatalf("AddFriendRequest failed: %v", err)
	}
	if err := s.AcceptFriendRequest("bob", "alice"); err != nil {
		t.Fatalf("AcceptFriendRequest failed: %v", err)
	}

	if err := s.BlockUser("alice", "bob"); err != nil {
		t.Fatalf("BlockUser failed: %v", err)
	}
	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		friends, err := s.AreFriends(pair[0], pair[1])
		if err != nil {
			t.Fatalf("AreFriends failed: %v", err)
		}
		if friends {
			t.Errorf("blocking must sever the friendship for %s", pair[0])
		}
	}

	// Blocking twice is a no-op.
	if err := s.BlockUser("alice", "bob"); err != nil {
		t.Fatalf("repeated BlockUser failed: %v", err)
	}
	blocked, err := s.ListBlockedUsers("alice")
	if err != nil {
		t.Fatalf("ListBlockedUsers failed: %v", err)
	}
	if len(blocked) != 1 || blocked[0].ID != "bob" {
		t.Fatalf("unexpected block list: %+v", blocked)
	}

	// While blocked, neither side can open a new request.
	if err := s.AddFriendRequest("bob", "alice"); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("request from blocked user should fail, got %v", err)
	}
	if err := s.AddFriendRequest("alice", "bob"); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("request to blocked user should fail, got %v", err)
	}

	if err := s.UnblockUser("alice", "bob"); err != nil {
		t.Fatalf("UnblockUser failed: %v", err)
	}
	blocked, err = s.ListBlockedUsers("alice")
	if err != nil {
		t.Fatalf("ListBlockedUsers failed: %v", err)
	}
	if len(blocked) != 0 {
		t.Errorf("block list should be empty after unblock, got %+v", blocked)
	}

	// Unblock does not restore the friendship, but a new request works.
	friends, err := s.AreFriends("alice", "bob")
	if err != nil {
		t.Fatalf("AreFriends failed: %v", err)
	}
	if friends {
		t.Error("unblock must not restore the friendship")
	}
	if err := s.AddFriendRequest("alice", "bob"); err != nil {
		t.Errorf("request after unblock should succeed, got %v", err)
	}

	// Unblocking someone never blocked is a no-op.
	if err := s.UnblockUser("bob", "alice"); err != nil {
		t.Errorf("no-op unblock failed: %v", err)
	}
}

func TestBlockClearsPendingRequests(t *testing.T) {
	s := newTestStorage(t)
	seedUser(t, s, "alice")
	seedUser(t, s, "bob")

	if err := s.AddFriendRequest("bob", "alice"); err != nil {
		t.Fatalf("AddFriendRequest failed: %v", err)
	}
	if err := s.BlockUser("alice", "bob"); err != nil {
		t.Fatalf("BlockUser failed: %v", err)
	}

	// The pending request is gone: accepting it now fails.
	if err := s.AcceptFriendRequest("alice", "bob"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("blocked request should no longer be acceptable, got %v", err)
	}
	bob, err := s.FindUser("bob")
	if err != nil {
		t.Fatalf("FindUser failed: %v", err)
	}
	if len(bob.RequestsSent) != 0 {
		t.Errorf("blocker's pending entry must be cleared on the sender too, got %v", bob.RequestsSent)
	}
}

func TestListDirectMessages(t *testing.T) {
	s := newTestStorage(t)

	for i, content := range []string{"one", "two", "three"} {
		_, err := s.InsertMessage(models.Message{
			SenderID: "alice", ReceiverID: "bob", Content: content,
			Status: models.StatusSent, CreatedAt: int64(i + 1),
		})
		if err != nil {
			t.Fatalf("InsertMessage failed: %v", err)
		}
	}

	// Order is chronological regardless of which side views it.
	for _, viewer := range []string{"alice", "bob"} {
		msgs, err := s.ListDirectMessages(viewer, "alice", 0)
		if viewer == "alice" {
			msgs, err = s.ListDirectMessages(viewer, "bob", 0)
		}
		if err != nil {
			t.Fatalf("ListDirectMessages failed: %v", err)
		}
		if len(msgs) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(msgs))
		}
		if msgs[0].Content != "one" || msgs[2].Content != "three" {
			t.Errorf("unexpected order: %s .. %s", msgs[0].Content, msgs[2].Content)
		}
	}

	msgs, err := s.ListDirectMessages("alice", "bob", 2)
	if err != nil {
		t.Fatalf("ListDirectMessages failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "two" {
		t.Errorf("limit should keep the newest messages, got %+v", msgs)
	}
}

func TestDeleteMessage(t *testing.T) {
	s := newTestStorage(t)

	msg, err := s.InsertMessage(models.Message{
		SenderID: "alice", ReceiverID: "bob", Content: "oops", Status: models.StatusSent,
	})
	if err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	if err := s.DeleteMessage(msg.ID, "bob", false); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("only the sender may delete, got %v", err)
	}

	// Delete for self: hidden from alice, visible to bob.
	if err := s.DeleteMessage(msg.ID, "alice", false); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}
	aliceView, err := s.ListDirectMessages("alice", "bob", 0)
	if err != nil {
		t.Fatalf("ListDirectMessages failed: %v", err)
	}
	if len(aliceView) != 0 {
		t.Errorf("message deleted for alice should be hidden from her, got %d", len(aliceView))
	}
	bobView, err := s.ListDirectMessages("bob", "alice", 0)
	if err != nil {
		t.Fatalf("ListDirectMessages failed: %v", err)
	}
	if len(bobView) != 1 {
		t.Errorf("message deleted only for alice should stay visible to bob, got %d", len(bobView))
	}

	// Delete for everyone: hidden from both.
	if err := s.DeleteMessage(msg.ID, "alice", true); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}
	bobView, err = s.ListDirectMessages("bob", "alice", 0)
	if err != nil {
		t.Fatalf("ListDirectMessages failed: %v", err)
	}
	if len(bobView) != 0 {
		t.Errorf("message deleted for everyone should be hidden from bob, got %d", len(bobView))
	}
}

func TestGroups(t *testing.T) {
	s := newTestStorage(t)

	group, err := s.InsertGroup(models.Group{
		Name:      "book club",
		Members:   []string{"alice", "bob"},
		Admins:    []string{"alice"},
		CreatedBy: "alice",
	})
	if err != nil {
		t.Fatalf("InsertGroup failed: %v", err)
	}
	if group.ID == "" || group.CreatedAt == 0 {
		t.Errorf("expected generated ID and timestamp, got %+v", group)
	}

	found, err := s.FindGroup(group.ID)
	if err != nil {
		t.Fatalf("FindGroup failed: %v", err)
	}
	if found.Name != "book club" {
		t.Errorf("unexpected group: %+v", found)
	}

	if _, err := s.FindGroup("missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	updated, err := s.UpdateGroup(group.ID, func(g *models.Group) error {
		g.Members = append(g.Members, "carol")
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}
	if !updated.IsMember("carol") {
		t.Error("member should be added by the mutation")
	}

	// A failing mutation aborts the update.
	boom := errors.New("boom")
	if _, err := s.UpdateGroup(group.ID, func(g *models.Group) error {
		g.Members = nil
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected mutation error, got %v", err)
	}
	found, _ = s.FindGroup(group.ID)
	if !found.IsMember("carol") {
		t.Error("aborted mutation must not change the group")
	}

	groups, err := s.ListGroupsFor("carol")
	if err != nil {
		t.Fatalf("ListGroupsFor failed: %v", err)
	}
	if len(groups) != 1 {
		t.Errorf("expected 1 group for carol, got %d", len(groups))
	}
	groups, err = s.ListGroupsFor("stranger")
	if err != nil {
		t.Fatalf("ListGroupsFor failed: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("expected no groups for stranger, got %d", len(groups))
	}
}

func TestNotifications(t *testing.T) {
	s := newTestStorage(t)

	var ids []string
	for _, text := range []string{"first", "second", "third"} {
		n, err := s.InsertNotification(models.Notification{
			UserID: "bob",
			Type:   models.NotificationFriendRequest,
			Text:   text,
		})
		if err != nil {
			t.Fatalf("InsertNotification failed: %v", err)
		}
		ids = append(ids, n.ID)
	}

	notifs, err := s.ListNotifications("bob", 0)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(notifs) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(notifs))
	}
	if notifs[0].Text != "third" {
		t.Errorf("expected newest first, got %q", notifs[0].Text)
	}

	notifs, err = s.ListNotifications("bob", 2)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(notifs) != 2 {
		t.Errorf("expected limit to apply, got %d", len(notifs))
	}

	count, err := s.UnreadNotificationCount("bob")
	if err != nil {
		t.Fatalf("UnreadNotificationCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 unread, got %d", count)
	}

	if err := s.MarkNotificationRead("bob", ids[0]); err != nil {
		t.Fatalf("MarkNotificationRead failed: %v", err)
	}
	count, _ = s.UnreadNotificationCount("bob")
	if count != 2 {
		t.Errorf("expected 2 unread after read, got %d", count)
	}

	if err := s.MarkNotificationRead("bob", "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.MarkNotificationRead("stranger", ids[0]); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("another user's notification must not be reachable, got %v", err)
	}

	if err := s.MarkAllNotificationsRead("bob"); err != nil {
		t.Fatalf("MarkAllNotificationsRead failed: %v", err)
	}
	count, _ = s.UnreadNotificationCount("bob")
	if count != 0 {
		t.Errorf("expected 0 unread after read-all, got %d", count)
	}

	// No notifications at all: empty list, zero count.
	notifs, err = s.ListNotifications("ghost", 0)
	if err != nil || len(notifs) != 0 {
		t.Errorf("expected empty list for ghost, got %v, %v", notifs, err)
	}
}
