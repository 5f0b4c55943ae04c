package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"kruzhok/internal/auth"
	"kruzhok/internal/models"
	"kruzhok/internal/social"
	"kruzhok/internal/storage"
	"kruzhok/internal/ws"
)

const historyLimit = 100

type API struct {
	auth    *auth.AuthService
	hub     *ws.Hub
	storage *storage.BboltStorage
	friends *social.FriendService
	groups  *social.GroupService
}

func New(
	authService *auth.AuthService,
	hub *ws.Hub,
	store *storage.BboltStorage,
	friends *social.FriendService,
	groups *social.GroupService,
) *API {
	return &API{
		auth:    authService,
		hub:     hub,
		storage: store,
		friends: friends,
		groups:  groups,
	}
}

type ctxKey string

const ctxUserID ctxKey = "userID"

func (a *API) getToken(r *http.Request) string {
	token := r.Header.Get("token")
	if token == "" {
		if c, err := r.Cookie("token"); err == nil {
			token = c.Value
		}
	}
	return token
}

// RequireAuth resolves the request's token to a user ID and stores it in
// the request context.
func (a *API) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.auth.VerifyToken(a.getToken(r))
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxUserID, userID)))
	}
}

func requestUserID(r *http.Request) string {
	userID, _ := r.Context().Value(ctxUserID).(string)
	return userID
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, models.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrUnauthorized):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, models.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, auth.ErrUserExists):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, auth.ErrInvalidLogin):
		status, message = http.StatusUnauthorized, err.Error()
	default:
		log.Printf("request failed: %v", err)
	}
	http.Error(w, message, status)
}

// --- auth ---

func (a *API) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	user, err := a.auth.Signup(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, user)
}

func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    resp.Token,
		HttpOnly: true,
		Path:     "/",
		Expires:  time.Unix(resp.TokenExpiry, 0),
	})
	writeJSON(w, resp)
}

func (a *API) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := a.storage.FindUser(requestUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, user)
}

// --- users and friends ---

func (a *API) SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := a.storage.SearchUsers(r.URL.Query().Get("q"), requestUserID(r), 20)
	if err != nil {
		writeError(w, err)
		return
	}
	refs := make([]models.Ref, 0, len(users))
	for _, u := range users {
		refs = append(refs, u.Ref())
	}
	writeJSON(w, refs)
}

func (a *API) FriendsHandler(w http.ResponseWriter, r *http.Request) {
	user, err := a.storage.FindUser(requestUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	friends := make([]models.User, 0, len(user.Friends))
	for _, id := range user.Friends {
		friend, err := a.storage.FindUser(id)
		if err != nil {
			continue
		}
		friends = append(friends, friend)
	}
	writeJSON(w, friends)
}

type friendRequestBody struct {
	UserID string `json:"userId"`
}

func (a *API) friendAction(w http.ResponseWriter, r *http.Request, action func(me, other string) error) {
	var req friendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := action(requestUserID(r), req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

// BlockUserHandler blocks a user, which also severs any friendship or
// pending requests between the two.
func (a *API) BlockUserHandler(w http.ResponseWriter, r *http.Request) {
	a.friendAction(w, r, a.storage.BlockUser)
}

func (a *API) UnblockUserHandler(w http.ResponseWriter, r *http.Request) {
	a.friendAction(w, r, a.storage.UnblockUser)
}

func (a *API) BlockedUsersHandler(w http.ResponseWriter, r *http.Request) {
	refs, err := a.storage.ListBlockedUsers(requestUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if refs == nil {
		refs = []models.Ref{}
	}
	writeJSON(w, refs)
}

func (a *API) SendFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	a.friendAction(w, r, a.friends.SendRequest)
}

func (a *API) AcceptFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	a.friendAction(w, r, a.friends.AcceptRequest)
}

func (a *API) DeclineFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	a.friendAction(w, r, a.friends.DeclineRequest)
}

// --- chats ---

// ChatHistoryHandler returns the direct-channel history with another user
// and marks everything that user sent as seen: opening the channel is the
// bulk seen acknowledgement. The acknowledgement runs before the read so
// the returned snapshot already carries the seen statuses.
func (a *API) ChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	otherID := r.PathValue("user")

	if err := a.storage.BulkMarkSeen(userID, otherID); err != nil {
		log.Printf("bulk mark seen failed for user %s: %v", userID, err)
	}
	messages, err := a.storage.ListDirectMessages(userID, otherID, historyLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, messages)
}

func (a *API) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	forEveryone := r.URL.Query().Get("forEveryone") == "true"
	err := a.storage.DeleteMessage(r.PathValue("id"), requestUserID(r), forEveryone)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

// --- groups ---

type createGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"memberIds"`
}

func (a *API) CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	group, err := a.groups.Create(requestUserID(r), req.Name, req.Description, req.MemberIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, group)
}

func (a *API) GroupsHandler(w http.ResponseWriter, r *http.Request) {
	groups, err := a.groups.ListFor(requestUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, groups)
}

func (a *API) GroupHandler(w http.ResponseWriter, r *http.Request) {
	group, err := a.groups.Get(r.PathValue("id"), requestUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, group)
}

func (a *API) GroupHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if _, err := a.groups.Get(r.PathValue("id"), userID); err != nil {
		writeError(w, err)
		return
	}
	messages, err := a.storage.ListGroupMessages(r.PathValue("id"), userID, historyLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, messages)
}

type memberRequest struct {
	MemberIDs []string `json:"memberIds"`
}

func (a *API) AddGroupMembersHandler(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.MemberIDs) == 0 {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	group, err := a.groups.AddMembers(r.PathValue("id"), requestUserID(r), req.MemberIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, group)
}

func (a *API) RemoveGroupMemberHandler(w http.ResponseWriter, r *http.Request) {
	group, err := a.groups.RemoveMember(r.PathValue("id"), requestUserID(r), r.PathValue("user"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, group)
}

// --- notifications ---

func (a *API) NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	notifs, err := a.storage.ListNotifications(requestUserID(r), 50)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, notifs)
}

func (a *API) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.storage.MarkNotificationRead(requestUserID(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (a *API) MarkAllNotificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.storage.MarkAllNotificationsRead(requestUserID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (a *API) UnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	count, err := a.storage.UnreadNotificationCount(requestUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]int{"count": count})
}
