package http

import (
	"context"
	"log"
	"net/http"
	"sync"

	"kruzhok/internal/api"
	"kruzhok/internal/auth"
	"kruzhok/internal/social"
	"kruzhok/internal/storage"
	"kruzhok/internal/ws"
)

type APIServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

func NewAPIServer(
	authService *auth.AuthService,
	hub *ws.Hub,
	store *storage.BboltStorage,
	friends *social.FriendService,
	groups *social.GroupService,
	addr string,
) *APIServer {
	wsServer := ws.NewServer(authService, hub)
	handlers := api.New(authService, hub, store, friends, groups)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/signup", handlers.SignupHandler)
	mux.HandleFunc("POST /api/login", handlers.LoginHandler)
	mux.HandleFunc("GET /api/me", handlers.RequireAuth(handlers.MeHandler))

	mux.HandleFunc("GET /api/users/search", handlers.RequireAuth(handlers.SearchUsersHandler))
	mux.HandleFunc("POST /api/users/block", handlers.RequireAuth(handlers.BlockUserHandler))
	mux.HandleFunc("POST /api/users/unblock", handlers.RequireAuth(handlers.UnblockUserHandler))
	mux.HandleFunc("GET /api/users/blocked", handlers.RequireAuth(handlers.BlockedUsersHandler))
	mux.HandleFunc("GET /api/friends", handlers.RequireAuth(handlers.FriendsHandler))
	mux.HandleFunc("POST /api/friends/request", handlers.RequireAuth(handlers.SendFriendRequestHandler))
	mux.HandleFunc("POST /api/friends/accept", handlers.RequireAuth(handlers.AcceptFriendRequestHandler))
	mux.HandleFunc("POST /api/friends/decline", handlers.RequireAuth(handlers.DeclineFriendRequestHandler))

	mux.HandleFunc("GET /api/chats/{user}", handlers.RequireAuth(handlers.ChatHistoryHandler))
	mux.HandleFunc("DELETE /api/messages/{id}", handlers.RequireAuth(handlers.DeleteMessageHandler))

	mux.HandleFunc("POST /api/groups", handlers.RequireAuth(handlers.CreateGroupHandler))
	mux.HandleFunc("GET /api/groups", handlers.RequireAuth(handlers.GroupsHandler))
	mux.HandleFunc("GET /api/groups/{id}", handlers.RequireAuth(handlers.GroupHandler))
	mux.HandleFunc("GET /api/groups/{id}/messages", handlers.RequireAuth(handlers.GroupHistoryHandler))
	mux.HandleFunc("POST /api/groups/{id}/members", handlers.RequireAuth(handlers.AddGroupMembersHandler))
	mux.HandleFunc("DELETE /api/groups/{id}/members/{user}", handlers.RequireAuth(handlers.RemoveGroupMemberHandler))

	mux.HandleFunc("GET /api/notifications", handlers.RequireAuth(handlers.NotificationsHandler))
	mux.HandleFunc("POST /api/notifications/{id}/read", handlers.RequireAuth(handlers.MarkNotificationReadHandler))
	mux.HandleFunc("POST /api/notifications/read-all", handlers.RequireAuth(handlers.MarkAllNotificationsReadHandler))
	mux.HandleFunc("GET /api/notifications/unread-count", handlers.RequireAuth(handlers.UnreadCountHandler))

	// WebSocket endpoint
	mux.HandleFunc("/api/ws", wsServer.HandleConnections)

	if addr == "" {
		addr = ":8080"
	}

	return &APIServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

func (s *APIServer) Start() error {
	log.Printf("Server started on %s", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
