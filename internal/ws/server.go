package ws

import (
	"log"
	"net/http"

	"kruzhok/internal/auth"

	"github.com/gorilla/websocket"
)

// Server authenticates and upgrades inbound connections before handing
// them to the Hub. A connection that fails authentication terminates with
// no registry mutation.
type Server struct {
	auth     *auth.AuthService
	hub      *Hub
	upgrader *websocket.Upgrader
}

func NewServer(auth *auth.AuthService, hub *Hub) *Server {
	return &Server{
		auth: auth,
		hub:  hub,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}
}

func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	userID, err := s.auth.VerifyToken(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("error upgrading to websocket: %v", err)
		return
	}

	handle := NewHandle(userID)
	c := NewConnection(s.hub, conn, handle)
	if err := c.Handle(r.Context()); err != nil {
		log.Printf("connection closed for user %s: %v", userID, err)
	}
}
