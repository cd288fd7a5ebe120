package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"crewmate/internal/app"
)

// Handler handles WebSocket upgrade requests.
type Handler struct {
	hub      *app.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *app.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins for development.
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the connection and attaches it to a session. The
// player only enters the roster on the join message.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomCode := strings.ToUpper(r.URL.Query().Get("roomCode"))
	if roomCode == "" {
		http.Error(w, "roomCode is required", http.StatusBadRequest)
		return
	}

	session, err := h.hub.GetSession(roomCode)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if !session.CanJoin() {
		http.Error(w, "Cannot join this session", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, session, h.logger)

	h.logger.Info("websocket connected", "roomCode", roomCode)

	client.Run()
}
