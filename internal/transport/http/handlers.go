package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"crewmate/internal/app"
	"crewmate/internal/domain"
)

// Response is a standard API response.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateRoomResponse is the response for room creation.
type CreateRoomResponse struct {
	RoomCode   string `json:"roomCode"`
	InviteLink string `json:"inviteLink"`
}

// GetRoomResponse is the response for getting room info.
type GetRoomResponse struct {
	RoomCode    string `json:"roomCode"`
	PlayerCount int    `json:"playerCount"`
	Started     bool   `json:"started"`
	CanJoin     bool   `json:"canJoin"`
}

// RoomExistsResponse is the response for checking if a room exists.
type RoomExistsResponse struct {
	Exists bool `json:"exists"`
}

// HealthResponse is the response for the health check.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for the stats endpoint.
type StatsResponse struct {
	ActiveSessions int `json:"activeSessions"`
	TotalPlayers   int `json:"totalPlayers"`
}

// handleCreateRoom handles POST /api/rooms.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	session, err := s.hub.CreateSession()
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "CREATION_FAILED", "Failed to create room")
		return
	}

	s.sendSuccess(w, &CreateRoomResponse{
		RoomCode:   session.ID(),
		InviteLink: inviteLink(r, session.ID()),
	})
}

// handleGetRoom handles GET /api/rooms/{roomCode}.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupRoom(w, r)
	if !ok {
		return
	}

	s.sendSuccess(w, &GetRoomResponse{
		RoomCode:    session.ID(),
		PlayerCount: session.PlayerCount(),
		Started:     session.Started(),
		CanJoin:     session.CanJoin(),
	})
}

// handleRoomExists handles GET /api/rooms/{roomCode}/exists.
func (s *Server) handleRoomExists(w http.ResponseWriter, r *http.Request) {
	roomCode := strings.ToUpper(r.PathValue("roomCode"))
	_, err := s.hub.GetSession(roomCode)
	s.sendSuccess(w, &RoomExistsResponse{Exists: err == nil})
}

// handleRoomQR handles GET /api/rooms/{roomCode}/qr. It renders the
// invite link as a PNG so phones can join a room off the host's screen.
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupRoom(w, r)
	if !ok {
		return
	}

	png, err := qrcode.Encode(inviteLink(r, session.ID()), qrcode.Medium, 256)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "QR_FAILED", "Failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &HealthResponse{Status: "ok"})
}

// handleStats handles GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &StatsResponse{
		ActiveSessions: s.hub.SessionCount(),
		TotalPlayers:   s.hub.TotalPlayerCount(),
	})
}

// lookupRoom resolves the roomCode path value to a session, writing
// the error response itself when the room is missing.
func (s *Server) lookupRoom(w http.ResponseWriter, r *http.Request) (*app.Session, bool) {
	roomCode := strings.ToUpper(r.PathValue("roomCode"))
	if roomCode == "" {
		s.sendError(w, http.StatusBadRequest, "MISSING_ROOM_CODE", "Room code is required")
		return nil, false
	}

	session, err := s.hub.GetSession(roomCode)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		} else {
			s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return nil, false
	}
	return session, true
}

// inviteLink builds the join URL for a room.
func inviteLink(r *http.Request, roomCode string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/join/" + roomCode
}

// sendSuccess writes a success response.
func (s *Server) sendSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&Response{Success: true, Data: data})
}

// sendError writes an error response.
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
	})
}
