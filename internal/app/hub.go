package app

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"crewmate/internal/domain"
)

const (
	// DefaultRoomCodeLength is the default length for room codes.
	DefaultRoomCodeLength = 6

	// StaleSessionTimeout is how long an empty session lingers before
	// cleanup.
	StaleSessionTimeout = 2 * time.Hour
)

// RoomCodeChars are characters used for room codes (no ambiguous chars).
const RoomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Hub manages all active sessions. Each session is fully self-contained;
// the hub only allocates codes and owns lifecycles.
type Hub struct {
	sessions       map[string]*Session
	mu             sync.RWMutex
	settings       domain.Settings
	roomCodeLength int
	logger         *slog.Logger
	done           chan struct{}
}

// NewHub creates a session hub and starts its cleanup loop.
func NewHub(settings domain.Settings, roomCodeLength int, logger *slog.Logger) *Hub {
	if roomCodeLength <= 0 {
		roomCodeLength = DefaultRoomCodeLength
	}
	hub := &Hub{
		sessions:       make(map[string]*Session),
		settings:       settings,
		roomCodeLength: roomCodeLength,
		logger:         logger,
		done:           make(chan struct{}),
	}
	go hub.cleanupLoop()
	return hub
}

// CreateSession allocates a room code and creates a session under it.
func (h *Hub) CreateSession() (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var code string
	for attempts := 0; attempts < 10; attempts++ {
		code = h.generateRoomCode()
		if _, exists := h.sessions[code]; !exists {
			break
		}
	}
	if _, exists := h.sessions[code]; exists {
		return nil, fmt.Errorf("failed to generate unique room code")
	}

	session := NewSession(code, h.settings, h.logger)
	h.sessions[code] = session

	h.logger.Info("session created", "roomCode", code)
	return session, nil
}

// GetSession returns a session by room code.
func (h *Hub) GetSession(code string) (*Session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	session, ok := h.sessions[code]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// DeleteSession closes and removes a session.
func (h *Hub) DeleteSession(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if session, ok := h.sessions[code]; ok {
		session.Close()
		delete(h.sessions, code)
		h.logger.Info("session deleted", "roomCode", code)
	}
}

// SessionCount returns the number of active sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// TotalPlayerCount returns the player count across all sessions.
func (h *Hub) TotalPlayerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, session := range h.sessions {
		total += session.PlayerCount()
	}
	return total
}

// Close shuts down the hub and all sessions.
func (h *Hub) Close() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, session := range h.sessions {
		session.Close()
	}
	h.sessions = make(map[string]*Session)
}

// generateRoomCode generates a random room code.
func (h *Hub) generateRoomCode() string {
	b := make([]byte, h.roomCodeLength)
	rand.Read(b)

	code := make([]byte, h.roomCodeLength)
	for i := range code {
		code[i] = RoomCodeChars[int(b[i])%len(RoomCodeChars)]
	}
	return string(code)
}

// cleanupLoop periodically removes stale sessions.
func (h *Hub) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.cleanupStaleSessions()
		}
	}
}

// cleanupStaleSessions removes sessions that emptied out long ago.
func (h *Hub) cleanupStaleSessions() {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for code, session := range h.sessions {
		if session.PlayerCount() == 0 && now.Sub(session.CreatedAt()) > StaleSessionTimeout {
			session.Close()
			delete(h.sessions, code)
			h.logger.Info("stale session cleaned up", "roomCode", code)
		}
	}
}
