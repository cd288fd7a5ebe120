package ws

import (
	"time"

	"crewmate/internal/domain"
)

// MessageType represents the type of WebSocket message.
type MessageType string

// Client → Server message types.
const (
	MsgJoin         MessageType = "join"
	MsgInput        MessageType = "input"
	MsgKill         MessageType = "kill"
	MsgReport       MessageType = "report"
	MsgEmergency    MessageType = "emergency"
	MsgVote         MessageType = "vote"
	MsgTaskComplete MessageType = "task_complete"
	MsgSabotage     MessageType = "sabotage"
	MsgStartGame    MessageType = "start_game"
	MsgPing         MessageType = "ping"
)

// Server → Client message types outside the domain event set.
const (
	MsgConnected MessageType = "connected"
	MsgError     MessageType = "error"
	MsgPong      MessageType = "pong"
)

// ClientMessage is an inbound intent. The field set is the union over
// all intent types; which fields are read depends on Type.
type ClientMessage struct {
	Type     MessageType    `json:"type"`
	Name     string         `json:"name,omitempty"`
	Color    string         `json:"color,omitempty"`
	Dir      *domain.Vector `json:"dir,omitempty"`
	Target   string         `json:"target,omitempty"`
	Task     string         `json:"task,omitempty"`
	Sabotage string         `json:"sabotage,omitempty"`
}

// ServerMessage is the outbound envelope.
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a server message with the current timestamp.
func NewServerMessage(msgType MessageType, payload any) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ConnectedPayload confirms a join and carries the initial state.
type ConnectedPayload struct {
	PlayerID string              `json:"playerId"`
	RoomCode string              `json:"roomCode"`
	State    domain.StatePayload `json:"state"`
}

// ErrorPayload reports a rejected intent.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeInvalidMessage  = "INVALID_MESSAGE"
	ErrCodeNotJoined       = "NOT_JOINED"
	ErrCodeSessionFull     = "SESSION_FULL"
	ErrCodeUnknownTask     = "UNKNOWN_TASK"
	ErrCodeUnknownSabotage = "UNKNOWN_SABOTAGE"
	ErrCodeUnknownPlayer   = "UNKNOWN_PLAYER"
	ErrCodeNotHost         = "NOT_HOST"
	ErrCodeCannotStart     = "CANNOT_START"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)
