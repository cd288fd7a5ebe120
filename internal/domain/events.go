package domain

// EventType names an outbound event. The values are the wire names
// broadcast to clients.
type EventType string

const (
	EventPlayerJoined   EventType = "player_joined"
	EventPlayerLeft     EventType = "player_left"
	EventPlayerKilled   EventType = "player_killed"
	EventMeetingStarted EventType = "meeting_started"
	EventVoteUpdate     EventType = "vote_update"
	EventMeetingEnded   EventType = "meeting_ended"
	EventTaskComplete   EventType = "task_complete"
	EventSabotage       EventType = "sabotage"
	EventSabotageReset  EventType = "sabotage_reset"
	EventGameStarted    EventType = "game_started"
	EventRoleAssigned   EventType = "role_assigned"
	EventGameOver       EventType = "game_over"
	EventState          EventType = "state"
)

// Event is an outbound event produced by a state transition. PlayerID,
// when set, addresses the event to a single player instead of the whole
// session.
type Event struct {
	Type     EventType `json:"type"`
	PlayerID string    `json:"-"`
	Payload  any       `json:"payload,omitempty"`
}

// NewEvent creates a broadcast event.
func NewEvent(eventType EventType, payload any) *Event {
	return &Event{Type: eventType, Payload: payload}
}

// NewPlayerEvent creates an event addressed to a single player.
func NewPlayerEvent(eventType EventType, playerID string, payload any) *Event {
	return &Event{Type: eventType, PlayerID: playerID, Payload: payload}
}

// Event payloads.

// PlayerJoinedPayload announces a new roster member.
type PlayerJoinedPayload struct {
	Player Player `json:"player"`
}

// PlayerLeftPayload announces a roster removal.
type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

// PlayerKilledPayload announces a resolved kill.
type PlayerKilledPayload struct {
	Killer string `json:"killer"`
	Victim string `json:"victim"`
}

// MeetingStartedPayload announces a meeting.
type MeetingStartedPayload struct {
	Reporter string        `json:"reporter"`
	Reason   MeetingReason `json:"reason"`
}

// VoteUpdatePayload carries the running vote count. Only the count is
// revealed; the ballot stays secret until the meeting resolves.
type VoteUpdatePayload struct {
	Votes int `json:"votes"`
}

// MeetingEndedPayload announces the meeting outcome. Ejected is nil on
// a tie, a skip majority, or an empty ballot, and Impostor is false
// whenever nobody was ejected.
type MeetingEndedPayload struct {
	Ejected  *string `json:"ejected"`
	Impostor bool    `json:"impostor"`
}

// TaskCompletePayload announces a first-time task completion.
type TaskCompletePayload struct {
	Player string `json:"player"`
	Task   TaskID `json:"task"`
}

// SabotagePayload announces a sabotage activation.
type SabotagePayload struct {
	Sabotage    SabotageID `json:"sabotage"`
	Perpetrator string     `json:"perpetrator"`
}

// SabotageResetPayload announces a sabotage auto-reset.
type SabotageResetPayload struct {
	Sabotage SabotageID `json:"sabotage"`
}

// GameStartedPayload announces role assignment is done.
type GameStartedPayload struct {
	Impostors int `json:"impostors"`
}

// RoleAssignedPayload tells a single player their own role.
type RoleAssignedPayload struct {
	Impostor bool `json:"impostor"`
}

// GameOverPayload announces the terminal outcome.
type GameOverPayload struct {
	Winner Outcome `json:"winner"`
}

// StatePayload is the full-state snapshot broadcast after mutations so
// simple clients can resync on every change.
type StatePayload struct {
	Players   map[string]Player   `json:"players"`
	Tasks     map[TaskID]bool     `json:"tasks"`
	Sabotages map[SabotageID]bool `json:"sabotages"`
}
