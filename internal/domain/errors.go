package domain

import "errors"

// Validation errors: the intent referenced something that does not exist.
var (
	ErrUnknownTask     = errors.New("unknown task id")
	ErrUnknownSabotage = errors.New("unknown sabotage id")
	ErrUnknownPlayer   = errors.New("player not found")
	ErrSessionNotFound = errors.New("session not found")
)

// Policy rejections: the intent is well-formed but disallowed by the
// current state. They drop without mutating anything.
var (
	ErrPlayerDead        = errors.New("player is dead")
	ErrNotImpostor       = errors.New("killer is not an impostor")
	ErrMeetingActive     = errors.New("meeting in progress")
	ErrNoMeeting         = errors.New("no meeting in progress")
	ErrOutOfRange        = errors.New("target out of kill range")
	ErrAlreadyVoted      = errors.New("already voted this meeting")
	ErrInvalidVoteTarget = errors.New("vote target was not standing at meeting start")
	ErrAlreadyStarted    = errors.New("game already started")
	ErrNotEnoughPlayers  = errors.New("not enough players to start")
	ErrNotHost           = errors.New("only the host can perform this action")
	ErrSessionFull       = errors.New("session is full")
	ErrGameOver          = errors.New("game is over")
)
