package domain

import "time"

// Settings holds the tunable rules of a session.
type Settings struct {
	MinPlayers         int           `json:"minPlayers"`
	MaxPlayers         int           `json:"maxPlayers"`
	Impostors          int           `json:"impostors"`
	MoveStep           float64       `json:"moveStep"`
	KillRadius         float64       `json:"killRadius"`
	MeetingDuration    time.Duration `json:"meetingDuration"`
	SabotageResetDelay time.Duration `json:"sabotageResetDelay"`
}

// DefaultSettings returns the default session rules.
func DefaultSettings() Settings {
	return Settings{
		MinPlayers:         4,
		MaxPlayers:         10,
		Impostors:          1,
		MoveStep:           6,
		KillRadius:         120,
		MeetingDuration:    30 * time.Second,
		SabotageResetDelay: 15 * time.Second,
	}
}
