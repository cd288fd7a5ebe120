package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"crewmate/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Game    GameConfig
	Logging LoggingConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Env  string `env:"ENV" envDefault:"development"`
}

// GameConfig holds the session rules.
type GameConfig struct {
	MinPlayers         int           `env:"MIN_PLAYERS" envDefault:"4"`
	MaxPlayers         int           `env:"MAX_PLAYERS" envDefault:"10"`
	Impostors          int           `env:"IMPOSTORS" envDefault:"1"`
	MoveStep           float64       `env:"MOVE_STEP" envDefault:"6"`
	KillRadius         float64       `env:"KILL_RADIUS" envDefault:"120"`
	MeetingDuration    time.Duration `env:"MEETING_DURATION" envDefault:"30s"`
	SabotageResetDelay time.Duration `env:"SABOTAGE_RESET_DELAY" envDefault:"15s"`
	RoomCodeLength     int           `env:"ROOM_CODE_LENGTH" envDefault:"6"`
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Settings maps the game configuration onto domain session rules.
func (c *Config) Settings() domain.Settings {
	return domain.Settings{
		MinPlayers:         c.Game.MinPlayers,
		MaxPlayers:         c.Game.MaxPlayers,
		Impostors:          c.Game.Impostors,
		MoveStep:           c.Game.MoveStep,
		KillRadius:         c.Game.KillRadius,
		MeetingDuration:    c.Game.MeetingDuration,
		SabotageResetDelay: c.Game.SabotageResetDelay,
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// GetAddr returns the server address in host:port format.
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}
