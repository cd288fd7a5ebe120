package domain

// Default spawn point for new players.
const (
	SpawnX = 3200
	SpawnY = 850
)

// Vector is a 2D direction or offset.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Player is a member of the session roster.
type Player struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Alive    bool    `json:"alive"`
	Impostor bool    `json:"impostor"`
}

// NewPlayer creates a player at the spawn point. Roles are assigned
// later, at game start.
func NewPlayer(id, name, color string) *Player {
	return &Player{
		ID:    id,
		Name:  name,
		Color: color,
		X:     SpawnX,
		Y:     SpawnY,
		Alive: true,
	}
}
