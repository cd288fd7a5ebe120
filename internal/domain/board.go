package domain

// TaskID identifies one of the fixed ship tasks.
type TaskID string

const (
	TaskLights       TaskID = "lights"
	TaskFixWires     TaskID = "fix_wires"
	TaskAlignEngines TaskID = "align_engines"
	TaskFuelEngine   TaskID = "fuel_engine"
	TaskEmptyGarbage TaskID = "empty_garbage"
)

// AllTasks lists every task on the board.
var AllTasks = []TaskID{
	TaskLights,
	TaskFixWires,
	TaskAlignEngines,
	TaskFuelEngine,
	TaskEmptyGarbage,
}

// SabotageID identifies one of the fixed sabotage systems.
type SabotageID string

const (
	SabotageLights  SabotageID = "lights"
	SabotageReactor SabotageID = "reactor"
	SabotageO2      SabotageID = "o2"
)

// AllSabotages lists every sabotage system.
var AllSabotages = []SabotageID{
	SabotageLights,
	SabotageReactor,
	SabotageO2,
}

// NewTaskBoard returns a board with every task incomplete. Task flags
// are monotonic: once set they are never cleared.
func NewTaskBoard() map[TaskID]bool {
	board := make(map[TaskID]bool, len(AllTasks))
	for _, id := range AllTasks {
		board[id] = false
	}
	return board
}

// NewSabotageBoard returns a board with every sabotage inactive.
func NewSabotageBoard() map[SabotageID]bool {
	board := make(map[SabotageID]bool, len(AllSabotages))
	for _, id := range AllSabotages {
		board[id] = false
	}
	return board
}
