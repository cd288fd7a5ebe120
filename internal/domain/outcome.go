package domain

// Outcome is the terminal state of a session.
type Outcome string

const (
	OutcomeNone        Outcome = ""
	OutcomeCrewWin     Outcome = "crew"
	OutcomeImpostorWin Outcome = "impostor"
)

// Evaluate decides whether the game is over, given a roster and a task
// board. Task completion is checked first: a finished board is a crew
// win even when the impostors have reached parity in the same moment.
func Evaluate(players map[string]*Player, tasks map[TaskID]bool) Outcome {
	done := true
	for _, complete := range tasks {
		if !complete {
			done = false
			break
		}
	}
	if done {
		return OutcomeCrewWin
	}

	impostors, crew := 0, 0
	for _, p := range players {
		if !p.Alive {
			continue
		}
		if p.Impostor {
			impostors++
		} else {
			crew++
		}
	}
	if impostors >= crew {
		return OutcomeImpostorWin
	}
	return OutcomeNone
}
