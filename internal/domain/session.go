package domain

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// Session is the aggregate root for one game. All roster, board, and
// meeting state is reachable only through it; there are no package
// globals, so multiple sessions can coexist in one process.
//
// Session is not safe for concurrent use. The app layer serializes
// every mutation, including timer-driven ones, behind a single lock.
type Session struct {
	settings  Settings
	players   map[string]*Player
	tasks     map[TaskID]bool
	sabotages map[SabotageID]bool
	meeting   Meeting
	started   bool
}

// NewSession creates an empty session with fresh boards.
func NewSession(settings Settings) *Session {
	return &Session{
		settings:  settings,
		players:   make(map[string]*Player),
		tasks:     NewTaskBoard(),
		sabotages: NewSabotageBoard(),
	}
}

// Settings returns the session rules.
func (s *Session) Settings() Settings {
	return s.settings
}

// Started reports whether roles have been assigned.
func (s *Session) Started() bool {
	return s.started
}

// Player returns a roster member by id.
func (s *Session) Player(id string) (*Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

// PlayerCount returns the roster size.
func (s *Session) PlayerCount() int {
	return len(s.players)
}

// MeetingActive reports whether a meeting is in progress.
func (s *Session) MeetingActive() bool {
	return s.meeting.Active
}

// Join adds a player to the roster under a fresh id and returns it.
// Ids are random tokens rather than timestamps so concurrent joins can
// never collide.
func (s *Session) Join(name, color string) (*Player, error) {
	if len(s.players) >= s.settings.MaxPlayers {
		return nil, ErrSessionFull
	}
	p := NewPlayer(uuid.NewString(), name, color)
	s.players[p.ID] = p
	return p, nil
}

// Leave removes a player from the roster. Unknown ids are a no-op; the
// transport sources ids from prior joins, but a disconnect can race a
// removal.
func (s *Session) Leave(id string) bool {
	if _, ok := s.players[id]; !ok {
		return false
	}
	delete(s.players, id)
	return true
}

// Move applies a movement step to a living player. Dead or unknown
// players are a no-op.
func (s *Session) Move(id string, dir Vector) {
	p, ok := s.players[id]
	if !ok || !p.Alive {
		return
	}
	p.X += dir.X * s.settings.MoveStep
	p.Y += dir.Y * s.settings.MoveStep
}

// Start assigns roles and marks the game in progress. The configured
// number of impostors is drawn uniformly from the roster.
func (s *Session) Start() error {
	if s.started {
		return ErrAlreadyStarted
	}
	if len(s.players) < s.settings.MinPlayers {
		return ErrNotEnoughPlayers
	}

	ids := make([]string, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	impostors := s.settings.Impostors
	if impostors > len(ids) {
		impostors = len(ids)
	}
	for i, id := range ids {
		s.players[id].Impostor = i < impostors
	}

	s.started = true
	return nil
}

// CompleteTask marks a task done. The first completion reports
// alreadyDone=false; later calls are idempotent no-ops. Unknown task
// ids are a validation error, distinct from "already done".
func (s *Session) CompleteTask(taskID TaskID) (alreadyDone bool, err error) {
	done, ok := s.tasks[taskID]
	if !ok {
		return false, ErrUnknownTask
	}
	if done {
		return true, nil
	}
	s.tasks[taskID] = true
	return false, nil
}

// ActivateSabotage flips a sabotage active. Activating an already
// active sabotage is a no-op so the pending reset keeps its original
// deadline. Unknown ids are a validation error.
func (s *Session) ActivateSabotage(sabotageID SabotageID) (alreadyActive bool, err error) {
	active, ok := s.sabotages[sabotageID]
	if !ok {
		return false, ErrUnknownSabotage
	}
	if active {
		return true, nil
	}
	s.sabotages[sabotageID] = true
	return false, nil
}

// ResetSabotage clears a sabotage flag. It reports whether the flag was
// actually set, so a stale reset is recognizable.
func (s *Session) ResetSabotage(sabotageID SabotageID) bool {
	if !s.sabotages[sabotageID] {
		return false
	}
	s.sabotages[sabotageID] = false
	return true
}

// AttemptKill resolves an elimination attempt. The checks run in a
// fixed order so the reported rejection is deterministic: unknown
// players, dead killer or target, killer role, meeting mutual
// exclusion, then the distance gate.
func (s *Session) AttemptKill(killerID, targetID string) error {
	killer, ok := s.players[killerID]
	if !ok {
		return ErrUnknownPlayer
	}
	target, ok := s.players[targetID]
	if !ok {
		return ErrUnknownPlayer
	}
	if !killer.Alive || !target.Alive {
		return ErrPlayerDead
	}
	if !killer.Impostor {
		return ErrNotImpostor
	}
	if s.meeting.Active {
		return ErrMeetingActive
	}
	if math.Hypot(killer.X-target.X, killer.Y-target.Y) > s.settings.KillRadius {
		return ErrOutOfRange
	}

	target.Alive = false
	return nil
}

// StartMeeting opens a meeting. A meeting already in progress makes
// this a silent no-op; in particular the vote map is never reset.
// Reporter aliveness is deliberately not checked.
func (s *Session) StartMeeting(reporterID string, reason MeetingReason) error {
	if s.meeting.Active {
		return ErrMeetingActive
	}

	candidates := make(map[string]struct{}, len(s.players))
	for id, p := range s.players {
		if p.Alive {
			candidates[id] = struct{}{}
		}
	}
	s.meeting = Meeting{
		Active:     true,
		Reporter:   reporterID,
		Reason:     reason,
		votes:      make(map[string]string),
		candidates: candidates,
	}
	return nil
}

// CastVote records a vote and returns the running count. A voter gets
// exactly one vote per meeting; dead voters and votes outside the
// active meeting are rejected. The target must be VoteSkip or a player
// that was alive at meeting start.
func (s *Session) CastVote(voterID, target string) (int, error) {
	if !s.meeting.Active {
		return 0, ErrNoMeeting
	}
	voter, ok := s.players[voterID]
	if !ok {
		return 0, ErrUnknownPlayer
	}
	if !voter.Alive {
		return 0, ErrPlayerDead
	}
	if s.meeting.HasVoted(voterID) {
		return 0, ErrAlreadyVoted
	}
	if target != VoteSkip {
		if _, ok := s.meeting.candidates[target]; !ok {
			return 0, ErrInvalidVoteTarget
		}
	}

	s.meeting.votes[voterID] = target
	return s.meeting.VoteCount(), nil
}

// AllVotesIn reports whether every living player has voted. Used for
// the optional early resolve; the deadline timer resolves the meeting
// regardless of participation.
func (s *Session) AllVotesIn() bool {
	if !s.meeting.Active {
		return false
	}
	for id, p := range s.players {
		if p.Alive && !s.meeting.HasVoted(id) {
			return false
		}
	}
	return true
}

// EndMeeting tallies the votes, applies the ejection if any, and
// returns the session to idle. Calling it without an active meeting is
// a no-op, which makes the timer-expiry and early-resolve paths safely
// idempotent.
func (s *Session) EndMeeting() (MeetingResult, bool) {
	if !s.meeting.Active {
		return MeetingResult{}, false
	}

	var result MeetingResult
	ejected, _ := s.meeting.tally()
	if ejected != "" {
		if p, ok := s.players[ejected]; ok {
			p.Alive = false
			result = MeetingResult{Ejected: ejected, WasImpostor: p.Impostor}
		}
	}

	s.meeting = Meeting{}
	return result, true
}

// Evaluate checks the win conditions over the current roster and task
// board.
func (s *Session) Evaluate() Outcome {
	return Evaluate(s.players, s.tasks)
}

// Snapshot returns a deep copy of the visible session state for the
// state broadcast. Copies keep the broadcaster from observing later
// mutations.
func (s *Session) Snapshot() StatePayload {
	players := make(map[string]Player, len(s.players))
	for id, p := range s.players {
		players[id] = *p
	}
	tasks := make(map[TaskID]bool, len(s.tasks))
	for id, done := range s.tasks {
		tasks[id] = done
	}
	sabotages := make(map[SabotageID]bool, len(s.sabotages))
	for id, active := range s.sabotages {
		sabotages[id] = active
	}
	return StatePayload{Players: players, Tasks: tasks, Sabotages: sabotages}
}
