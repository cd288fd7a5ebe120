package app

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"crewmate/internal/domain"
)

// ClientConnection is a connected client the session can push events to.
// Sends are fire-and-forget: a failed or dropped send never fails the
// state transition that produced the event.
type ClientConnection interface {
	Send(event *domain.Event) error
	Close() error
}

// Session wraps a domain session with the concurrency shell: one mutex
// serializing every intent, timer callbacks re-entering through that
// same mutex, and an event queue drained by a broadcaster goroutine.
// The net effect is a total order over all mutations, client-originated
// and timer-originated alike.
type Session struct {
	id        string
	createdAt time.Time
	logger    *slog.Logger

	mu     sync.Mutex
	game   *domain.Session
	hostID string
	over   bool

	// meetingSeq invalidates the deadline callback of a meeting that
	// was resolved early; a stale timer that lost the Stop race sees a
	// newer sequence number and does nothing.
	meetingTimer *time.Timer
	meetingSeq   uint64

	clients   map[string]ClientConnection
	clientsMu sync.RWMutex

	events chan *domain.Event
	done   chan struct{}
}

// NewSession creates a session and starts its event broadcaster.
func NewSession(id string, settings domain.Settings, logger *slog.Logger) *Session {
	s := &Session{
		id:        id,
		createdAt: time.Now(),
		logger:    logger,
		game:      domain.NewSession(settings),
		clients:   make(map[string]ClientConnection),
		events:    make(chan *domain.Event, 100),
		done:      make(chan struct{}),
	}
	go s.eventLoop()
	return s
}

// ID returns the room code.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// PlayerCount returns the roster size.
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.PlayerCount()
}

// Started reports whether roles have been assigned.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Started()
}

// Outcome returns the terminal outcome, or OutcomeNone while the game
// is still running.
func (s *Session) Outcome() domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.over {
		return domain.OutcomeNone
	}
	return s.game.Evaluate()
}

// CanJoin reports whether a new player may join.
func (s *Session) CanJoin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.over && s.game.PlayerCount() < s.game.Settings().MaxPlayers
}

// Snapshot returns a copy of the visible session state.
func (s *Session) Snapshot() domain.StatePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Snapshot()
}

// RegisterClient attaches a client connection for a player.
func (s *Session) RegisterClient(playerID string, client ClientConnection) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[playerID] = client
}

// UnregisterClient detaches a client connection.
func (s *Session) UnregisterClient(playerID string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, playerID)
}

// Join adds a player to the roster and returns a copy of it. The first
// player to join becomes the host.
func (s *Session) Join(name, color string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.game.Join(name, color)
	if err != nil {
		return domain.Player{}, err
	}
	if s.hostID == "" {
		s.hostID = p.ID
	}

	s.queueEvent(domain.NewEvent(domain.EventPlayerJoined, &domain.PlayerJoinedPayload{Player: *p}))
	s.broadcastState()
	return *p, nil
}

// Leave removes a player. Unknown ids are a no-op. Removing a player
// mid-game can change the alive counts, so the win conditions are
// re-checked.
func (s *Session) Leave(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.Leave(playerID) {
		return
	}
	if s.hostID == playerID {
		s.hostID = ""
		for id := range s.game.Snapshot().Players {
			s.hostID = id
			break
		}
	}

	s.queueEvent(domain.NewEvent(domain.EventPlayerLeft, &domain.PlayerLeftPayload{PlayerID: playerID}))
	s.checkWin()
	s.broadcastState()
}

// Move applies a movement step.
func (s *Session) Move(playerID string, dir domain.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.over {
		return
	}
	s.game.Move(playerID, dir)
	s.broadcastState()
}

// StartGame assigns roles and begins the game. Host only.
func (s *Session) StartGame(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.over {
		return domain.ErrGameOver
	}
	if s.hostID != playerID {
		return domain.ErrNotHost
	}
	if err := s.game.Start(); err != nil {
		return err
	}

	impostors := 0
	for id, p := range s.game.Snapshot().Players {
		if p.Impostor {
			impostors++
		}
		s.queueEvent(domain.NewPlayerEvent(domain.EventRoleAssigned, id, &domain.RoleAssignedPayload{Impostor: p.Impostor}))
	}
	s.queueEvent(domain.NewEvent(domain.EventGameStarted, &domain.GameStartedPayload{Impostors: impostors}))
	s.broadcastState()
	return nil
}

// Kill resolves an elimination attempt and re-checks the win
// conditions; a kill can end the game by parity.
func (s *Session) Kill(killerID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.over {
		return domain.ErrGameOver
	}
	if err := s.game.AttemptKill(killerID, targetID); err != nil {
		s.dropIntent("kill", killerID, err)
		s.broadcastState()
		return err
	}

	s.queueEvent(domain.NewEvent(domain.EventPlayerKilled, &domain.PlayerKilledPayload{Killer: killerID, Victim: targetID}))
	s.checkWin()
	s.broadcastState()
	return nil
}

// Report opens a meeting for a reported body.
func (s *Session) Report(playerID string) error {
	return s.startMeeting(playerID, domain.ReasonReport)
}

// Emergency opens a meeting via the emergency button.
func (s *Session) Emergency(playerID string) error {
	return s.startMeeting(playerID, domain.ReasonEmergency)
}

func (s *Session) startMeeting(reporterID string, reason domain.MeetingReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.over {
		return domain.ErrGameOver
	}
	if err := s.game.StartMeeting(reporterID, reason); err != nil {
		s.dropIntent("start_meeting", reporterID, err)
		s.broadcastState()
		return err
	}

	s.queueEvent(domain.NewEvent(domain.EventMeetingStarted, &domain.MeetingStartedPayload{Reporter: reporterID, Reason: reason}))

	s.meetingSeq++
	seq := s.meetingSeq
	s.meetingTimer = time.AfterFunc(s.game.Settings().MeetingDuration, func() {
		s.meetingDeadline(seq)
	})

	s.broadcastState()
	return nil
}

// meetingDeadline is the timer path into endMeeting. It re-enters
// through the session mutex and bails out if the meeting it was armed
// for has already been resolved.
func (s *Session) meetingDeadline(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.meetingSeq {
		return
	}
	s.endMeetingLocked()
	s.broadcastState()
}

// Vote records a vote. When every living player has voted the meeting
// resolves early instead of waiting out the deadline.
func (s *Session) Vote(voterID, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.over {
		return domain.ErrGameOver
	}
	count, err := s.game.CastVote(voterID, target)
	if err != nil {
		s.dropIntent("vote", voterID, err)
		s.broadcastState()
		return err
	}

	s.queueEvent(domain.NewEvent(domain.EventVoteUpdate, &domain.VoteUpdatePayload{Votes: count}))

	if s.game.AllVotesIn() {
		s.endMeetingLocked()
	}
	s.broadcastState()
	return nil
}

// endMeetingLocked tallies and closes the active meeting. Caller must
// hold the session mutex. The deadline timer is disarmed and its
// sequence invalidated, so an expiry that lost the Stop race is inert.
func (s *Session) endMeetingLocked() {
	result, ok := s.game.EndMeeting()
	if !ok {
		return
	}

	if s.meetingTimer != nil {
		s.meetingTimer.Stop()
		s.meetingTimer = nil
	}
	s.meetingSeq++

	payload := &domain.MeetingEndedPayload{}
	if result.Ejected != "" {
		ejected := result.Ejected
		payload.Ejected = &ejected
		payload.Impostor = result.WasImpostor
	}
	s.queueEvent(domain.NewEvent(domain.EventMeetingEnded, payload))

	if result.Ejected != "" {
		s.checkWin()
	}
}

// CompleteTask marks a task done. Only the first completion emits an
// event and can finish the crew's board.
func (s *Session) CompleteTask(playerID string, task domain.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.over {
		return domain.ErrGameOver
	}
	alreadyDone, err := s.game.CompleteTask(task)
	if err != nil {
		s.broadcastState()
		return err
	}
	if alreadyDone {
		s.broadcastState()
		return nil
	}

	s.queueEvent(domain.NewEvent(domain.EventTaskComplete, &domain.TaskCompletePayload{Player: playerID, Task: task}))
	s.checkWin()
	s.broadcastState()
	return nil
}

// ActivateSabotage flips a sabotage on and arms its auto-reset. An
// already active sabotage is a no-op and keeps its original reset
// deadline; exactly one timer exists per active sabotage.
func (s *Session) ActivateSabotage(playerID string, sabotage domain.SabotageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.over {
		return domain.ErrGameOver
	}
	alreadyActive, err := s.game.ActivateSabotage(sabotage)
	if err != nil {
		s.broadcastState()
		return err
	}
	if alreadyActive {
		s.broadcastState()
		return nil
	}

	s.queueEvent(domain.NewEvent(domain.EventSabotage, &domain.SabotagePayload{Sabotage: sabotage, Perpetrator: playerID}))

	// The reset always runs to completion once armed.
	time.AfterFunc(s.game.Settings().SabotageResetDelay, func() {
		s.resetSabotage(sabotage)
	})

	s.broadcastState()
	return nil
}

// resetSabotage is the timer path clearing a sabotage flag.
func (s *Session) resetSabotage(sabotage domain.SabotageID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.ResetSabotage(sabotage) {
		return
	}
	s.queueEvent(domain.NewEvent(domain.EventSabotageReset, &domain.SabotageResetPayload{Sabotage: sabotage}))
	s.broadcastState()
}

// checkWin evaluates the win conditions and, on a terminal outcome,
// locks the session against further state-changing intents. Caller
// must hold the session mutex. game_over is emitted exactly once.
func (s *Session) checkWin() {
	if s.over || !s.game.Started() {
		return
	}
	outcome := s.game.Evaluate()
	if outcome == domain.OutcomeNone {
		return
	}

	s.over = true
	s.logger.Info("game over", "session", s.id, "winner", outcome)
	s.queueEvent(domain.NewEvent(domain.EventGameOver, &domain.GameOverPayload{Winner: outcome}))
}

// broadcastState queues the full-state snapshot so simple clients can
// resync after every change. Caller must hold the session mutex.
func (s *Session) broadcastState() {
	s.queueEvent(domain.NewEvent(domain.EventState, s.game.Snapshot()))
}

// dropIntent logs a policy rejection. The intent is dropped without
// mutating anything; validation failures surface to the transport.
func (s *Session) dropIntent(intent, playerID string, err error) {
	s.logger.Debug("intent dropped", "session", s.id, "intent", intent, "player", playerID, "error", err)
}

// queueEvent hands an event to the broadcaster without blocking.
func (s *Session) queueEvent(event *domain.Event) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("event queue full, dropping event", "session", s.id, "type", event.Type)
	}
}

// eventLoop drains the event queue and fans events out to clients.
func (s *Session) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			s.broadcastEvent(event)
		}
	}
}

// broadcastEvent delivers one event: to a single player when the event
// is addressed, otherwise to every connected client.
func (s *Session) broadcastEvent(event *domain.Event) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	if event.PlayerID != "" {
		if client, ok := s.clients[event.PlayerID]; ok {
			if err := client.Send(event); err != nil {
				s.logger.Debug("send failed", "session", s.id, "player", event.PlayerID, "error", err)
			}
		}
		return
	}

	for playerID, client := range s.clients {
		if err := client.Send(event); err != nil {
			s.logger.Debug("send failed", "session", s.id, "player", playerID, "error", err)
		}
	}
}

// Close shuts down the session and every client connection.
func (s *Session) Close() {
	select {
	case <-s.done:
		return
	default:
		close(s.done)
	}

	s.mu.Lock()
	if s.meetingTimer != nil {
		s.meetingTimer.Stop()
		s.meetingTimer = nil
	}
	s.meetingSeq++
	s.mu.Unlock()

	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clients = make(map[string]ClientConnection)
	s.clientsMu.Unlock()
}

// HostID returns the current host.
func (s *Session) HostID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostID
}

// IsPolicyRejection reports whether an error is a drop-and-continue
// rejection rather than a validation failure.
func IsPolicyRejection(err error) bool {
	switch {
	case errors.Is(err, domain.ErrPlayerDead),
		errors.Is(err, domain.ErrNotImpostor),
		errors.Is(err, domain.ErrMeetingActive),
		errors.Is(err, domain.ErrNoMeeting),
		errors.Is(err, domain.ErrOutOfRange),
		errors.Is(err, domain.ErrAlreadyVoted),
		errors.Is(err, domain.ErrGameOver):
		return true
	}
	return false
}
