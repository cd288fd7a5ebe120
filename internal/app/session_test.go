package app

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"crewmate/internal/domain"
)

type fakeClient struct {
	events chan *domain.Event
}

func newFakeClient() *fakeClient {
	return &fakeClient{events: make(chan *domain.Event, 256)}
}

func (f *fakeClient) Send(event *domain.Event) error {
	select {
	case f.events <- event:
	default:
	}
	return nil
}

func (f *fakeClient) Close() error { return nil }

// waitFor scans the client's event stream until an event of the wanted
// type arrives.
func waitFor(t *testing.T, fc *fakeClient, want domain.EventType) *domain.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-fc.events:
			if e.Type == want {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q event", want)
		}
	}
}

// drainCount consumes events for the given window and counts those of
// the wanted type.
func drainCount(fc *fakeClient, want domain.EventType, window time.Duration) int {
	deadline := time.After(window)
	count := 0
	for {
		select {
		case e := <-fc.events:
			if e.Type == want {
				count++
			}
		case <-deadline:
			return count
		}
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, mutate func(*domain.Settings)) *Session {
	t.Helper()
	settings := domain.DefaultSettings()
	settings.MinPlayers = 2
	if mutate != nil {
		mutate(&settings)
	}
	s := NewSession("TEST42", settings, testLogger())
	t.Cleanup(s.Close)
	return s
}

func joinWithClient(t *testing.T, s *Session, name string) (domain.Player, *fakeClient) {
	t.Helper()
	p, err := s.Join(name, "Red")
	if err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	fc := newFakeClient()
	s.RegisterClient(p.ID, fc)
	return p, fc
}

func TestMeetingDeadlineResolvesMeeting(t *testing.T) {
	s := newTestSession(t, func(st *domain.Settings) {
		st.MeetingDuration = 50 * time.Millisecond
	})
	p, fc := joinWithClient(t, s, "a")
	joinWithClient(t, s, "b")

	if err := s.Report(p.ID); err != nil {
		t.Fatalf("report: %v", err)
	}
	waitFor(t, fc, domain.EventMeetingStarted)
	waitFor(t, fc, domain.EventMeetingEnded)

	if s.Snapshot().Players[p.ID].Alive != true {
		t.Fatal("empty ballot ejected someone")
	}
}

func TestEarlyResolveFiresOnce(t *testing.T) {
	s := newTestSession(t, func(st *domain.Settings) {
		st.MeetingDuration = 60 * time.Millisecond
	})
	a, fc := joinWithClient(t, s, "a")
	b, _ := joinWithClient(t, s, "b")

	if err := s.Emergency(a.ID); err != nil {
		t.Fatalf("emergency: %v", err)
	}
	if err := s.Vote(a.ID, domain.VoteSkip); err != nil {
		t.Fatalf("vote a: %v", err)
	}
	if err := s.Vote(b.ID, domain.VoteSkip); err != nil {
		t.Fatalf("vote b: %v", err)
	}

	// The meeting resolved early; the deadline expiring later must not
	// resolve it a second time.
	if got := drainCount(fc, domain.EventMeetingEnded, 200*time.Millisecond); got != 1 {
		t.Fatalf("expected exactly 1 meeting_ended, got %d", got)
	}
}

func TestRestartMeetingAfterResolve(t *testing.T) {
	s := newTestSession(t, func(st *domain.Settings) {
		st.MeetingDuration = 40 * time.Millisecond
	})
	a, fc := joinWithClient(t, s, "a")

	if err := s.Report(a.ID); err != nil {
		t.Fatalf("first report: %v", err)
	}
	waitFor(t, fc, domain.EventMeetingEnded)

	// The cycle is re-enterable.
	if err := s.Report(a.ID); err != nil {
		t.Fatalf("second report: %v", err)
	}
	waitFor(t, fc, domain.EventMeetingEnded)
}

func TestDuplicateVoteKeepsCount(t *testing.T) {
	s := newTestSession(t, nil)
	a, fc := joinWithClient(t, s, "a")
	joinWithClient(t, s, "b")

	if err := s.Report(a.ID); err != nil {
		t.Fatalf("report: %v", err)
	}
	if err := s.Vote(a.ID, domain.VoteSkip); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	update := waitFor(t, fc, domain.EventVoteUpdate)
	if got := update.Payload.(*domain.VoteUpdatePayload).Votes; got != 1 {
		t.Fatalf("expected count 1, got %d", got)
	}

	if err := s.Vote(a.ID, domain.VoteSkip); !errors.Is(err, domain.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
	if got := drainCount(fc, domain.EventVoteUpdate, 100*time.Millisecond); got != 0 {
		t.Fatalf("rejected vote produced %d vote_update events", got)
	}
}

func TestSabotageSingleResetTimer(t *testing.T) {
	s := newTestSession(t, func(st *domain.Settings) {
		st.SabotageResetDelay = 80 * time.Millisecond
	})
	a, fc := joinWithClient(t, s, "a")

	if err := s.ActivateSabotage(a.ID, domain.SabotageReactor); err != nil {
		t.Fatalf("first activation: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	// Re-activation while active: no event, no second timer, and no
	// extension of the original deadline.
	if err := s.ActivateSabotage(a.ID, domain.SabotageReactor); err != nil {
		t.Fatalf("second activation: %v", err)
	}

	if got := drainCount(fc, domain.EventSabotage, 50*time.Millisecond); got != 1 {
		t.Fatalf("expected exactly 1 sabotage event, got %d", got)
	}
	if got := drainCount(fc, domain.EventSabotageReset, 300*time.Millisecond); got != 1 {
		t.Fatalf("expected exactly 1 sabotage_reset, got %d", got)
	}
	if s.Snapshot().Sabotages[domain.SabotageReactor] {
		t.Fatal("sabotage still active after reset")
	}
}

func TestTaskCompletionEmitsOnce(t *testing.T) {
	s := newTestSession(t, nil)
	a, fc := joinWithClient(t, s, "a")

	if err := s.CompleteTask(a.ID, domain.TaskFixWires); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if err := s.CompleteTask(a.ID, domain.TaskFixWires); err != nil {
		t.Fatalf("second completion: %v", err)
	}
	if err := s.CompleteTask(a.ID, "scan_boarding_pass"); !errors.Is(err, domain.ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}

	if got := drainCount(fc, domain.EventTaskComplete, 150*time.Millisecond); got != 1 {
		t.Fatalf("expected exactly 1 task_complete, got %d", got)
	}
}

func TestStartGameAssignsRolesToOwnersOnly(t *testing.T) {
	s := newTestSession(t, nil)
	a, fcA := joinWithClient(t, s, "a")
	_, fcB := joinWithClient(t, s, "b")

	if err := s.StartGame(a.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	roleA := waitFor(t, fcA, domain.EventRoleAssigned)
	roleB := waitFor(t, fcB, domain.EventRoleAssigned)
	waitFor(t, fcA, domain.EventGameStarted)

	impostors := 0
	for _, e := range []*domain.Event{roleA, roleB} {
		if e.Payload.(*domain.RoleAssignedPayload).Impostor {
			impostors++
		}
	}
	if impostors != 1 {
		t.Fatalf("expected 1 impostor among 2 players, got %d", impostors)
	}

	// Role events are addressed; a client never sees another player's.
	if got := drainCount(fcA, domain.EventRoleAssigned, 100*time.Millisecond); got != 0 {
		t.Fatalf("client a received %d extra role events", got)
	}
}

func TestStartGameHostOnly(t *testing.T) {
	s := newTestSession(t, nil)
	joinWithClient(t, s, "host")
	b, _ := joinWithClient(t, s, "b")

	if err := s.StartGame(b.ID); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
}

func TestKillParityEndsGameAndLocksSession(t *testing.T) {
	s := newTestSession(t, nil)
	a, fc := joinWithClient(t, s, "a")
	b, _ := joinWithClient(t, s, "b")

	if err := s.StartGame(a.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// With one impostor and one crew, the first kill reaches parity.
	snap := s.Snapshot()
	killer, victim := a.ID, b.ID
	if !snap.Players[a.ID].Impostor {
		killer, victim = b.ID, a.ID
	}
	if err := s.Kill(killer, victim); err != nil {
		t.Fatalf("kill: %v", err)
	}

	over := waitFor(t, fc, domain.EventGameOver)
	if got := over.Payload.(*domain.GameOverPayload).Winner; got != domain.OutcomeImpostorWin {
		t.Fatalf("expected impostor win, got %q", got)
	}
	if s.Outcome() != domain.OutcomeImpostorWin {
		t.Fatalf("session outcome = %q", s.Outcome())
	}

	// Terminal lockout: further state-changing intents are dropped.
	if err := s.CompleteTask(killer, domain.TaskLights); !errors.Is(err, domain.ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
	if got := drainCount(fc, domain.EventGameOver, 150*time.Millisecond); got != 0 {
		t.Fatalf("game_over emitted again %d times", got)
	}
}

func TestAllTasksCrewWin(t *testing.T) {
	s := newTestSession(t, nil)
	a, fc := joinWithClient(t, s, "a")
	joinWithClient(t, s, "b")
	joinWithClient(t, s, "c")

	if err := s.StartGame(a.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	for _, task := range domain.AllTasks {
		if err := s.CompleteTask(a.ID, task); err != nil {
			t.Fatalf("complete %s: %v", task, err)
		}
	}

	over := waitFor(t, fc, domain.EventGameOver)
	if got := over.Payload.(*domain.GameOverPayload).Winner; got != domain.OutcomeCrewWin {
		t.Fatalf("expected crew win, got %q", got)
	}
}

func TestLeaveMidGameTriggersWinCheck(t *testing.T) {
	s := newTestSession(t, func(st *domain.Settings) {
		st.MinPlayers = 3
	})
	a, fc := joinWithClient(t, s, "a")
	b, _ := joinWithClient(t, s, "b")
	c, _ := joinWithClient(t, s, "c")

	if err := s.StartGame(a.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Drop both crew members; the remaining impostor wins by parity.
	snap := s.Snapshot()
	for _, id := range []string{a.ID, b.ID, c.ID} {
		if !snap.Players[id].Impostor {
			s.Leave(id)
		}
	}

	over := waitFor(t, fc, domain.EventGameOver)
	if got := over.Payload.(*domain.GameOverPayload).Winner; got != domain.OutcomeImpostorWin {
		t.Fatalf("expected impostor win, got %q", got)
	}
}

func TestStateSnapshotBroadcastAfterMutation(t *testing.T) {
	s := newTestSession(t, nil)
	a, fc := joinWithClient(t, s, "a")

	s.Move(a.ID, domain.Vector{X: 1})

	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-fc.events:
			if e.Type != domain.EventState {
				continue
			}
			state := e.Payload.(domain.StatePayload)
			if state.Players[a.ID].X == domain.SpawnX+6 {
				return
			}
		case <-timeout:
			t.Fatal("no state snapshot reflecting the move")
		}
	}
}
