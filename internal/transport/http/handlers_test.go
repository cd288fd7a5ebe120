package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"crewmate/internal/app"
	"crewmate/internal/config"
	"crewmate/internal/domain"
)

func newTestServer(t *testing.T) (*Server, *app.Hub) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := app.NewHub(domain.DefaultSettings(), 6, logger)
	t.Cleanup(hub.Close)

	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"

	return NewServer(cfg, hub, logger), hub
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data any) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *ErrorInfo      `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got error %+v", resp.Error)
	}
	if data != nil {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var health HealthResponse
	decodeResponse(t, rec, &health)
	if health.Status != "ok" {
		t.Fatalf("expected ok, got %q", health.Status)
	}
}

func TestCreateAndGetRoom(t *testing.T) {
	s, hub := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/rooms")
	if rec.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d", rec.Code)
	}

	var created CreateRoomResponse
	decodeResponse(t, rec, &created)
	if created.RoomCode == "" {
		t.Fatal("expected a room code")
	}
	if _, err := hub.GetSession(created.RoomCode); err != nil {
		t.Fatalf("created room not in hub: %v", err)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/rooms/"+created.RoomCode)
	var room GetRoomResponse
	decodeResponse(t, rec, &room)
	if room.RoomCode != created.RoomCode || !room.CanJoin || room.Started {
		t.Fatalf("unexpected room info: %+v", room)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/rooms/NOPE99")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRoomExists(t *testing.T) {
	s, hub := newTestServer(t)
	session, _ := hub.CreateSession()

	rec := doRequest(t, s, http.MethodGet, "/api/rooms/"+session.ID()+"/exists")
	var exists RoomExistsResponse
	decodeResponse(t, rec, &exists)
	if !exists.Exists {
		t.Fatal("expected room to exist")
	}

	rec = doRequest(t, s, http.MethodGet, "/api/rooms/NOPE99/exists")
	decodeResponse(t, rec, &exists)
	if exists.Exists {
		t.Fatal("expected room to be missing")
	}
}

func TestRoomQR(t *testing.T) {
	s, hub := newTestServer(t)
	session, _ := hub.CreateSession()

	rec := doRequest(t, s, http.MethodGet, "/api/rooms/"+session.ID()+"/qr")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected PNG bytes")
	}
}

func TestStats(t *testing.T) {
	s, hub := newTestServer(t)
	session, _ := hub.CreateSession()
	if _, err := session.Join("a", "Red"); err != nil {
		t.Fatalf("join: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/stats")
	var stats StatsResponse
	decodeResponse(t, rec, &stats)
	if stats.ActiveSessions != 1 || stats.TotalPlayers != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
