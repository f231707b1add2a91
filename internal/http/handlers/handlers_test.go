package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"grot_arena/internal/domain"
	"grot_arena/internal/game"
	"grot_arena/internal/hub"
	"grot_arena/internal/repository"
	"grot_arena/internal/session"

	"github.com/gin-gonic/gin"
)

type memPlayers struct {
	ensured map[string]string
}

func (m *memPlayers) Ensure(_ context.Context, id, name string) error {
	m.ensured[id] = name
	return nil
}

func (m *memPlayers) GetByID(_ context.Context, id string) (*domain.Player, error) {
	name, ok := m.ensured[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	return &domain.Player{ID: id, Name: name}, nil
}

func (m *memPlayers) GetResults(context.Context, string, int) ([]*domain.SessionResult, error) {
	return nil, nil
}

func (m *memPlayers) Leaderboard(context.Context, int) ([]*domain.Player, error) {
	return []*domain.Player{{ID: "top"}}, nil
}

func newRouter(t *testing.T) (*gin.Engine, *hub.Hub, *memPlayers) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hb := hub.New(context.Background(), hub.Config{Timeout: time.Minute, BoardSize: 3, BoardMoves: 5})
	t.Cleanup(hb.Close)
	players := &memPlayers{ensured: map[string]string{}}
	h := NewHandler(hb, players)

	auth := func(c *gin.Context) {
		if id := c.GetHeader("X-User"); id != "" {
			c.Set("user_id", id)
			c.Set("user_name", "name-"+id)
		}
		c.Next()
	}

	r := gin.New()
	r.Use(auth)
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions/:id", h.SessionStatus)
	r.POST("/sessions/:id/join", h.JoinSession)
	r.POST("/sessions/:id/begin", h.BeginSession)
	r.POST("/sessions/:id/move", h.Move)
	r.POST("/sessions/:id/skip", h.Skip)
	r.GET("/sessions/:id/players", h.Players)
	r.GET("/sessions/:id/me", h.Self)
	r.GET("/me", h.Me)
	r.GET("/leaderboard", h.GetLeaderboard)
	return r, hb, players
}

func do(t *testing.T, r http.Handler, method, path, user string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func TestSessionFlow(t *testing.T) {
	r, _, players := newRouter(t)

	code, st := do(t, r, http.MethodPost, "/sessions", "alice", gin.H{"kind": "standard"})
	if code != http.StatusCreated {
		t.Fatalf("create: %d %v", code, st)
	}
	id := st["id"].(string)
	base := "/sessions/" + id

	if code, _ := do(t, r, http.MethodPost, base+"/join", "alice", nil); code != http.StatusOK {
		t.Fatalf("join alice: %d", code)
	}
	if players.ensured["alice"] != "name-alice" {
		t.Fatalf("player not ensured: %v", players.ensured)
	}
	if code, _ := do(t, r, http.MethodPost, base+"/join", "alice", nil); code != http.StatusConflict {
		t.Fatalf("duplicate join: %d; want 409", code)
	}
	if code, _ := do(t, r, http.MethodPost, base+"/join", "bob", nil); code != http.StatusOK {
		t.Fatalf("join bob: %d", code)
	}

	if code, _ := do(t, r, http.MethodPost, base+"/move", "alice", gin.H{"x": 0, "y": 0}); code != http.StatusConflict {
		t.Fatalf("move before begin: %d; want 409", code)
	}
	if code, _ := do(t, r, http.MethodPost, base+"/begin", "alice", nil); code != http.StatusOK {
		t.Fatalf("begin: %d", code)
	}

	code, body := do(t, r, http.MethodPost, base+"/move", "alice", gin.H{"x": 9, "y": 9})
	if code != http.StatusUnprocessableEntity || body["self"] == nil {
		t.Fatalf("illegal move: %d %v", code, body)
	}
	if code, _ := do(t, r, http.MethodPost, base+"/skip", "alice", nil); code != http.StatusConflict {
		t.Fatalf("second action: %d; want 409", code)
	}

	code, body = do(t, r, http.MethodGet, base+"/players?filter=unready", "", nil)
	if code != http.StatusOK {
		t.Fatalf("players: %d", code)
	}
	unready := body["players"].([]any)
	if len(unready) != 1 {
		t.Fatalf("unready = %v; want only bob", unready)
	}

	if code, _ := do(t, r, http.MethodPost, base+"/skip", "bob", nil); code != http.StatusOK {
		t.Fatalf("skip bob: %d", code)
	}
	code, st = do(t, r, http.MethodGet, base, "", nil)
	if code != http.StatusOK || st["round"].(float64) != 2 {
		t.Fatalf("status after round: %d %v", code, st)
	}

	code, body = do(t, r, http.MethodGet, base+"/me", "bob", nil)
	if code != http.StatusOK || body["board"] == nil {
		t.Fatalf("self: %d %v", code, body)
	}
}

func TestHandlerErrors(t *testing.T) {
	r, _, _ := newRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		want   int
	}{
		{"unknown session", http.MethodGet, "/sessions/nope", "", nil, http.StatusNotFound},
		{"join without user", http.MethodPost, "/sessions/sandbox/join", "", nil, http.StatusUnauthorized},
		{"move without body", http.MethodPost, "/sessions/sandbox/move", "a", gin.H{"x": 1}, http.StatusBadRequest},
		{"bad kind", http.MethodPost, "/sessions", "a", gin.H{"kind": "chess"}, http.StatusBadRequest},
		{"sandbox move", http.MethodPost, "/sessions/sandbox/move", "a", gin.H{"x": 1, "y": 1}, http.StatusOK},
		{"sandbox players", http.MethodGet, "/sessions/sandbox/players", "", nil, http.StatusOK},
		{"me", http.MethodGet, "/me", "ghost", nil, http.StatusNotFound},
		{"leaderboard", http.MethodGet, "/leaderboard", "", nil, http.StatusOK},
	}
	for _, tt := range tests {
		if code, body := do(t, r, tt.method, tt.path, tt.user, tt.body); code != tt.want {
			t.Fatalf("%s: status %d (%v); want %d", tt.name, code, body, tt.want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{hub.ErrNotFound, http.StatusNotFound},
		{session.ErrUnknownParticipant, http.StatusNotFound},
		{session.ErrNotQualified, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", session.ErrSessionFull), http.StatusConflict},
		{session.ErrAlreadyActed, http.StatusConflict},
		{fmt.Errorf("%w: cell empty", game.ErrIllegalMove), http.StatusUnprocessableEntity},
		{session.ErrClosed, http.StatusGone},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Fatalf("statusFor(%v) = %d; want %d", tt.err, got, tt.want)
		}
	}
}
