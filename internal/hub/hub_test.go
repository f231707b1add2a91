package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"grot_arena/internal/domain"
	"grot_arena/internal/session"

	"github.com/jonboulle/clockwork"
)

type memResults struct {
	got chan []domain.SessionResult
}

func (m *memResults) RecordResults(_ context.Context, r []domain.SessionResult) error {
	m.got <- r
	return nil
}

func newTestHub(t *testing.T, results ResultStore) (*Hub, *clockwork.FakeClock) {
	t.Helper()
	clk := clockwork.NewFakeClock()
	h := New(context.Background(), Config{
		Timeout:    time.Second,
		BoardSize:  3,
		BoardMoves: 1,
		TTL:        time.Minute,
		Clock:      clk,
		Results:    results,
	})
	t.Cleanup(h.Close)
	return h, clk
}

func TestCreateAndGet(t *testing.T) {
	h, _ := newTestHub(t, nil)

	s, err := h.Create(session.KindStandard)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := h.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if _, err := h.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get unknown = %v; want ErrNotFound", err)
	}

	sb, err := h.Create(session.KindSandbox)
	if err != nil || sb != h.Sandbox() || sb.ID() != SandboxID {
		t.Fatalf("sandbox should be a singleton")
	}
	if _, err := h.Create("poker"); err == nil {
		t.Fatalf("unknown kind should fail")
	}

	if n := len(h.List(context.Background())); n != 2 {
		t.Fatalf("List returned %d sessions; want 2", n)
	}
}

func TestResultsRecordedOnEnd(t *testing.T) {
	store := &memResults{got: make(chan []domain.SessionResult, 1)}
	h, _ := newTestHub(t, store)
	ctx := context.Background()

	s, err := h.Create(session.KindStandard)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Join(ctx, session.User{ID: "a", Name: "Ann"}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := s.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	// one move budget: a skip ends the session
	if err := s.Skip(ctx, "a"); err != nil {
		t.Fatalf("Skip: %v", err)
	}

	select {
	case res := <-store.got:
		if len(res) != 1 || res[0].PlayerID != "a" || res[0].Place != 1 || res[0].Rounds != 1 || res[0].Name != "Ann" {
			t.Fatalf("results = %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("results not recorded")
	}
}

func TestCleanupStale(t *testing.T) {
	store := &memResults{got: make(chan []domain.SessionResult, 1)}
	h, clk := newTestHub(t, store)
	ctx := context.Background()

	ended, _ := h.Create(session.KindStandard)
	if err := ended.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	// no participants: the session ends immediately
	<-store.got

	idle, _ := h.Create(session.KindStandard)
	running, _ := h.Create(session.KindStandard)
	if _, err := running.Join(ctx, session.User{ID: "a"}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := running.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if n := h.cleanupStale(ctx); n != 0 {
		t.Fatalf("removed %d fresh sessions", n)
	}

	clk.Advance(2 * time.Minute)
	if n := h.cleanupStale(ctx); n != 2 {
		t.Fatalf("removed %d sessions; want 2", n)
	}
	if _, err := h.Get(ended.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ended session still registered")
	}
	if _, err := h.Get(idle.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("idle session still registered")
	}
	if _, err := h.Get(SandboxID); err != nil {
		t.Fatalf("sandbox must survive cleanup: %v", err)
	}
	select {
	case <-idle.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("idle session loop not stopped")
	}
}

func TestStandings(t *testing.T) {
	ranked := []session.Snapshot{
		{User: session.User{ID: "c"}, Score: 9, Moves: 1},
		{User: session.User{ID: "a"}, Score: 4, Moves: 0},
	}
	res := Standings("s", session.KindContest, 3, ranked)
	if len(res) != 2 || res[0].PlayerID != "c" || res[1].Place != 2 || res[1].Kind != "contest" {
		t.Fatalf("standings = %+v", res)
	}
}
