package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"grot_arena/internal/game"

	"github.com/jonboulle/clockwork"
)

// stubBoard hands every participant the same move budget.
type stubBoard struct{ moves int }

func (b stubBoard) Clone() game.Board { return b }

// stubValidator scores x points per move. x < 0 is illegal, x == 99 panics.
type stubValidator struct {
	score int
	moves int
	skips int
}

func stubRules(b game.Board) (game.Validator, error) {
	sb, ok := b.(stubBoard)
	if !ok {
		return nil, fmt.Errorf("unexpected board %T", b)
	}
	return &stubValidator{moves: sb.moves}, nil
}

func (v *stubValidator) StartMove(x, y int) error {
	if x == 99 {
		panic("validator exploded")
	}
	if x < 0 {
		return fmt.Errorf("%w: negative x", game.ErrIllegalMove)
	}
	if v.moves <= 0 {
		return fmt.Errorf("%w: %w", game.ErrIllegalMove, game.ErrInactive)
	}
	v.score += x
	v.moves--
	return nil
}

func (v *stubValidator) SkipMove() error {
	if v.moves <= 0 {
		return fmt.Errorf("%w: %w", game.ErrIllegalMove, game.ErrInactive)
	}
	v.skips++
	v.moves--
	return nil
}

func (v *stubValidator) IsActive() bool { return v.moves > 0 }
func (v *stubValidator) Score() int     { return v.score }
func (v *stubValidator) Moves() int     { return v.moves }

func (v *stubValidator) State(bool) game.State {
	return game.State{Score: v.score, Moves: v.moves, Active: v.moves > 0}
}

type recordingRequester struct {
	calls chan string
}

func newRecordingRequester() *recordingRequester {
	return &recordingRequester{calls: make(chan string, 8)}
}

func (r *recordingRequester) RequestOpponent(_ context.Context, sessionID string) error {
	r.calls <- sessionID
	return nil
}

const testTimeout = 10 * time.Second

// startSession builds a session on a fake clock and runs its loop until the test ends.
func startSession(t *testing.T, policy Policy, moves int) (*Session, *clockwork.FakeClock) {
	t.Helper()

	clk := clockwork.NewFakeClock()
	s := New(Config{
		ID:      "test",
		Policy:  policy,
		Board:   stubBoard{moves: moves},
		Rules:   stubRules,
		Timeout: testTimeout,
		Clock:   clk,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	return s, clk
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("event channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func expectNoEvent(t *testing.T, ch <-chan Event, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(wait):
	}
}

func mustJoin(t *testing.T, s *Session, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, err := s.Join(context.Background(), User{ID: id}); err != nil {
			t.Fatalf("Join(%s): %v", id, err)
		}
	}
}

func mustStatus(t *testing.T, s *Session) Status {
	t.Helper()
	st, err := s.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	return st
}
