package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"grot_arena/internal/db"
	"grot_arena/internal/domain"
	"grot_arena/internal/session"
)

func newTestRepo(t *testing.T) *PlayerRepository {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := db.Migrate(ctx, pool, "../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewPlayerRepository(pool)
}

func TestPlayerRepository_Qualification(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := fmt.Sprintf("it-%d", time.Now().UnixNano())

	ok, err := repo.Qualified(ctx, id, 1)
	if err != nil {
		t.Fatalf("qualified unknown: %v", err)
	}
	if ok {
		t.Fatalf("unknown player must not qualify")
	}

	if err := repo.Ensure(ctx, id, "tester"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	sid := "s-" + id
	results := []domain.SessionResult{{SessionID: sid, Kind: "standard", PlayerID: id, Place: 1, Score: 12, Rounds: 3}}
	if err := repo.RecordResults(ctx, results); err != nil {
		t.Fatalf("record: %v", err)
	}
	// recording the same session twice must not count twice
	if err := repo.RecordResults(ctx, results); err != nil {
		t.Fatalf("record again: %v", err)
	}

	p, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.GamesPlayed != 1 || p.BestScore != 12 || p.Name != "tester" {
		t.Fatalf("unexpected player: %+v", p)
	}

	q := repo.Qualifier(1)
	ok, err = q.Qualified(ctx, session.User{ID: id})
	if err != nil || !ok {
		t.Fatalf("qualifier = %v, %v; want qualified", ok, err)
	}

	history, err := repo.GetResults(ctx, id, 10)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(history) != 1 || history[0].SessionID != sid {
		t.Fatalf("history = %+v", history)
	}
}
