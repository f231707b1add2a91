package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.AppPort != "8080" || cfg.RoundTimeout != 10*time.Second {
		t.Fatalf("unexpected defaults: port=%s timeout=%s", cfg.AppPort, cfg.RoundTimeout)
	}
	if cfg.BoardSize != 5 || cfg.BoardMoves != 5 {
		t.Fatalf("board defaults = %dx%d moves", cfg.BoardSize, cfg.BoardMoves)
	}
	if len(cfg.OpponentCommand) != 0 {
		t.Fatalf("opponent command should be empty, got %v", cfg.OpponentCommand)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ROUND_TIMEOUT", "1500ms")
	t.Setenv("OPPONENT_COMMAND", "./bot -addr localhost:8080")
	t.Setenv("MOVE_RATE_LIMIT", "5")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.RoundTimeout != 1500*time.Millisecond {
		t.Fatalf("timeout = %s", cfg.RoundTimeout)
	}
	if got := strings.Join(cfg.OpponentCommand, "|"); got != "./bot|-addr|localhost:8080" {
		t.Fatalf("opponent command = %q", got)
	}
	if cfg.MoveRateLimit != 5 {
		t.Fatalf("move rate limit = %d", cfg.MoveRateLimit)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"bad timeout", map[string]string{"JWT_SECRET": "s", "ROUND_TIMEOUT": "soon"}},
		{"zero board", map[string]string{"JWT_SECRET": "s", "BOARD_SIZE": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Parse(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
