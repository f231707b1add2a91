package session

import (
	"context"
	"errors"
	"testing"
)

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		kind     Kind
		want     Kind
		barrier  bool
		capacity int
		wantErr  bool
	}{
		{"", KindStandard, true, 0, false},
		{KindStandard, KindStandard, true, 0, false},
		{KindContest, KindContest, true, 0, false},
		{KindSandbox, KindSandbox, false, 0, false},
		{KindDuel, KindDuel, true, 2, false},
		{"chess", "", false, 0, true},
	}

	for _, tt := range tests {
		p, err := NewPolicy(tt.kind, nil)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("NewPolicy(%q) expected error", tt.kind)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NewPolicy(%q): %v", tt.kind, err)
		}
		if p.Kind() != tt.want || p.Barrier() != tt.barrier || p.Capacity() != tt.capacity {
			t.Fatalf("NewPolicy(%q) = kind %s barrier %v capacity %d", tt.kind, p.Kind(), p.Barrier(), p.Capacity())
		}
	}
}

func TestContestAdmit(t *testing.T) {
	ctx := context.Background()
	open := &Contest{}
	if err := open.Admit(ctx, User{ID: "anyone"}); err != nil {
		t.Fatalf("nil qualifier rejected: %v", err)
	}

	closed := &Contest{Qualifier: QualifierFunc(func(context.Context, User) (bool, error) {
		return false, nil
	})}
	if err := closed.Admit(ctx, User{ID: "a"}); !errors.Is(err, ErrNotQualified) {
		t.Fatalf("Admit = %v; want ErrNotQualified", err)
	}
}

func TestDuelJoinedActions(t *testing.T) {
	d := &Duel{}
	if a := d.Joined(1); !a.RequestOpponent || a.Begin {
		t.Fatalf("first join action = %+v", a)
	}
	// a participant leaving and another arriving must not request again
	if a := d.Joined(1); a.RequestOpponent {
		t.Fatalf("opponent requested twice")
	}
	if a := d.Joined(2); !a.Begin {
		t.Fatalf("second join did not begin: %+v", a)
	}
}
