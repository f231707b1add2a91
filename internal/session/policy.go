package session

import (
	"context"
	"fmt"
)

type Kind string

const (
	KindStandard Kind = "standard"
	KindContest  Kind = "contest"
	KindSandbox  Kind = "sandbox"
	KindDuel     Kind = "duel"
)

// Action is what a policy asks the session to do after a join.
type Action struct {
	Begin           bool
	RequestOpponent bool
}

// Policy specializes the coordinator. Every method except Admit runs on the
// session loop.
type Policy interface {
	Kind() Kind
	// Admit runs before a join touches session state.
	Admit(ctx context.Context, u User) error
	// Barrier reports whether moves are batched into rounds.
	Barrier() bool
	// Capacity caps the number of participants; 0 means unlimited.
	Capacity() int
	// Joined is called with the participant count after each successful join.
	Joined(count int) Action
}

// Qualifier decides whether a user may enter a contest.
type Qualifier interface {
	Qualified(ctx context.Context, u User) (bool, error)
}

type QualifierFunc func(ctx context.Context, u User) (bool, error)

func (f QualifierFunc) Qualified(ctx context.Context, u User) (bool, error) { return f(ctx, u) }

// Requester asks for an automated opponent. Calls are fire-and-forget.
type Requester interface {
	RequestOpponent(ctx context.Context, sessionID string) error
}

// Standard is the plain round-based session.
type Standard struct{}

func (Standard) Kind() Kind                        { return KindStandard }
func (Standard) Admit(context.Context, User) error { return nil }
func (Standard) Barrier() bool                     { return true }
func (Standard) Capacity() int                     { return 0 }
func (Standard) Joined(int) Action                 { return Action{} }

// Contest admits only users accepted by its Qualifier. A nil Qualifier admits everyone.
type Contest struct {
	Standard
	Qualifier Qualifier
}

func (c *Contest) Kind() Kind { return KindContest }

func (c *Contest) Admit(ctx context.Context, u User) error {
	if c.Qualifier == nil {
		return nil
	}
	ok, err := c.Qualifier.Qualified(ctx, u)
	if err != nil {
		return fmt.Errorf("qualify %s: %w", u.ID, err)
	}
	if !ok {
		return ErrNotQualified
	}
	return nil
}

// Sandbox is the always-on single player practice mode: no rounds, no ranking.
type Sandbox struct {
	Standard
}

func (Sandbox) Kind() Kind    { return KindSandbox }
func (Sandbox) Barrier() bool { return false }

// Duel starts as soon as a second participant joins. Until then it asks for an
// automated opponent, once per session.
type Duel struct {
	Standard
	requested bool
}

func (d *Duel) Kind() Kind    { return KindDuel }
func (d *Duel) Capacity() int { return 2 }

func (d *Duel) Joined(count int) Action {
	if count == 2 {
		return Action{Begin: true}
	}
	if d.requested {
		return Action{}
	}
	d.requested = true
	return Action{RequestOpponent: true}
}

// NewPolicy builds a fresh policy for kind. q is used by contests only.
func NewPolicy(kind Kind, q Qualifier) (Policy, error) {
	switch kind {
	case KindStandard, "":
		return Standard{}, nil
	case KindContest:
		return &Contest{Qualifier: q}, nil
	case KindSandbox:
		return Sandbox{}, nil
	case KindDuel:
		return &Duel{}, nil
	default:
		return nil, fmt.Errorf("unknown session kind: %s", kind)
	}
}
