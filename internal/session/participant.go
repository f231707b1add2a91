package session

import (
	"fmt"

	"grot_arena/internal/game"
)

// User identifies whoever is behind a participant. ID is the session-unique key.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type MoveKind string

const (
	MoveUnset   MoveKind = "unset"
	MoveMoved   MoveKind = "moved"
	MoveSkipped MoveKind = "skipped"
)

// MoveState is the last action recorded for the current round.
// X and Y are meaningful only for MoveMoved.
type MoveState struct {
	Kind MoveKind `json:"kind"`
	X    int      `json:"x,omitempty"`
	Y    int      `json:"y,omitempty"`
}

// Participant wraps one user's validator with per-round readiness.
// It is owned by the session loop and never touched from other goroutines.
type Participant struct {
	user      User
	validator game.Validator
	move      MoveState
	ready     bool

	// enrolled is set while the participant counts toward the open round's barrier.
	enrolled bool
	// transient participants drop readiness right after acting (sandbox).
	transient bool
}

func newParticipant(u User, v game.Validator, transient bool) *Participant {
	return &Participant{
		user:      u,
		validator: v,
		move:      MoveState{Kind: MoveUnset},
		transient: transient,
	}
}

func (p *Participant) ID() string { return p.user.ID }

func (p *Participant) active() bool {
	if p.transient {
		return true
	}
	return p.validator.IsActive()
}

// recordMove applies a move through the validator. The move state and the
// ready signal are updated even when the validator fails or panics; the
// validator error is returned afterwards. released reports whether this call
// released the participant from the round barrier.
func (p *Participant) recordMove(x, y int) (released bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: validator panic: %v", game.ErrIllegalMove, r)
		}
		p.move = MoveState{Kind: MoveMoved, X: x, Y: y}
		released = p.signal()
	}()

	if p.transient {
		if r, ok := p.validator.(game.Refiller); ok {
			r.Refill()
		}
	}
	return false, p.validator.StartMove(x, y)
}

// recordSkip passes the turn. Transient participants ignore skips.
func (p *Participant) recordSkip() (released bool, err error) {
	if p.transient {
		return false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: validator panic: %v", game.ErrIllegalMove, r)
		}
		p.move = MoveState{Kind: MoveSkipped}
		released = p.signal()
	}()

	return false, p.validator.SkipMove()
}

// signal raises ready. It returns true at most once per round, for an
// enrolled participant.
func (p *Participant) signal() bool {
	if p.transient {
		p.ready = false
		return false
	}
	if p.ready {
		return false
	}
	p.ready = true

	if !p.enrolled {
		return false
	}
	p.enrolled = false
	return true
}

// enroll clears readiness and enters the participant into a new round.
func (p *Participant) enroll() {
	p.ready = false
	p.enrolled = true
	p.move = MoveState{Kind: MoveUnset}
}

// Snapshot is the read-only view of a participant handed to callers.
type Snapshot struct {
	User   User          `json:"user"`
	Score  int           `json:"score"`
	Moves  int           `json:"moves"`
	Active bool          `json:"active"`
	Ready  bool          `json:"ready"`
	Move   MoveState     `json:"move"`
	Board  [][]game.Cell `json:"board,omitempty"`
}

func (p *Participant) snapshot(includeBoard bool) Snapshot {
	st := p.validator.State(includeBoard)
	return Snapshot{
		User:   p.user,
		Score:  st.Score,
		Moves:  st.Moves,
		Active: p.active(),
		Ready:  p.ready,
		Move:   p.move,
		Board:  st.Board,
	}
}
