package game

import "errors"

var (
	// ErrIllegalMove is wrapped by every validator rejection.
	ErrIllegalMove        = errors.New("illegal move")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInactive           = errors.New("no moves left")
)

// Validator owns one participant's board and decides whether a move is legal.
// Implementations are not safe for concurrent use; the session serializes calls.
type Validator interface {
	// StartMove validates and applies a move at (x, y), updating score and moves.
	StartMove(x, y int) error
	// SkipMove records a pass.
	SkipMove() error
	IsActive() bool
	Score() int
	Moves() int
	State(includeBoard bool) State
}

// Refiller is implemented by validators that can restart their budget,
// letting a practice participant play indefinitely.
type Refiller interface {
	Refill()
}

// Board is the initial value handed to every participant.
// Clone must return a deep copy: participants never share board state.
type Board interface {
	Clone() Board
}

// Rules builds a validator over a participant's private board copy.
type Rules func(b Board) (Validator, error)

// State is the read-only projection of a validator.
type State struct {
	Score  int      `json:"score"`
	Moves  int      `json:"moves"`
	Active bool     `json:"active"`
	Board  [][]Cell `json:"board,omitempty"`
}
