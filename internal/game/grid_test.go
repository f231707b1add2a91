package game

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func fixedBoard() *GridBoard {
	up := Cell{Points: 1, Dir: Up}
	return &GridBoard{
		size:  3,
		moves: 5,
		cells: [][]Cell{
			{{1, Right}, {2, Right}, {3, Down}},
			{up, up, {4, Left}},
			{up, up, up},
		},
		src: rand.NewPCG(1, 2),
	}
}

func TestGridChain(t *testing.T) {
	g := NewGridGame(fixedBoard())

	if err := g.StartMove(0, 0); err != nil {
		t.Fatalf("StartMove: %v", err)
	}
	// 1 + 2 + 3 + 4 + 1 along the arrows, five cells on a 3x3 board
	if g.Score() != 11 {
		t.Fatalf("score = %d; want 11", g.Score())
	}
	// one move spent, two refunded for the long chain
	if g.Moves() != 6 {
		t.Fatalf("moves = %d; want 6", g.Moves())
	}
	for _, row := range g.State(true).Board {
		for _, c := range row {
			if c.empty() {
				t.Fatalf("board not refilled: %v", row)
			}
		}
	}
}

func TestGridIllegalMoves(t *testing.T) {
	cases := []struct {
		name string
		x, y int
		want error
	}{
		{"negative", -1, 0, ErrInvalidCoordinates},
		{"outside", 3, 1, ErrInvalidCoordinates},
		{"below", 0, 3, ErrInvalidCoordinates},
	}

	for _, tc := range cases {
		g := NewGridGame(fixedBoard())
		err := g.StartMove(tc.x, tc.y)
		if !errors.Is(err, ErrIllegalMove) || !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v; want %v", tc.name, err, tc.want)
		}
		if g.Moves() != 5 || g.Score() != 0 {
			t.Fatalf("%s: rejected move changed state: moves=%d score=%d", tc.name, g.Moves(), g.Score())
		}
	}
}

func TestGridSkipUntilInactive(t *testing.T) {
	g := NewGridGame(NewGridBoard(4, 2, 7))

	for i := 0; i < 2; i++ {
		if err := g.SkipMove(); err != nil {
			t.Fatalf("SkipMove %d: %v", i, err)
		}
	}
	if g.IsActive() {
		t.Fatalf("expected inactive after spending all moves")
	}
	if err := g.SkipMove(); !errors.Is(err, ErrInactive) {
		t.Fatalf("SkipMove on inactive = %v; want ErrInactive", err)
	}
	if err := g.StartMove(0, 0); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("StartMove on inactive = %v; want ErrIllegalMove", err)
	}
}

func TestGridCloneIsIndependent(t *testing.T) {
	base := NewGridBoard(5, 5, 42)
	a := base.Clone().(*GridBoard)
	b := base.Clone().(*GridBoard)

	ga, gb := NewGridGame(a), NewGridGame(b)
	if err := ga.StartMove(2, 2); err != nil {
		t.Fatalf("StartMove: %v", err)
	}

	if base.cells[2][2].empty() || b.cells[2][2].empty() {
		t.Fatalf("move on one clone leaked into another")
	}
	if gb.Score() != 0 || gb.Moves() != 5 {
		t.Fatalf("untouched clone changed: score=%d moves=%d", gb.Score(), gb.Moves())
	}

	// identical boards under identical moves stay identical
	if err := gb.StartMove(2, 2); err != nil {
		t.Fatalf("StartMove: %v", err)
	}
	sa, sb := ga.State(true), gb.State(true)
	if sa.Score != sb.Score {
		t.Fatalf("scores diverged: %d vs %d", sa.Score, sb.Score)
	}
	for y := range sa.Board {
		for x := range sa.Board[y] {
			if sa.Board[y][x] != sb.Board[y][x] {
				t.Fatalf("boards diverged at (%d,%d)", x, y)
			}
		}
	}
}

func TestGridRules(t *testing.T) {
	if _, err := GridRules(NewGridBoard(3, 3, 1)); err != nil {
		t.Fatalf("GridRules: %v", err)
	}
	if _, err := GridRules(nil); err == nil {
		t.Fatalf("expected error for unsupported board")
	}
}
