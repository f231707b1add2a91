package game

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Direction is where an arrow cell sends the chain next.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

var directions = [4]Direction{Up, Down, Left, Right}

const (
	GridDefaultSize  = 5
	GridDefaultMoves = 5
	GridMaxPoints    = 4
)

// Cell is one arrow on the board. Points == 0 marks a cleared cell.
type Cell struct {
	Points int       `json:"points"`
	Dir    Direction `json:"dir"`
}

func (c Cell) empty() bool { return c.Points == 0 }

// GridBoard is a square board of arrows. Refills after a move are drawn from
// the board's own generator, so two clones of one board evolve identically
// under the same moves.
type GridBoard struct {
	size  int
	moves int
	cells [][]Cell
	src   *rand.PCG
}

// NewGridBoard generates a size x size board from seed. moves is the budget
// every participant starts with.
func NewGridBoard(size, moves int, seed uint64) *GridBoard {
	if size <= 0 {
		size = GridDefaultSize
	}
	if moves <= 0 {
		moves = GridDefaultMoves
	}

	b := &GridBoard{
		size:  size,
		moves: moves,
		src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}
	b.cells = make([][]Cell, size)
	for y := range b.cells {
		b.cells[y] = make([]Cell, size)
		for x := range b.cells[y] {
			b.cells[y][x] = b.randomCell()
		}
	}
	return b
}

func (b *GridBoard) randomCell() Cell {
	r := rand.New(b.src)
	return Cell{
		Points: r.IntN(GridMaxPoints) + 1,
		Dir:    directions[r.IntN(len(directions))],
	}
}

// Size returns the board side length.
func (b *GridBoard) Size() int { return b.size }

// Clone implements Board.
func (b *GridBoard) Clone() Board {
	src := *b.src
	c := &GridBoard{
		size:  b.size,
		moves: b.moves,
		cells: make([][]Cell, len(b.cells)),
		src:   &src,
	}
	for y, row := range b.cells {
		c.cells[y] = append([]Cell(nil), row...)
	}
	return c
}

func (b *GridBoard) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.size && y < b.size
}

// chain clears the arrows reachable from (x, y) and returns the collected
// points and the number of cleared cells.
func (b *GridBoard) chain(x, y int) (points, length int) {
	for b.inside(x, y) {
		cell := b.cells[y][x]
		points += cell.Points
		length++
		b.cells[y][x] = Cell{}

		dx, dy := step(cell.Dir)
		x, y = x+dx, y+dy
		for b.inside(x, y) && b.cells[y][x].empty() {
			x, y = x+dx, y+dy
		}
	}
	return points, length
}

// settle drops remaining arrows to the bottom of each column and refills the top.
func (b *GridBoard) settle() {
	for x := 0; x < b.size; x++ {
		dst := b.size - 1
		for y := b.size - 1; y >= 0; y-- {
			if b.cells[y][x].empty() {
				continue
			}
			b.cells[dst][x] = b.cells[y][x]
			dst--
		}
		for ; dst >= 0; dst-- {
			b.cells[dst][x] = b.randomCell()
		}
	}
}

func step(d Direction) (int, int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	default:
		return 1, 0
	}
}

// GridGame validates moves against one participant's GridBoard.
type GridGame struct {
	board *GridBoard
	score int
	moves int
	mu    sync.RWMutex
}

// GridRules is the Rules for GridBoard.
func GridRules(b Board) (Validator, error) {
	gb, ok := b.(*GridBoard)
	if !ok {
		return nil, fmt.Errorf("grid rules: unsupported board %T", b)
	}
	return NewGridGame(gb), nil
}

// NewGridGame plays directly on board; callers pass a private clone.
func NewGridGame(board *GridBoard) *GridGame {
	return &GridGame{
		board: board,
		moves: board.moves,
	}
}

func (g *GridGame) StartMove(x, y int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.moves <= 0 {
		return fmt.Errorf("%w: %w", ErrIllegalMove, ErrInactive)
	}
	if !g.board.inside(x, y) {
		return fmt.Errorf("%w: %w (%d,%d)", ErrIllegalMove, ErrInvalidCoordinates, x, y)
	}
	if g.board.cells[y][x].empty() {
		return fmt.Errorf("%w: cell (%d,%d) is empty", ErrIllegalMove, x, y)
	}

	points, length := g.board.chain(x, y)
	g.board.settle()

	g.score += points
	g.moves--
	// long chains refund moves
	if bonus := length - g.board.size; bonus > 0 {
		g.moves += bonus
	}
	return nil
}

func (g *GridGame) SkipMove() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.moves <= 0 {
		return fmt.Errorf("%w: %w", ErrIllegalMove, ErrInactive)
	}
	g.moves--
	return nil
}

// Refill restores the starting move budget and resets the score.
func (g *GridGame) Refill() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.moves = g.board.moves
	g.score = 0
}

func (g *GridGame) IsActive() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.moves > 0
}

func (g *GridGame) Score() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.score
}

func (g *GridGame) Moves() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.moves
}

func (g *GridGame) State(includeBoard bool) State {
	g.mu.RLock()
	defer g.mu.RUnlock()

	st := State{
		Score:  g.score,
		Moves:  g.moves,
		Active: g.moves > 0,
	}
	if includeBoard {
		st.Board = make([][]Cell, len(g.board.cells))
		for y, row := range g.board.cells {
			st.Board[y] = append([]Cell(nil), row...)
		}
	}
	return st
}
