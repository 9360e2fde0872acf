// Package tictactoe is the 3x3 board game the symmetric tabular agent learns.
package tictactoe

import (
	"strings"

	"github.com/pkg/errors"
)

const Size = 3

// Marks stored on a Board.
const (
	Empty int8 = 0
	X     int8 = 1
	O     int8 = -1
)

// ErrIllegalMove is returned when a move targets an occupied or off-board cell,
// or the game is already over.
var ErrIllegalMove = errors.New("illegal move")

// Board is a value type so it can key the value table directly.
type Board [Size][Size]int8

type Cell struct {
	Row int
	Col int
}

func (c Cell) onBoard() bool {
	return c.Row >= 0 && c.Row < Size && c.Col >= 0 && c.Col < Size
}

// ValidMoves lists the empty cells in row-major order.
func (b Board) ValidMoves() []Cell {
	moves := make([]Cell, 0, Size*Size)
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c] == Empty {
				moves = append(moves, Cell{Row: r, Col: c})
			}
		}
	}
	return moves
}

// Winner returns the mark owning a full line, or Empty.
func (b Board) Winner() int8 {
	lines := [][Size]Cell{
		{{0, 0}, {1, 1}, {2, 2}},
		{{0, 2}, {1, 1}, {2, 0}},
	}
	for i := 0; i < Size; i++ {
		lines = append(lines,
			[Size]Cell{{i, 0}, {i, 1}, {i, 2}},
			[Size]Cell{{0, i}, {1, i}, {2, i}},
		)
	}
	for _, line := range lines {
		sum := 0
		for _, cell := range line {
			sum += int(b[cell.Row][cell.Col])
		}
		switch sum {
		case Size:
			return X
		case -Size:
			return O
		}
	}
	return Empty
}

func (b Board) Full() bool {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c] == Empty {
				return false
			}
		}
	}
	return true
}

// Terminal reports whether no further move can be played.
func (b Board) Terminal() bool {
	return b.Winner() != Empty || b.Full()
}

// ToMove derives whose turn it is from the mark counts; X always opens.
func (b Board) ToMove() int8 {
	balance := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			balance += int(b[r][c])
		}
	}
	if balance > 0 {
		return O
	}
	return X
}

func markRune(v int8) byte {
	switch v {
	case X:
		return 'X'
	case O:
		return 'O'
	default:
		return '.'
	}
}

func (b Board) String() string {
	var sb strings.Builder
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			sb.WriteByte(markRune(b[r][c]))
		}
		if r < Size-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Game tracks a single match between X and O.
type Game struct {
	board  Board
	turn   int8
	over   bool
	winner int8
}

func NewGame() *Game {
	g := &Game{}
	g.Reset()
	return g
}

// GameFrom resumes play from an arbitrary position.
func GameFrom(b Board) *Game {
	g := &Game{board: b, turn: b.ToMove()}
	g.settle()
	return g
}

func (g *Game) Reset() {
	g.board = Board{}
	g.turn = X
	g.over = false
	g.winner = Empty
}

func (g *Game) Board() Board       { return g.board }
func (g *Game) Turn() int8         { return g.turn }
func (g *Game) Over() bool         { return g.over }
func (g *Game) Winner() int8       { return g.winner }
func (g *Game) ValidMoves() []Cell { return g.board.ValidMoves() }

func (g *Game) Play(c Cell) error {
	if g.over {
		return errors.Wrap(ErrIllegalMove, "game is over")
	}
	if !c.onBoard() || g.board[c.Row][c.Col] != Empty {
		return errors.Wrapf(ErrIllegalMove, "cell (%d,%d)", c.Row, c.Col)
	}
	g.board[c.Row][c.Col] = g.turn
	g.turn = -g.turn
	g.settle()
	return nil
}

func (g *Game) settle() {
	if w := g.board.Winner(); w != Empty {
		g.over = true
		g.winner = w
		return
	}
	if g.board.Full() {
		g.over = true
		g.winner = Empty
	}
}

// Reward scores the game for player: win 1, loss -1, draw 0.5, unfinished 0.
func (g *Game) Reward(player int8) float64 {
	if !g.over {
		return 0
	}
	switch g.winner {
	case Empty:
		return 0.5
	case player:
		return 1
	default:
		return -1
	}
}
