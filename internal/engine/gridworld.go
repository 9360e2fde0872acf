package engine

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"tiny-td-go/internal/td"
)

// Position is a grid cell and the state of every grid demo.
type Position struct {
	Row int
	Col int
}

// Move is an offset applied to a Position.
type Move struct {
	DRow int
	DCol int
}

var (
	Up        = Move{DRow: -1}
	Down      = Move{DRow: 1}
	Left      = Move{DCol: -1}
	Right     = Move{DCol: 1}
	JumpUp    = Move{DRow: -2}
	JumpDown  = Move{DRow: 2}
	JumpLeft  = Move{DCol: -2}
	JumpRight = Move{DCol: 2}
)

// StepMoves are the four single-cell moves; JumpMoves skip one cell.
var (
	StepMoves = []Move{Up, Down, Left, Right}
	JumpMoves = []Move{JumpUp, JumpDown, JumpLeft, JumpRight}
)

func allMoves() []Move {
	moves := make([]Move, 0, len(StepMoves)+len(JumpMoves))
	moves = append(moves, StepMoves...)
	return append(moves, JumpMoves...)
}

func (m Move) IsJump() bool {
	return absInt(m.DRow) == 2 || absInt(m.DCol) == 2
}

func (p Position) Add(m Move) Position {
	return Position{Row: p.Row + m.DRow, Col: p.Col + m.DCol}
}

type tileKind int

const (
	tileOpen tileKind = iota
	tileWall
	tileLava
	tileLand
	tileWater
	tileStart
	tileGoal
)

// grid stores tiles sparsely over a fill kind.
type grid struct {
	rows, cols int
	fill       tileKind
	tiles      map[Position]tileKind
}

func newGrid(rows, cols int, fill tileKind) *grid {
	if rows <= 0 {
		rows = 1
	}
	if cols <= 0 {
		cols = 1
	}
	return &grid{rows: rows, cols: cols, fill: fill, tiles: make(map[Position]tileKind)}
}

func (g *grid) inBounds(p Position) bool {
	return p.Row >= 0 && p.Row < g.rows && p.Col >= 0 && p.Col < g.cols
}

func (g *grid) set(p Position, kind tileKind) {
	if !g.inBounds(p) {
		return
	}
	if kind == g.fill {
		delete(g.tiles, p)
		return
	}
	g.tiles[p] = kind
}

func (g *grid) at(p Position) tileKind {
	if !g.inBounds(p) {
		return tileWall
	}
	if t, ok := g.tiles[p]; ok {
		return t
	}
	return g.fill
}

func (g *grid) positions(kind tileKind) []Position {
	var out []Position
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			p := Position{Row: r, Col: c}
			if g.at(p) == kind {
				out = append(out, p)
			}
		}
	}
	return out
}

func (g *grid) String() string {
	glyphs := map[tileKind]byte{
		tileOpen:  '.',
		tileWall:  '#',
		tileLava:  '~',
		tileLand:  'L',
		tileWater: 'w',
		tileStart: 'S',
		tileGoal:  'G',
	}
	var sb strings.Builder
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			sb.WriteByte(glyphs[g.at(Position{Row: r, Col: c})])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Codec keys persisted grid models: positions as "row,col", moves as "drow,dcol".
type Codec struct{}

var _ td.Codec[Position, Move] = Codec{}

func (Codec) EncodeState(p Position) string { return encodePair(p.Row, p.Col) }
func (Codec) EncodeAction(m Move) string    { return encodePair(m.DRow, m.DCol) }

func (Codec) DecodeState(key string) (Position, error) {
	r, c, err := decodePair(key)
	return Position{Row: r, Col: c}, err
}

func (Codec) DecodeAction(key string) (Move, error) {
	r, c, err := decodePair(key)
	return Move{DRow: r, DCol: c}, err
}

func encodePair(a, b int) string {
	return strconv.Itoa(a) + "," + strconv.Itoa(b)
}

func decodePair(key string) (int, int, error) {
	left, right, ok := strings.Cut(key, ",")
	if !ok {
		return 0, 0, errors.Errorf("key %q: want two comma separated integers", key)
	}
	a, err := strconv.Atoi(left)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "key %q", key)
	}
	b, err := strconv.Atoi(right)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "key %q", key)
	}
	return a, b, nil
}
