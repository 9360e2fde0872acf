package tictactoe

import "bytes"

const last = Size - 1

// pointMaps are the eight symmetries of the square, each giving where cell
// (r, c) lands. Boards and cells are transformed by the same table, which keeps
// SymmetricStates and SymmetricActions aligned index by index.
var pointMaps = [8]func(r, c int) (int, int){
	func(r, c int) (int, int) { return r, c },               // identity
	func(r, c int) (int, int) { return last - c, r },        // rotate 90 counter-clockwise
	func(r, c int) (int, int) { return last - r, last - c }, // rotate 180
	func(r, c int) (int, int) { return c, last - r },        // rotate 270
	func(r, c int) (int, int) { return r, last - c },        // flip left-right
	func(r, c int) (int, int) { return last - r, c },        // flip up-down
	func(r, c int) (int, int) { return c, r },               // transpose
	func(r, c int) (int, int) { return last - c, last - r }, // anti-transpose
}

func transformBoard(b Board, i int) Board {
	var out Board
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			nr, nc := pointMaps[i](r, c)
			out[nr][nc] = b[r][c]
		}
	}
	return out
}

// SymmetricStates returns b under each of the eight symmetries.
func SymmetricStates(b Board) [8]Board {
	var out [8]Board
	for i := range pointMaps {
		out[i] = transformBoard(b, i)
	}
	return out
}

// SymmetricActions returns c under each of the eight symmetries, in the same
// order as SymmetricStates.
func SymmetricActions(c Cell) [8]Cell {
	var out [8]Cell
	for i, m := range pointMaps {
		r, col := m(c.Row, c.Col)
		out[i] = Cell{Row: r, Col: col}
	}
	return out
}

// encode maps every cell to value+1 in row-major order.
func (b Board) encode() [Size * Size]byte {
	var out [Size * Size]byte
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out[r*Size+c] = byte(b[r][c] + 1)
		}
	}
	return out
}

// Canonicalize picks the symmetric variant of b with the lexicographically
// smallest encoding. Equivalent boards share one canonical form.
func Canonicalize(b Board) Board {
	best := b
	bestKey := b.encode()
	for i := 1; i < len(pointMaps); i++ {
		candidate := transformBoard(b, i)
		key := candidate.encode()
		if bytes.Compare(key[:], bestKey[:]) < 0 {
			best, bestKey = candidate, key
		}
	}
	return best
}

// Dihedral exposes the square's symmetry group to the learning agent.
type Dihedral struct{}

func (Dihedral) Canonical(b Board) Board { return Canonicalize(b) }

func (Dihedral) States(b Board) []Board {
	states := SymmetricStates(b)
	return states[:]
}

func (Dihedral) Actions(c Cell) []Cell {
	actions := SymmetricActions(c)
	return actions[:]
}
