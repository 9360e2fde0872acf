package tictactoe

import (
	"math/rand"
	"testing"
)

func randomBoard(rng *rand.Rand) Board {
	var b Board
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			b[r][c] = int8(rng.Intn(3) - 1)
		}
	}
	return b
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	for i := 0; i < 500; i++ {
		b := randomBoard(rng)
		once := Canonicalize(b)
		if twice := Canonicalize(once); twice != once {
			t.Fatalf("expected idempotent canonical form for\n%s\ngot\n%s\nthen\n%s", b, once, twice)
		}
	}
}

func TestCanonicalizeIsSymmetryInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	for i := 0; i < 500; i++ {
		b := randomBoard(rng)
		want := Canonicalize(b)
		for k, variant := range SymmetricStates(b) {
			if got := Canonicalize(variant); got != want {
				t.Fatalf("transform %d: expected canonical\n%s\ngot\n%s", k, want, got)
			}
		}
	}
}

func TestSymmetricStatesAreDistinctForAsymmetricBoard(t *testing.T) {
	b := Board{{X, O, Empty}, {Empty, Empty, Empty}, {Empty, Empty, Empty}}
	seen := make(map[Board]bool)
	for _, s := range SymmetricStates(b) {
		seen[s] = true
	}
	if len(seen) != 8 {
		t.Fatalf("expected 8 distinct variants, got %d", len(seen))
	}
}

func TestSymmetricActionsAlignWithStates(t *testing.T) {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			cell := Cell{Row: r, Col: c}
			var b Board
			b[r][c] = X
			states := SymmetricStates(b)
			actions := SymmetricActions(cell)
			for i := range states {
				moved := actions[i]
				if states[i][moved.Row][moved.Col] != X {
					t.Fatalf("transform %d: mark of (%d,%d) expected at (%d,%d)\n%s", i, r, c, moved.Row, moved.Col, states[i])
				}
			}
		}
	}
}

func TestRotationMatchesCounterClockwiseTurn(t *testing.T) {
	b := Board{{X, Empty, Empty}, {Empty, Empty, Empty}, {Empty, Empty, Empty}}
	rotated := SymmetricStates(b)[1]
	if rotated[2][0] != X {
		t.Fatalf("expected top-left mark at bottom-left after a quarter turn, got\n%s", rotated)
	}
}

func TestDihedralImplementsAlignedSlices(t *testing.T) {
	var sym Dihedral
	b := Board{{X, Empty, Empty}, {Empty, O, Empty}, {Empty, Empty, Empty}}
	if len(sym.States(b)) != len(sym.Actions(Cell{Row: 0, Col: 1})) {
		t.Fatalf("expected aligned state and action slices")
	}
	if sym.Canonical(b) != Canonicalize(b) {
		t.Fatalf("expected Dihedral.Canonical to match Canonicalize")
	}
}
