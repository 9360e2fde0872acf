package td

import (
	"math"
	"math/rand"
)

// ValueTable maps a state to the estimated value of each action tried there.
//
// Reads through Get never mutate the table; an absent pair reads as 0. Touch
// materializes zero-valued entries so that rows used for max/argmax queries hold
// every action that was offered at that state. Entries are never removed.
type ValueTable[S comparable, A comparable] struct {
	rows  map[S]map[A]float64
	pairs int
}

func NewValueTable[S comparable, A comparable]() *ValueTable[S, A] {
	return &ValueTable[S, A]{rows: make(map[S]map[A]float64)}
}

func (t *ValueTable[S, A]) Get(s S, a A) float64 {
	return t.rows[s][a]
}

func (t *ValueTable[S, A]) Lookup(s S, a A) (float64, bool) {
	row, ok := t.rows[s]
	if !ok {
		return 0, false
	}
	v, ok := row[a]
	return v, ok
}

func (t *ValueTable[S, A]) Set(s S, a A, value float64) {
	row := t.row(s)
	if _, ok := row[a]; !ok {
		t.pairs++
	}
	row[a] = value
}

// Touch adds a zero entry for every action not yet present at s.
func (t *ValueTable[S, A]) Touch(s S, actions []A) {
	row := t.row(s)
	for _, a := range actions {
		if _, ok := row[a]; ok {
			continue
		}
		row[a] = 0
		t.pairs++
	}
}

func (t *ValueTable[S, A]) row(s S) map[A]float64 {
	row, ok := t.rows[s]
	if !ok {
		row = make(map[A]float64)
		t.rows[s] = row
	}
	return row
}

// MaxValue returns the largest value among actions at s, or 0 when actions is empty.
func (t *ValueTable[S, A]) MaxValue(s S, actions []A) float64 {
	if len(actions) == 0 {
		return 0
	}
	max := math.Inf(-1)
	for _, a := range actions {
		if v := t.Get(s, a); v > max {
			max = v
		}
	}
	return max
}

// BestAction returns the highest valued candidate. Ties are broken uniformly at
// random among every maximal candidate. candidates must not be empty.
func (t *ValueTable[S, A]) BestAction(s S, candidates []A, rng *rand.Rand) A {
	bestAction := candidates[0]
	bestScore := math.Inf(-1)
	countBest := 0
	for _, a := range candidates {
		score := t.Get(s, a)
		if score > bestScore {
			bestScore = score
			bestAction = a
			countBest = 1
		} else if score == bestScore {
			countBest++
			if rng.Intn(countBest) == 0 {
				bestAction = a
			}
		}
	}
	return bestAction
}

// Len reports the number of stored (state, action) pairs.
func (t *ValueTable[S, A]) Len() int {
	return t.pairs
}

// States reports the number of stored rows.
func (t *ValueTable[S, A]) States() int {
	return len(t.rows)
}

// Row returns a copy of the entries stored for s.
func (t *ValueTable[S, A]) Row(s S) map[A]float64 {
	row, ok := t.rows[s]
	if !ok {
		return nil
	}
	out := make(map[A]float64, len(row))
	for a, v := range row {
		out[a] = v
	}
	return out
}

// Range calls fn for every stored entry until fn returns false. Iteration order
// is unspecified.
func (t *ValueTable[S, A]) Range(fn func(s S, a A, value float64) bool) {
	for s, row := range t.rows {
		for a, v := range row {
			if !fn(s, a, v) {
				return
			}
		}
	}
}

// Equal reports whether both tables hold exactly the same entries.
func (t *ValueTable[S, A]) Equal(other *ValueTable[S, A]) bool {
	if t.pairs != other.pairs || len(t.rows) != len(other.rows) {
		return false
	}
	for s, row := range t.rows {
		otherRow, ok := other.rows[s]
		if !ok || len(row) != len(otherRow) {
			return false
		}
		for a, v := range row {
			if ov, ok := otherRow[a]; !ok || ov != v {
				return false
			}
		}
	}
	return true
}
