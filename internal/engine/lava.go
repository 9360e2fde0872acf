package engine

import "math/rand"

// LavaEnv is the floor-is-lava demo: cross a lava floor from the top-left to
// the bottom-right corner, preferring land tiles and jumping between them.
type LavaEnv struct {
	grid    *grid
	start   Position
	goal    Position
	visited map[Position]bool
}

// NewLavaEnv generates a size x size floor from rng.
func NewLavaEnv(size int, rng *rand.Rand) *LavaEnv {
	if size < 3 {
		size = 3
	}
	g := newGrid(size, size, tileLava)
	start := Position{Row: 0, Col: 0}
	goal := Position{Row: size - 1, Col: size - 1}
	g.set(start, tileStart)
	g.set(goal, tileGoal)

	// The goal always borders at least one land tile.
	neighbours := []Position{{Row: size - 2, Col: size - 1}, {Row: size - 1, Col: size - 2}}
	rng.Shuffle(len(neighbours), func(i, j int) { neighbours[i], neighbours[j] = neighbours[j], neighbours[i] })
	g.set(neighbours[0], tileLand)

	blocks := 8 + rng.Intn(8)
	for i := 0; i < blocks; i++ {
		origin := Position{Row: rng.Intn(size), Col: rng.Intn(size)}
		horizontal := rng.Intn(2) == 0
		length := 1 + rng.Intn(2)
		for j := 0; j < length; j++ {
			p := origin
			if horizontal {
				p.Col += j
			} else {
				p.Row += j
			}
			if g.inBounds(p) && g.at(p) == tileLava {
				g.set(p, tileLand)
			}
		}
	}
	env := &LavaEnv{grid: g, start: start, goal: goal}
	env.Reset()
	return env
}

func (e *LavaEnv) Reset() Position {
	e.visited = map[Position]bool{e.start: true}
	return e.start
}

func (e *LavaEnv) ValidActions(Position) []Move { return allMoves() }
func (e *LavaEnv) Actions() []Move              { return allMoves() }
func (e *LavaEnv) Rows() int                    { return e.grid.rows }
func (e *LavaEnv) Cols() int                    { return e.grid.cols }
func (e *LavaEnv) Goal() Position               { return e.goal }

// Step scores a move: -1 per step, -2 per jump, -10 for landing in lava, +10
// for jumping onto land, +1 for reaching unseen land and +100 at the goal.
// Moves off the floor leave the agent in place.
func (e *LavaEnv) Step(state Position, action Move) (Position, float64, bool) {
	reward := -1.0
	if action.IsJump() {
		reward = -2
	}
	next := state.Add(action)
	if !e.grid.inBounds(next) {
		return state, reward, false
	}
	done := false
	switch e.grid.at(next) {
	case tileLava:
		reward -= 10
	case tileLand, tileStart:
		if action.IsJump() {
			reward += 10
		}
		if !e.visited[next] {
			reward++
		}
	case tileGoal:
		reward += 100
		done = true
	}
	e.visited[next] = true
	return next, reward, done
}

func (e *LavaEnv) String() string { return e.grid.String() }
