package engine

import "math/rand"

const (
	mazeGoalReward = 10
	mazeStepReward = -0.1
	mazeWallReward = -1
	// DefaultMazeSteps caps a maze episode.
	DefaultMazeSteps = 100
)

// MazeEnv is a carved maze entered on the top edge and exited on the bottom
// edge. Bumping a wall costs -1 and leaves the agent in place.
type MazeEnv struct {
	grid     *grid
	start    Position
	goal     Position
	maxSteps int
	steps    int
}

// NewMazeEnv carves a width x height maze with a randomized depth-first walk.
// Even sizes are rounded up so passages sit on odd coordinates. A positive
// maxDepth stops the walk recursing past that depth, which can leave the exit
// sealed off; zero carves a perfect maze in which every passage is reachable.
func NewMazeEnv(width, height, maxDepth int, rng *rand.Rand) *MazeEnv {
	width, height = oddAtLeast(width), oddAtLeast(height)
	g := newGrid(height, width, tileWall)
	g.set(Position{Row: 1, Col: 1}, tileOpen)
	carve(g, Position{Row: 1, Col: 1}, 0, maxDepth, rng)

	start := Position{Row: 0, Col: 1}
	goal := Position{Row: height - 1, Col: width - 2}
	g.set(start, tileOpen)
	g.set(goal, tileOpen)
	return &MazeEnv{grid: g, start: start, goal: goal, maxSteps: DefaultMazeSteps}
}

func oddAtLeast(n int) int {
	if n < 5 {
		n = 5
	}
	if n%2 == 0 {
		n++
	}
	return n
}

func carve(g *grid, from Position, depth, maxDepth int, rng *rand.Rand) {
	dirs := append([]Move(nil), JumpMoves...)
	rng.Shuffle(len(dirs), func(i, j int) { dirs[i], dirs[j] = dirs[j], dirs[i] })
	for _, d := range dirs {
		next := from.Add(d)
		if next.Row < 1 || next.Row >= g.rows-1 || next.Col < 1 || next.Col >= g.cols-1 {
			continue
		}
		if g.at(next) != tileWall {
			continue
		}
		g.set(Position{Row: from.Row + d.DRow/2, Col: from.Col + d.DCol/2}, tileOpen)
		g.set(next, tileOpen)
		if maxDepth <= 0 || depth < maxDepth {
			carve(g, next, depth+1, maxDepth, rng)
		}
	}
}

// SetMaxSteps changes the episode cap; non-positive values restore the default.
func (e *MazeEnv) SetMaxSteps(n int) {
	if n <= 0 {
		n = DefaultMazeSteps
	}
	e.maxSteps = n
}

func (e *MazeEnv) Reset() Position {
	e.steps = 0
	return e.start
}

func (e *MazeEnv) Actions() []Move { return StepMoves }
func (e *MazeEnv) Rows() int       { return e.grid.rows }
func (e *MazeEnv) Cols() int       { return e.grid.cols }
func (e *MazeEnv) Goal() Position  { return e.goal }
func (e *MazeEnv) Start() Position { return e.start }

// Open reports whether p is an in-bounds passage.
func (e *MazeEnv) Open(p Position) bool {
	return e.grid.inBounds(p) && e.grid.at(p) == tileOpen
}

// ValidActions lists the moves that do not hit a wall.
func (e *MazeEnv) ValidActions(state Position) []Move {
	var out []Move
	for _, m := range StepMoves {
		if e.Open(state.Add(m)) {
			out = append(out, m)
		}
	}
	return out
}

func (e *MazeEnv) Step(state Position, action Move) (Position, float64, bool) {
	e.steps++
	capped := e.steps >= e.maxSteps
	next := state.Add(action)
	if !e.Open(next) {
		return state, mazeWallReward, capped
	}
	if next == e.goal {
		return next, mazeGoalReward, true
	}
	return next, mazeStepReward, capped
}

// IsDeadEnd reports a passage with at most one open neighbour that is not the
// exit.
func (e *MazeEnv) IsDeadEnd(p Position) bool {
	return p != e.goal && e.Open(p) && len(e.ValidActions(p)) <= 1
}

func (e *MazeEnv) String() string { return e.grid.String() }
