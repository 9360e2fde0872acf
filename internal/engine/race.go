package engine

import (
	"context"
	"io"
	"log/slog"
	"math/rand"

	"tiny-td-go/internal/td"
)

const (
	RacerQLearning = "q-learning"
	RacerSARSA     = "sarsa"
	RacerNone      = "none"

	// DefaultRaceSteps caps one race round.
	DefaultRaceSteps = 300
)

// RaceCourse is a water grid split into two mirrored row bands, each holding
// land corridors from a start on the left edge to a goal on the right edge.
type RaceCourse struct {
	grid  *grid
	bands [2][2]int
	start [2]Position
	goal  [2]Position
}

// NewRaceCourse lays out a rows x cols course. Three corridor rows are drawn
// for the top band and mirrored into the bottom band.
func NewRaceCourse(rows, cols int, rng *rand.Rand) *RaceCourse {
	if rows < 6 {
		rows = 6
	}
	if rows%2 == 1 {
		rows++
	}
	if cols < 3 {
		cols = 3
	}
	half := rows / 2
	g := newGrid(rows, cols, tileWater)
	rc := &RaceCourse{grid: g}
	for i := 0; i < 2; i++ {
		top := i * half
		rc.bands[i] = [2]int{top, top + half - 1}
		rc.start[i] = Position{Row: top, Col: 0}
		rc.goal[i] = Position{Row: top + half - 1, Col: cols - 1}
	}

	corridors := rng.Perm(half)
	if len(corridors) > 3 {
		corridors = corridors[:3]
	}
	for col := 1; col < cols-1; col++ {
		for _, r := range corridors {
			g.set(Position{Row: r, Col: col}, tileLand)
			g.set(Position{Row: r + half, Col: col}, tileLand)
		}
	}
	for i := 0; i < 2; i++ {
		g.set(rc.start[i], tileStart)
		g.set(rc.goal[i], tileGoal)
		approach := rc.goal[i].Add(Left)
		if g.at(approach) == tileWater {
			g.set(approach, tileLand)
		}
	}
	return rc
}

func (rc *RaceCourse) String() string { return rc.grid.String() }

// Lane returns the environment of band i (0 or 1).
func (rc *RaceCourse) Lane(i int) *Lane {
	if i < 0 || i > 1 {
		i = 0
	}
	return &Lane{course: rc, band: rc.bands[i], start: rc.start[i], goal: rc.goal[i]}
}

// Lane is one racer's view of a RaceCourse. Moves that would leave its band
// cost -10 and keep the racer in place.
type Lane struct {
	course  *RaceCourse
	band    [2]int
	start   Position
	goal    Position
	prev    Position
	hasPrev bool
}

func (l *Lane) Reset() Position {
	l.hasPrev = false
	return l.start
}

func (l *Lane) ValidActions(Position) []Move { return allMoves() }
func (l *Lane) Actions() []Move              { return allMoves() }
func (l *Lane) Rows() int                    { return l.course.grid.rows }
func (l *Lane) Cols() int                    { return l.course.grid.cols }
func (l *Lane) Goal() Position               { return l.goal }
func (l *Lane) String() string               { return l.course.String() }

func (l *Lane) inBand(p Position) bool {
	return l.course.grid.inBounds(p) && p.Row >= l.band[0] && p.Row <= l.band[1]
}

// Step charges -1 per move and 2 more per jump. Doubling back to the previous
// cell costs an extra -1, land earns +1 (and +10 more when coming from land),
// water costs -10 and the goal pays +100.
func (l *Lane) Step(state Position, action Move) (Position, float64, bool) {
	next := state.Add(action)
	if !l.inBand(next) {
		return state, -10, false
	}
	g := l.course.grid
	reward := -1.0
	if action.IsJump() {
		reward -= 2
	}
	switch {
	case l.hasPrev && next == l.prev:
		reward--
	case g.at(next) == tileLand:
		if l.hasPrev && g.at(l.prev) == tileLand {
			reward += 10
		}
		reward++
	case g.at(next) == tileWater:
		reward -= 10
	case next == l.goal:
		reward += 100
	}
	l.prev, l.hasPrev = next, true
	return next, reward, next == l.goal
}

// RaceConfig drives RunRace. Zero fields take the demo defaults.
type RaceConfig struct {
	Rounds   int       `json:"rounds" yaml:"rounds"`
	MaxSteps int       `json:"maxSteps" yaml:"max_steps"`
	Rows     int       `json:"rows" yaml:"rows"`
	Cols     int       `json:"cols" yaml:"cols"`
	Seed     int64     `json:"seed" yaml:"seed"`
	LogEvery int       `json:"logEvery" yaml:"log_every"`
	Agent    td.Config `json:"agent" yaml:"agent"`
}

// RaceRound records who reached its goal first and after how many steps.
type RaceRound struct {
	Winner string
	Steps  int
}

type RaceResult struct {
	Course        string
	QLearningWins int
	SARSAWins     int
	NoWinner      int
	Rounds        []RaceRound
}

type racer struct {
	name   string
	lane   *Lane
	agent  *td.Agent[Position, Move]
	sarsa  bool
	state  Position
	action Move
}

// RunRace pits a Q-learning agent on lane 0 against a SARSA agent on lane 1.
// Both keep learning across rounds; a round ends when either reaches its goal
// or the step cap runs out, and Q-learning is checked first on a shared step.
func RunRace(ctx context.Context, cfg RaceConfig, logger *slog.Logger) (RaceResult, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Rounds <= 0 {
		cfg.Rounds = 1
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultRaceSteps
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 10
	}
	if cfg.Cols <= 0 {
		cfg.Cols = 10
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	rng := rand.New(rand.NewSource(seed))
	course := NewRaceCourse(cfg.Rows, cfg.Cols, rng)

	racers := make([]*racer, 2)
	for i, name := range []string{RacerQLearning, RacerSARSA} {
		agent, err := td.NewAgent[Position, Move](cfg.Agent,
			td.WithRand[Position, Move](rand.New(rand.NewSource(seed+int64(i)+1))),
			td.WithLogger[Position, Move](logger.With("racer", name)))
		if err != nil {
			return RaceResult{}, err
		}
		racers[i] = &racer{name: name, lane: course.Lane(i), agent: agent, sarsa: name == RacerSARSA}
	}

	result := RaceResult{Course: course.String()}
	for round := 1; round <= cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		outcome, err := raceRound(racers, cfg.MaxSteps)
		if err != nil {
			return result, err
		}
		switch outcome.Winner {
		case RacerQLearning:
			result.QLearningWins++
		case RacerSARSA:
			result.SARSAWins++
		default:
			result.NoWinner++
		}
		result.Rounds = append(result.Rounds, outcome)
		if cfg.LogEvery > 0 && round%cfg.LogEvery == 0 {
			logger.Info("race progress", "round", round, "winner", outcome.Winner, "steps", outcome.Steps)
		}
	}
	return result, nil
}

func raceRound(racers []*racer, maxSteps int) (RaceRound, error) {
	for _, r := range racers {
		r.state = r.lane.Reset()
		a, err := r.agent.SelectAction(r.state, r.lane.ValidActions(r.state))
		if err != nil {
			return RaceRound{}, err
		}
		r.action = a
	}
	for step := 0; step < maxSteps; step++ {
		for _, r := range racers {
			if err := r.advance(); err != nil {
				return RaceRound{}, err
			}
		}
		for _, r := range racers {
			if r.state == r.lane.Goal() {
				return RaceRound{Winner: r.name, Steps: step + 1}, nil
			}
		}
	}
	return RaceRound{Winner: RacerNone, Steps: maxSteps}, nil
}

func (r *racer) advance() error {
	next, reward, done := r.lane.Step(r.state, r.action)
	t := td.Transition[Position, Move]{State: r.state, Action: r.action, Reward: reward, Next: next}
	if done {
		r.agent.Update(t)
		r.state = next
		return nil
	}
	t.NextActions = r.lane.ValidActions(next)
	nextAction, err := r.agent.SelectAction(next, t.NextActions)
	if err != nil {
		return err
	}
	if r.sarsa {
		r.agent.UpdateOnPolicy(t, nextAction)
	} else {
		r.agent.Update(t)
	}
	r.state, r.action = next, nextAction
	return nil
}
