package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"tiny-td-go/internal/td"
)

func clampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

const (
	StatusRunning         = "running"
	StatusEpisodeComplete = "episode_complete"
	StatusDone            = "done"
	StatusCancelled       = "cancelled"
	StatusFailed          = "failed"
)

const (
	AlgorithmQLearning = "q-learning"
	AlgorithmSARSA     = "sarsa"
)

const (
	EnvLava = "lava"
	EnvMaze = "maze"
)

// defaultLavaSteps bounds lava episodes, which only end at the goal.
const defaultLavaSteps = 200

type Config struct {
	Env               string
	Algorithm         string
	Episodes          int
	Seed              int64
	Size              int
	MazeDepth         int
	MaxSteps          int
	StepDelayMs       int
	Alpha             float64
	Gamma             float64
	Epsilon           float64
	EpsilonMin        float64
	EpsilonDecay      float64
	ForceExplore      float64
	ExplorationBonus  float64
	ReplayCapacity    int
	ReplayBatch       int
	RequiredSuccesses int
	DeadEnds          bool
	DumpVisits        bool

	Logger *slog.Logger `json:"-"`
	Output io.Writer    `json:"-"`
}

// DefaultConfig returns the demo hyperparameters for env.
func DefaultConfig(env string) Config {
	if env == EnvMaze {
		return Config{
			Env:               EnvMaze,
			Algorithm:         AlgorithmQLearning,
			Episodes:          2000,
			Size:              9,
			MaxSteps:          DefaultMazeSteps,
			Alpha:             0.2,
			Gamma:             0.95,
			Epsilon:           1,
			EpsilonMin:        0.01,
			EpsilonDecay:      0.998,
			RequiredSuccesses: 3,
			DeadEnds:          true,
		}
	}
	return Config{
		Env:       EnvLava,
		Algorithm: AlgorithmQLearning,
		Episodes:  5000,
		Size:      8,
		MaxSteps:  defaultLavaSteps,
		Alpha:     0.1,
		Gamma:     0.9,
		Epsilon:   0.2,
	}
}

type Snapshot struct {
	Step              int
	Episode           int
	EpisodeSteps      int
	EpisodeReward     float64
	Reward            float64
	Position          Position
	Goal              Position
	ValueMap          [][]float64
	Layout            []string
	Epsilon           float64
	SuccessCount      int
	EpisodesCompleted int
	TotalReward       float64
	TotalSteps        int
	Config            Config
	Status            string
}

// EpisodeStat is the outcome of one finished training episode.
type EpisodeStat struct {
	Episode int
	Steps   int
	Reward  float64
	Success bool
	Epsilon float64
}

// Summary aggregates the recorded episodes.
type Summary struct {
	Episodes   int
	Successes  int
	MeanReward float64
	StdReward  float64
	MeanSteps  float64
}

type gridEnv interface {
	td.Environment[Position, Move]
	Actions() []Move
	Rows() int
	Cols() int
	Goal() Position
	String() string
}

var (
	_ gridEnv = (*LavaEnv)(nil)
	_ gridEnv = (*MazeEnv)(nil)
	_ gridEnv = (*Lane)(nil)
)

type deadEndDetector interface {
	IsDeadEnd(Position) bool
}

type Trainer struct {
	cfg               Config
	log               *slog.Logger
	out               io.Writer
	env               gridEnv
	layout            []string
	agent             *td.Agent[Position, Move]
	deadEnds          map[Position]bool
	position          Position
	step              int
	successCount      int
	episodesCompleted int
	totalReward       float64
	totalSteps        int
	episodes          []EpisodeStat
	err               error
}

func NewTrainer(cfg Config) (*Trainer, error) {
	switch cfg.Env {
	case EnvLava, EnvMaze:
	case "":
		cfg.Env = EnvLava
	default:
		return nil, errors.Errorf("unknown environment %q", cfg.Env)
	}
	switch cfg.Algorithm {
	case AlgorithmQLearning, AlgorithmSARSA:
	case "":
		cfg.Algorithm = AlgorithmQLearning
	default:
		return nil, errors.Errorf("unknown algorithm %q", cfg.Algorithm)
	}
	defaults := DefaultConfig(cfg.Env)
	if cfg.Size <= 0 {
		cfg.Size = defaults.Size
	}
	if cfg.MazeDepth < 0 {
		cfg.MazeDepth = 0
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaults.MaxSteps
	}
	if cfg.StepDelayMs < 0 {
		cfg.StepDelayMs = 0
	}
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = defaults.Alpha
	}
	if cfg.Gamma <= 0 || cfg.Gamma > 1 {
		cfg.Gamma = defaults.Gamma
	}
	if cfg.Epsilon < 0 || cfg.Epsilon > 1 {
		cfg.Epsilon = defaults.Epsilon
	}
	if cfg.EpsilonMin < 0 || cfg.EpsilonMin > cfg.Epsilon {
		cfg.EpsilonMin = 0
	}
	if cfg.EpsilonDecay < 0 || cfg.EpsilonDecay > 1 {
		cfg.EpsilonDecay = 0
	}
	if cfg.RequiredSuccesses < 0 {
		cfg.RequiredSuccesses = 0
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	rng := rand.New(rand.NewSource(seed))
	var env gridEnv
	switch cfg.Env {
	case EnvMaze:
		maze := NewMazeEnv(cfg.Size, cfg.Size, cfg.MazeDepth, rng)
		maze.SetMaxSteps(cfg.MaxSteps)
		env = maze
	default:
		env = NewLavaEnv(cfg.Size, rng)
	}

	t := &Trainer{
		cfg:      cfg,
		log:      logger,
		out:      out,
		env:      env,
		layout:   strings.Split(strings.TrimSuffix(env.String(), "\n"), "\n"),
		deadEnds: make(map[Position]bool),
	}
	agentCfg := td.Config{
		Alpha:            cfg.Alpha,
		Gamma:            cfg.Gamma,
		Epsilon:          cfg.Epsilon,
		EpsilonMin:       cfg.EpsilonMin,
		ForceExplore:     cfg.ForceExplore,
		ExplorationBonus: cfg.ExplorationBonus,
		ReplayCapacity:   cfg.ReplayCapacity,
		ReplayBatch:      cfg.ReplayBatch,
	}
	opts := []td.Option[Position, Move]{
		td.WithRand[Position, Move](rand.New(rand.NewSource(seed + 1))),
		td.WithLogger[Position, Move](logger),
	}
	if _, ok := env.(deadEndDetector); ok && cfg.DeadEnds {
		opts = append(opts, td.WithActionFilter(func(s Position, a Move) bool {
			return t.deadEnds[s.Add(a)]
		}))
	}
	agent, err := td.NewAgent[Position, Move](agentCfg, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "configure agent")
	}
	t.agent = agent
	t.position = env.Reset()
	return t, nil
}

func (t *Trainer) Config() Config                   { return t.cfg }
func (t *Trainer) Agent() *td.Agent[Position, Move] { return t.agent }
func (t *Trainer) Layout() []string                 { return append([]string(nil), t.layout...) }

// Err reports the failure behind a StatusFailed snapshot.
func (t *Trainer) Err() error { return t.err }

// Episodes returns the statistics of every finished episode.
func (t *Trainer) Episodes() []EpisodeStat {
	return append([]EpisodeStat(nil), t.episodes...)
}

func (t *Trainer) Summary() Summary {
	s := Summary{Episodes: len(t.episodes), Successes: t.successCount}
	if len(t.episodes) == 0 {
		return s
	}
	rewards := make([]float64, len(t.episodes))
	steps := make([]float64, len(t.episodes))
	for i, e := range t.episodes {
		rewards[i] = e.Reward
		steps[i] = float64(e.Steps)
	}
	s.MeanReward, s.StdReward = stat.MeanStdDev(rewards, nil)
	s.MeanSteps = stat.Mean(steps, nil)
	return s
}

// Run trains in a goroutine and streams progress. The channel closes after a
// done, cancelled or failed snapshot.
func (t *Trainer) Run(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		if t.cfg.Episodes <= 0 {
			return
		}
		last := 0
		for episode := 1; episode <= t.cfg.Episodes; episode++ {
			select {
			case <-ctx.Done():
				out <- t.snapshot(StatusCancelled, episode, 0, 0, 0)
				return
			default:
			}
			if t.cfg.EpsilonDecay > 0 {
				t.agent.SetEpsilon(clampFloat(t.cfg.Epsilon, 0, 1))
			}
			ok, err := t.runEpisode(ctx, episode, out)
			if err != nil {
				t.err = err
				t.log.Error("training failed", "episode", episode, "err", err)
				out <- t.snapshot(StatusFailed, episode, 0, 0, 0)
				return
			}
			if !ok {
				return
			}
			last = episode
			if t.cfg.EpsilonDecay > 0 {
				t.cfg.Epsilon = maxFloat(t.cfg.EpsilonMin, t.cfg.Epsilon*t.cfg.EpsilonDecay)
			}
			if t.cfg.RequiredSuccesses > 0 && t.successCount >= t.cfg.RequiredSuccesses {
				t.log.Info("required successes reached", "episode", episode, "successes", t.successCount)
				break
			}
		}
		out <- t.snapshot(StatusDone, last, 0, 0, 0)
	}()
	return out
}

// runEpisode returns false when the episode was cancelled.
func (t *Trainer) runEpisode(ctx context.Context, episode int, out chan<- Snapshot) (bool, error) {
	state := t.env.Reset()
	t.position = state
	action, err := t.agent.SelectAction(state, t.env.ValidActions(state))
	if err != nil {
		return false, err
	}
	epsilon := t.agent.Epsilon()
	visits := make(map[Position]int, t.env.Rows()*t.env.Cols())
	visits[state]++
	steps := 0
	episodeReward := 0.0
	var lastReward float64
	goalReached := false
	for {
		select {
		case <-ctx.Done():
			out <- t.snapshot(StatusCancelled, episode, steps, episodeReward, lastReward)
			return false, nil
		default:
		}
		next, reward, done := t.env.Step(state, action)
		steps++
		t.step++
		if steps >= t.cfg.MaxSteps {
			done = true
		}
		goal := next == t.env.Goal()
		t.recordDeadEnd(next)

		transition := td.Transition[Position, Move]{State: state, Action: action, Reward: reward, Next: next}
		if !goal {
			transition.NextActions = t.env.ValidActions(next)
		}
		var nextAction Move
		switch {
		case done:
			t.agent.Update(transition)
		case t.cfg.Algorithm == AlgorithmSARSA:
			if nextAction, err = t.agent.SelectAction(next, transition.NextActions); err != nil {
				return false, err
			}
			t.agent.UpdateOnPolicy(transition, nextAction)
		default:
			t.agent.Update(transition)
			if nextAction, err = t.agent.SelectAction(next, transition.NextActions); err != nil {
				return false, err
			}
		}
		if goal {
			goalReached = true
		}
		episodeReward += reward
		lastReward = reward
		t.position = next
		visits[next]++
		out <- t.snapshot(StatusRunning, episode, steps, episodeReward, reward)
		if t.cfg.StepDelayMs > 0 {
			select {
			case <-ctx.Done():
				out <- t.snapshot(StatusCancelled, episode, steps, episodeReward, reward)
				return false, nil
			case <-time.After(time.Duration(t.cfg.StepDelayMs) * time.Millisecond):
			}
		}
		if done {
			break
		}
		state, action = next, nextAction
	}
	if goalReached {
		t.successCount++
	}
	t.totalReward += episodeReward
	t.totalSteps += steps
	t.episodesCompleted++
	t.episodes = append(t.episodes, EpisodeStat{
		Episode: episode,
		Steps:   steps,
		Reward:  episodeReward,
		Success: goalReached,
		Epsilon: epsilon,
	})
	t.log.Debug("episode complete", "episode", episode, "steps", steps, "reward", episodeReward, "success", goalReached)
	if t.cfg.DumpVisits {
		t.printVisitHeatmap(episode, visits)
	}
	out <- t.snapshot(StatusEpisodeComplete, episode, steps, episodeReward, lastReward)
	return true, nil
}

func (t *Trainer) recordDeadEnd(p Position) {
	if !t.cfg.DeadEnds {
		return
	}
	if d, ok := t.env.(deadEndDetector); ok && d.IsDeadEnd(p) {
		t.deadEnds[p] = true
	}
}

// DeadEnds lists the dead ends found so far.
func (t *Trainer) DeadEnds() []Position {
	out := make([]Position, 0, len(t.deadEnds))
	for r := 0; r < t.env.Rows(); r++ {
		for c := 0; c < t.env.Cols(); c++ {
			if p := (Position{Row: r, Col: c}); t.deadEnds[p] {
				out = append(out, p)
			}
		}
	}
	return out
}

// GreedyPath follows the learned policy from the start without exploring and
// stops at the goal, on a revisit or after limit moves.
func (t *Trainer) GreedyPath(limit int) []Position {
	state := t.env.Reset()
	path := []Position{state}
	seen := map[Position]bool{state: true}
	for i := 0; i < limit && state != t.env.Goal(); i++ {
		action, err := t.agent.Greedy(state, t.env.ValidActions(state))
		if err != nil {
			break
		}
		next, _, _ := t.env.Step(state, action)
		if seen[next] {
			break
		}
		seen[next] = true
		path = append(path, next)
		state = next
	}
	return path
}

func (t *Trainer) printVisitHeatmap(episode int, visits map[Position]int) {
	fmt.Fprintf(t.out, "visit heatmap (episode %d)\n", episode)
	for r := 0; r < t.env.Rows(); r++ {
		for c := 0; c < t.env.Cols(); c++ {
			count := visits[Position{Row: r, Col: c}]
			if count == 0 {
				fmt.Fprint(t.out, "  . ")
			} else {
				fmt.Fprintf(t.out, "%3d ", count)
			}
		}
		fmt.Fprintln(t.out)
	}
}

// stateValues is the best known value of every cell over the full action set.
func (t *Trainer) stateValues() [][]float64 {
	table := t.agent.Table()
	actions := t.env.Actions()
	values := make([][]float64, t.env.Rows())
	for r := range values {
		values[r] = make([]float64, t.env.Cols())
		for c := range values[r] {
			values[r][c] = table.MaxValue(Position{Row: r, Col: c}, actions)
		}
	}
	return values
}

func (t *Trainer) snapshot(status string, episode, episodeSteps int, episodeReward, reward float64) Snapshot {
	cfg := t.cfg
	cfg.Logger, cfg.Output = nil, nil
	return Snapshot{
		Step:              t.step,
		Episode:           episode,
		EpisodeSteps:      episodeSteps,
		EpisodeReward:     episodeReward,
		Reward:            reward,
		Position:          t.position,
		Goal:              t.env.Goal(),
		ValueMap:          t.stateValues(),
		Layout:            t.Layout(),
		Epsilon:           t.agent.Epsilon(),
		SuccessCount:      t.successCount,
		EpisodesCompleted: t.episodesCompleted,
		TotalReward:       t.totalReward,
		TotalSteps:        t.totalSteps,
		Config:            cfg,
		Status:            status,
	}
}
