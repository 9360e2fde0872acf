// Package config loads run configuration for the tinytd command from YAML.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"tiny-td-go/internal/engine"
	"tiny-td-go/internal/td"
)

type Config struct {
	Seed      int64           `yaml:"seed"`
	Log       LogConfig       `yaml:"log"`
	Grid      GridConfig      `yaml:"grid"`
	Race      RaceConfig      `yaml:"race"`
	TicTacToe TicTacToeConfig `yaml:"tictactoe"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type GridConfig struct {
	Env               string  `yaml:"env"`
	Algorithm         string  `yaml:"algorithm"`
	Episodes          int     `yaml:"episodes"`
	Size              int     `yaml:"size"`
	MazeDepth         int     `yaml:"maze_depth"`
	MaxSteps          int     `yaml:"max_steps"`
	Alpha             float64 `yaml:"alpha"`
	Gamma             float64 `yaml:"gamma"`
	Epsilon           float64 `yaml:"epsilon"`
	EpsilonMin        float64 `yaml:"epsilon_min"`
	EpsilonDecay      float64 `yaml:"epsilon_decay"`
	ForceExplore      float64 `yaml:"force_explore"`
	ExplorationBonus  float64 `yaml:"exploration_bonus"`
	ReplayCapacity    int     `yaml:"replay_capacity"`
	ReplayBatch       int     `yaml:"replay_batch"`
	RequiredSuccesses int     `yaml:"required_successes"`
	DeadEnds          bool    `yaml:"dead_ends"`
	DumpVisits        bool    `yaml:"dump_visits"`
	Model             string  `yaml:"model"`
	EpisodesOut       string  `yaml:"episodes_out"`
}

type RaceConfig struct {
	Rounds   int       `yaml:"rounds"`
	MaxSteps int       `yaml:"max_steps"`
	LogEvery int       `yaml:"log_every"`
	Agent    td.Config `yaml:"agent"`
}

type TicTacToeConfig struct {
	Episodes int       `yaml:"episodes"`
	LogEvery int       `yaml:"log_every"`
	Opponent string    `yaml:"opponent"`
	Format   string    `yaml:"format"`
	ModelX   string    `yaml:"model_x"`
	ModelO   string    `yaml:"model_o"`
	Agent    td.Config `yaml:"agent"`
}

const (
	OpponentSelf   = "self"
	OpponentRandom = "random"

	FormatWrapped = "wrapped"
	FormatBare    = "bare"
)

// Default returns the demo hyperparameters.
func Default() Config {
	grid := engine.DefaultConfig(engine.EnvLava)
	ttt := td.DefaultConfig()
	ttt.Symmetry = true
	return Config{
		Seed: 1,
		Log:  LogConfig{Level: "info", Format: "text"},
		Grid: GridConfig{
			Env:          grid.Env,
			Algorithm:    grid.Algorithm,
			Episodes:     grid.Episodes,
			Size:         grid.Size,
			MaxSteps:     grid.MaxSteps,
			Alpha:        grid.Alpha,
			Gamma:        grid.Gamma,
			Epsilon:      grid.Epsilon,
			EpsilonMin:   grid.EpsilonMin,
			EpsilonDecay: grid.EpsilonDecay,
		},
		Race: RaceConfig{
			Rounds:   5000,
			MaxSteps: engine.DefaultRaceSteps,
			LogEvery: 500,
			Agent:    td.Config{Alpha: 0.1, Gamma: 0.95, Epsilon: 0.1},
		},
		TicTacToe: TicTacToeConfig{
			Episodes: 50000,
			LogEvery: 5000,
			Opponent: OpponentSelf,
			Format:   FormatWrapped,
			ModelX:   "agent_x.json",
			ModelO:   "agent_o.json",
			Agent:    ttt,
		},
	}
}

// Load overlays the YAML file at path on Default. A grid section naming the
// maze starts from the maze hyperparameters instead of the lava ones. An empty
// path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	var probe struct {
		Grid struct {
			Env string `yaml:"env"`
		} `yaml:"grid"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return cfg, errors.Wrapf(err, "parse %s", path)
	}
	if probe.Grid.Env == engine.EnvMaze {
		cfg.Grid.UseMazeDefaults()
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}
	switch c.Grid.Env {
	case engine.EnvLava, engine.EnvMaze:
	default:
		return fmt.Errorf("grid.env must be %s or %s (got %q)", engine.EnvLava, engine.EnvMaze, c.Grid.Env)
	}
	switch c.Grid.Algorithm {
	case engine.AlgorithmQLearning, engine.AlgorithmSARSA:
	default:
		return fmt.Errorf("grid.algorithm must be %s or %s (got %q)", engine.AlgorithmQLearning, engine.AlgorithmSARSA, c.Grid.Algorithm)
	}
	if c.Grid.Episodes <= 0 {
		return fmt.Errorf("grid.episodes must be positive (got %d)", c.Grid.Episodes)
	}
	for name, v := range map[string]float64{
		"alpha":             c.Grid.Alpha,
		"gamma":             c.Grid.Gamma,
		"epsilon":           c.Grid.Epsilon,
		"epsilon_min":       c.Grid.EpsilonMin,
		"epsilon_decay":     c.Grid.EpsilonDecay,
		"force_explore":     c.Grid.ForceExplore,
		"exploration_bonus": c.Grid.ExplorationBonus,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("grid.%s must be a finite number (got %v)", name, v)
		}
	}
	if c.Grid.Epsilon < 0 || c.Grid.Epsilon > 1 {
		return fmt.Errorf("grid.epsilon must be between 0 and 1 (got %.2f)", c.Grid.Epsilon)
	}
	if c.Grid.Alpha <= 0 || c.Grid.Alpha > 1 {
		return fmt.Errorf("grid.alpha must be in (0, 1] (got %.2f)", c.Grid.Alpha)
	}
	if c.Race.Rounds <= 0 {
		return fmt.Errorf("race.rounds must be positive (got %d)", c.Race.Rounds)
	}
	if err := c.Race.Agent.Validate(); err != nil {
		return errors.Wrap(err, "race.agent")
	}
	if c.TicTacToe.Episodes <= 0 {
		return fmt.Errorf("tictactoe.episodes must be positive (got %d)", c.TicTacToe.Episodes)
	}
	switch c.TicTacToe.Opponent {
	case OpponentSelf, OpponentRandom:
	default:
		return fmt.Errorf("tictactoe.opponent must be %s or %s (got %q)", OpponentSelf, OpponentRandom, c.TicTacToe.Opponent)
	}
	if _, err := c.TicTacToe.ModelFormat(); err != nil {
		return err
	}
	if err := c.TicTacToe.Agent.Validate(); err != nil {
		return errors.Wrap(err, "tictactoe.agent")
	}
	return nil
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: %v", l.Level, err)
	}
	return level, nil
}

func (t TicTacToeConfig) ModelFormat() (td.Format, error) {
	switch t.Format {
	case FormatWrapped, "":
		return td.FormatWrapped, nil
	case FormatBare:
		return td.FormatBare, nil
	}
	return td.FormatWrapped, fmt.Errorf("tictactoe.format must be %s or %s (got %q)", FormatWrapped, FormatBare, t.Format)
}

// Engine converts the grid section into a trainer configuration.
func (c Config) Engine() engine.Config {
	g := c.Grid
	return engine.Config{
		Env:               g.Env,
		Algorithm:         g.Algorithm,
		Episodes:          g.Episodes,
		Seed:              c.Seed,
		Size:              g.Size,
		MazeDepth:         g.MazeDepth,
		MaxSteps:          g.MaxSteps,
		Alpha:             g.Alpha,
		Gamma:             g.Gamma,
		Epsilon:           g.Epsilon,
		EpsilonMin:        g.EpsilonMin,
		EpsilonDecay:      g.EpsilonDecay,
		ForceExplore:      g.ForceExplore,
		ExplorationBonus:  g.ExplorationBonus,
		ReplayCapacity:    g.ReplayCapacity,
		ReplayBatch:       g.ReplayBatch,
		RequiredSuccesses: g.RequiredSuccesses,
		DeadEnds:          g.DeadEnds,
		DumpVisits:        g.DumpVisits,
	}
}

func (c Config) RaceEngine() engine.RaceConfig {
	return engine.RaceConfig{
		Rounds:   c.Race.Rounds,
		MaxSteps: c.Race.MaxSteps,
		Seed:     c.Seed,
		LogEvery: c.Race.LogEvery,
		Agent:    c.Race.Agent,
	}
}

// UseMazeDefaults swaps the grid section to the maze demo's hyperparameters,
// keeping artifact paths.
func (g *GridConfig) UseMazeDefaults() {
	m := engine.DefaultConfig(engine.EnvMaze)
	model, out := g.Model, g.EpisodesOut
	*g = GridConfig{
		Env:               m.Env,
		Algorithm:         m.Algorithm,
		Episodes:          m.Episodes,
		Size:              m.Size,
		MaxSteps:          m.MaxSteps,
		Alpha:             m.Alpha,
		Gamma:             m.Gamma,
		Epsilon:           m.Epsilon,
		EpsilonMin:        m.EpsilonMin,
		EpsilonDecay:      m.EpsilonDecay,
		RequiredSuccesses: m.RequiredSuccesses,
		DeadEnds:          m.DeadEnds,
		Model:             model,
		EpisodesOut:       out,
	}
}
