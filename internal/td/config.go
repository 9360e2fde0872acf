package td

import (
	"fmt"
	"math"
)

// Config holds the learning hyperparameters of an Agent. Zero values disable the
// optional behaviours (decay, forced exploration, exploration bonus, replay,
// symmetry propagation).
type Config struct {
	Alpha   float64 `yaml:"alpha" json:"alpha"`
	Gamma   float64 `yaml:"gamma" json:"gamma"`
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`

	// Epsilon follows max(EpsilonMin, Epsilon * EpsilonDecay^(steps/DecaySteps))
	// when both EpsilonDecay and DecaySteps are positive.
	EpsilonMin   float64 `yaml:"epsilon_min" json:"epsilonMin"`
	EpsilonDecay float64 `yaml:"epsilon_decay" json:"epsilonDecay"`
	DecaySteps   int     `yaml:"decay_steps" json:"decaySteps"`

	ForceExplore     float64 `yaml:"force_explore" json:"forceExplore"`
	TrackVisited     bool    `yaml:"track_visited" json:"trackVisited"`
	ExplorationBonus float64 `yaml:"exploration_bonus" json:"explorationBonus"`

	ReplayCapacity int `yaml:"replay_capacity" json:"replayCapacity"`
	ReplayBatch    int `yaml:"replay_batch" json:"replayBatch"`

	Symmetry bool `yaml:"symmetry" json:"symmetry"`
}

// DefaultConfig matches the hyperparameters of the tic-tac-toe demo.
func DefaultConfig() Config {
	return Config{
		Alpha:   0.1,
		Gamma:   0.9,
		Epsilon: 0.1,
	}
}

func (c Config) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"alpha", c.Alpha},
		{"gamma", c.Gamma},
		{"epsilon", c.Epsilon},
		{"epsilon_min", c.EpsilonMin},
		{"epsilon_decay", c.EpsilonDecay},
		{"force_explore", c.ForceExplore},
		{"exploration_bonus", c.ExplorationBonus},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s must be a finite number (got %v)", f.name, f.value)
		}
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha must be in (0, 1] (got %.3f)", c.Alpha)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("gamma must be between 0 and 1 (got %.3f)", c.Gamma)
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("epsilon must be between 0 and 1 (got %.3f)", c.Epsilon)
	}
	if c.EpsilonMin < 0 || c.EpsilonMin > 1 {
		return fmt.Errorf("epsilon_min must be between 0 and 1 (got %.3f)", c.EpsilonMin)
	}
	if c.EpsilonDecay < 0 {
		return fmt.Errorf("epsilon_decay must not be negative (got %.3f)", c.EpsilonDecay)
	}
	if c.DecaySteps < 0 {
		return fmt.Errorf("decay_steps must not be negative (got %d)", c.DecaySteps)
	}
	if c.ForceExplore < 0 || c.ForceExplore > 1 {
		return fmt.Errorf("force_explore must be between 0 and 1 (got %.3f)", c.ForceExplore)
	}
	if c.ReplayCapacity < 0 || c.ReplayBatch < 0 {
		return fmt.Errorf("replay capacity and batch must not be negative (got %d, %d)", c.ReplayCapacity, c.ReplayBatch)
	}
	if c.ReplayCapacity > 0 && c.ReplayBatch == 0 {
		return fmt.Errorf("replay_batch must be positive when replay is enabled")
	}
	if c.ReplayBatch > c.ReplayCapacity {
		return fmt.Errorf("replay_batch %d exceeds replay_capacity %d", c.ReplayBatch, c.ReplayCapacity)
	}
	return nil
}

func (c Config) tracksVisited() bool {
	return c.TrackVisited || c.ForceExplore > 0 || c.ExplorationBonus != 0
}
