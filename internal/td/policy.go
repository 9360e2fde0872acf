package td

import "math"

// Schedule is the exploration rate of the epsilon-greedy policy.
type Schedule struct {
	initial float64
	min     float64
	decay   float64
	every   int
	current float64
}

func newSchedule(cfg Config) *Schedule {
	return &Schedule{
		initial: cfg.Epsilon,
		min:     cfg.EpsilonMin,
		decay:   cfg.EpsilonDecay,
		every:   cfg.DecaySteps,
		current: cfg.Epsilon,
	}
}

func (s *Schedule) decays() bool {
	return s.decay > 0 && s.every > 0
}

// At returns epsilon after the given number of training steps.
func (s *Schedule) At(steps int) float64 {
	if !s.decays() {
		return s.current
	}
	eps := s.initial * math.Pow(s.decay, float64(steps/s.every))
	return math.Max(s.min, eps)
}

// Set overrides the rate of a schedule without step decay.
func (s *Schedule) Set(eps float64) {
	s.current = eps
}
