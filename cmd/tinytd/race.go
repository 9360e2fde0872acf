package main

import (
	"context"
	"fmt"
	"os"

	"tiny-td-go/internal/engine"
)

func runRace(ctx context.Context, args []string) error {
	fs, common := newFlagSet("race")
	rounds := fs.Int("rounds", 0, "number of race rounds")
	maxSteps := fs.Int("max-steps", 0, "step cap per round")
	logEvery := fs.Int("log-every", 0, "log progress every N rounds")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, set, err := loadConfig(fs, common)
	if err != nil {
		return err
	}
	if set["rounds"] {
		cfg.Race.Rounds = *rounds
	}
	if set["max-steps"] {
		cfg.Race.MaxSteps = *maxSteps
	}
	if set["log-every"] {
		cfg.Race.LogEvery = *logEvery
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, _, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	result, err := engine.RunRace(ctx, cfg.RaceEngine(), logger)
	if err != nil {
		return err
	}
	fmt.Println(result.Course)
	fmt.Printf("Q-learning wins: %d\n", result.QLearningWins)
	fmt.Printf("SARSA wins:      %d\n", result.SARSAWins)
	fmt.Printf("No winner:       %d\n", result.NoWinner)
	return nil
}
