package main

import (
	"context"
	"fmt"
	"os"

	"tiny-td-go/internal/engine"
	"tiny-td-go/internal/store"
	"tiny-td-go/internal/td"
)

func runTrain(ctx context.Context, args []string) error {
	fs, common := newFlagSet("train")
	envName := fs.String("env", engine.EnvLava, "environment to train in (lava or maze)")
	algorithm := fs.String("algorithm", engine.AlgorithmQLearning, "update rule (q-learning or sarsa)")
	episodes := fs.Int("episodes", 0, "number of training episodes")
	epsilon := fs.Float64("epsilon", 0, "exploration rate (0-1)")
	alpha := fs.Float64("alpha", 0, "learning rate (0-1)")
	gamma := fs.Float64("gamma", 0, "discount factor (0-1)")
	size := fs.Int("size", 0, "grid size")
	maxSteps := fs.Int("max-steps", 0, "step cap per episode")
	required := fs.Int("required-successes", 0, "stop after this many successful episodes (0 to run all)")
	deadEnds := fs.Bool("dead-ends", false, "avoid moves into known dead ends (maze)")
	dumpVisits := fs.Bool("dump-visits", false, "print a visit heatmap after every episode")
	model := fs.String("model", "", "write the trained value table to this JSON file")
	episodesOut := fs.String("episodes-out", "", "write per-episode statistics to this parquet file")
	report := fs.Int("report-every", 500, "print progress every N episodes")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, set, err := loadConfig(fs, common)
	if err != nil {
		return err
	}
	if set["env"] {
		if *envName == engine.EnvMaze && cfg.Grid.Env != engine.EnvMaze {
			cfg.Grid.UseMazeDefaults()
		}
		cfg.Grid.Env = *envName
	}
	g := &cfg.Grid
	if set["algorithm"] {
		g.Algorithm = *algorithm
	}
	if set["episodes"] {
		g.Episodes = *episodes
	}
	if set["epsilon"] {
		g.Epsilon = *epsilon
	}
	if set["alpha"] {
		g.Alpha = *alpha
	}
	if set["gamma"] {
		g.Gamma = *gamma
	}
	if set["size"] {
		g.Size = *size
	}
	if set["max-steps"] {
		g.MaxSteps = *maxSteps
	}
	if set["required-successes"] {
		g.RequiredSuccesses = *required
	}
	if set["dead-ends"] {
		g.DeadEnds = *deadEnds
	}
	if set["dump-visits"] {
		g.DumpVisits = *dumpVisits
	}
	if set["model"] {
		g.Model = *model
	}
	if set["episodes-out"] {
		g.EpisodesOut = *episodesOut
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, runID, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Printf("train config => env=%s algorithm=%s episodes=%d seed=%d epsilon=%.2f alpha=%.2f gamma=%.2f\n",
		g.Env, g.Algorithm, g.Episodes, cfg.Seed, g.Epsilon, g.Alpha, g.Gamma)

	engineCfg := cfg.Engine()
	engineCfg.Logger = logger
	engineCfg.Output = os.Stdout
	trainer, err := engine.NewTrainer(engineCfg)
	if err != nil {
		return err
	}
	fmt.Println()
	for _, line := range trainer.Layout() {
		fmt.Println(line)
	}
	fmt.Println()

	var final engine.Snapshot
	for snapshot := range trainer.Run(ctx) {
		final = snapshot
		if snapshot.Status != engine.StatusEpisodeComplete || *report <= 0 || snapshot.Episode%*report != 0 {
			continue
		}
		outcome := "Failed"
		if snapshot.Position == snapshot.Goal {
			outcome = "Success"
		}
		fmt.Printf("Episode %4d | Reward: %7.1f | Steps: %3d | %s | epsilon=%.3f\n",
			snapshot.Episode, snapshot.EpisodeReward, snapshot.EpisodeSteps, outcome, snapshot.Epsilon)
	}
	switch final.Status {
	case engine.StatusFailed:
		return trainer.Err()
	case engine.StatusCancelled:
		logger.Warn("training cancelled", "episodes", final.EpisodesCompleted)
	}

	summary := trainer.Summary()
	successRate := 0.0
	if summary.Episodes > 0 {
		successRate = float64(summary.Successes) / float64(summary.Episodes)
	}
	fmt.Printf("summary: episodes=%d successes=%d avg_reward=%.2f std_reward=%.2f avg_steps=%.2f success_rate=%.2f\n",
		summary.Episodes, summary.Successes, summary.MeanReward, summary.StdReward, summary.MeanSteps, successRate)
	if dead := trainer.DeadEnds(); len(dead) > 0 {
		fmt.Printf("dead ends: %v\n", dead)
	}
	fmt.Printf("greedy path: %v\n", trainer.GreedyPath(engineCfg.MaxSteps))

	if g.Model != "" {
		if err := trainer.Agent().SaveFile(g.Model, engine.Codec{}, td.FormatWrapped); err != nil {
			return err
		}
		logger.Info("model saved", "path", g.Model, "pairs", trainer.Agent().Table().Len())
	}
	if g.EpisodesOut != "" {
		rows := store.EpisodeRows(trainer.Episodes(), runID, g.Env, g.Algorithm)
		if err := store.WriteEpisodes(g.EpisodesOut, runID, rows); err != nil {
			return err
		}
		logger.Info("episode stats written", "path", g.EpisodesOut, "rows", len(rows))
	}
	return nil
}
