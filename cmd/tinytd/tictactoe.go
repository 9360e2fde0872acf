package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"

	"tiny-td-go/internal/config"
	"tiny-td-go/internal/tictactoe"
)

func runTicTacToe(ctx context.Context, args []string) error {
	flags, common := newFlagSet("tictactoe")
	episodes := flags.Int("episodes", 0, "number of training games")
	opponent := flags.String("opponent", config.OpponentSelf, "train against a second agent (self) or a random player (random)")
	modelX := flags.String("model-x", "", "model file for the X agent")
	modelO := flags.String("model-o", "", "model file for the O agent")
	format := flags.String("format", config.FormatWrapped, "model file format (wrapped or bare)")
	resume := flags.Bool("resume", false, "continue from existing model files")
	logEvery := flags.Int("log-every", 0, "log progress every N games")

	if err := flags.Parse(args); err != nil {
		return err
	}
	cfg, set, err := loadConfig(flags, common)
	if err != nil {
		return err
	}
	t := &cfg.TicTacToe
	if set["episodes"] {
		t.Episodes = *episodes
	}
	if set["opponent"] {
		t.Opponent = *opponent
	}
	if set["model-x"] {
		t.ModelX = *modelX
	}
	if set["model-o"] {
		t.ModelO = *modelO
	}
	if set["format"] {
		t.Format = *format
	}
	if set["log-every"] {
		t.LogEvery = *logEvery
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	modelFormat, err := t.ModelFormat()
	if err != nil {
		return err
	}
	logger, _, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	x, err := loadAgent(*t, t.ModelX, cfg.Seed, *resume, logger.With("player", "X"))
	if err != nil {
		return err
	}

	fmt.Printf("tictactoe config => opponent=%s episodes=%d seed=%d epsilon=%.2f alpha=%.2f gamma=%.2f symmetry=%v\n",
		t.Opponent, t.Episodes, cfg.Seed, t.Agent.Epsilon, t.Agent.Alpha, t.Agent.Gamma, t.Agent.Symmetry)

	var result tictactoe.Result
	if t.Opponent == config.OpponentRandom {
		env := tictactoe.NewOpponentEnv(rand.New(rand.NewSource(cfg.Seed + 2)))
		result, err = tictactoe.Versus(ctx, x, env, t.Episodes)
		if err != nil {
			return err
		}
	} else {
		o, err := loadAgent(*t, t.ModelO, cfg.Seed+1, *resume, logger.With("player", "O"))
		if err != nil {
			return err
		}
		result, err = tictactoe.SelfPlay(ctx, x, o, tictactoe.SelfPlayConfig{Episodes: t.Episodes, LogEvery: t.LogEvery}, logger)
		if err != nil {
			return err
		}
		if err := o.SaveFile(t.ModelO, tictactoe.Codec{}, modelFormat); err != nil {
			return err
		}
		logger.Info("model saved", "player", "O", "path", t.ModelO, "states", o.Table().States())
	}
	if err := x.SaveFile(t.ModelX, tictactoe.Codec{}, modelFormat); err != nil {
		return err
	}
	logger.Info("model saved", "player", "X", "path", t.ModelX, "states", x.Table().States())

	fmt.Printf("games=%d x_wins=%d o_wins=%d draws=%d\n", result.Games, result.XWins, result.OWins, result.Draws)
	fmt.Printf("X knows %d positions (%d up to symmetry)\n", x.Table().States(), tictactoe.CanonicalPositions(x))
	return nil
}

// loadAgent builds an agent and, when resuming, restores it from path if the
// file exists.
func loadAgent(t config.TicTacToeConfig, path string, seed int64, resume bool, logger *slog.Logger) (*tictactoe.Agent, error) {
	agent, err := tictactoe.NewAgent(t.Agent, rand.New(rand.NewSource(seed)), logger)
	if err != nil {
		return nil, err
	}
	if !resume {
		return agent, nil
	}
	err = agent.LoadFile(path, tictactoe.Codec{})
	switch {
	case err == nil:
		logger.Info("model loaded", "path", path, "steps", agent.Steps())
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("no model to resume from", "path", path)
	default:
		return nil, err
	}
	return agent, nil
}
