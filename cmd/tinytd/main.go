package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"

	"tiny-td-go/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tinytd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return errors.New("missing subcommand; try 'train', 'race', 'tictactoe', 'play' or 'export'")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	subcommand := os.Args[1]
	switch subcommand {
	case "train":
		return runTrain(ctx, os.Args[2:])
	case "race":
		return runRace(ctx, os.Args[2:])
	case "tictactoe":
		return runTicTacToe(ctx, os.Args[2:])
	case "play":
		return runPlay(os.Args[2:])
	case "export":
		return runExport(os.Args[2:])
	default:
		return fmt.Errorf("unknown subcommand %q", subcommand)
	}
}

// commonFlags are registered on every subcommand.
type commonFlags struct {
	configPath string
	seed       int64
	logLevel   string
	logFormat  string
}

func newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := &commonFlags{}
	fs.StringVar(&common.configPath, "config", "", "YAML configuration file")
	fs.Int64Var(&common.seed, "seed", 0, "deterministic seed (0 for default)")
	fs.StringVar(&common.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&common.logFormat, "log-format", "", "log format (text or json)")
	return fs, common
}

// setFlags reports which flags were given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// loadConfig reads the configuration file and applies the common flags that
// were set explicitly.
func loadConfig(fs *flag.FlagSet, common *commonFlags) (config.Config, map[string]bool, error) {
	set := setFlags(fs)
	cfg, err := config.Load(common.configPath)
	if err != nil {
		return cfg, set, err
	}
	if set["seed"] {
		cfg.Seed = common.seed
	}
	cfg.Seed = normalizeSeed(cfg.Seed)
	if set["log-level"] {
		cfg.Log.Level = common.logLevel
	}
	if set["log-format"] {
		cfg.Log.Format = common.logFormat
	}
	return cfg, set, nil
}

// newLogger builds the run logger. Every record carries the run id, which is
// also stamped on exported files.
func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, string, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, "", err
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	runID := uuid.NewString()
	return slog.New(handler).With("run", runID), runID, nil
}

func normalizeSeed(seed int64) int64 {
	if seed == 0 {
		return 1
	}
	return seed
}
