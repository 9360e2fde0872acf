package main

import (
	"fmt"
	"os"

	"tiny-td-go/internal/engine"
	"tiny-td-go/internal/store"
	"tiny-td-go/internal/td"
	"tiny-td-go/internal/tictactoe"
)

// runExport converts a saved JSON model into a parquet value table.
func runExport(args []string) error {
	fs, common := newFlagSet("export")
	kind := fs.String("kind", "tictactoe", "model kind (tictactoe or grid)")
	model := fs.String("model", "", "JSON model file to read")
	out := fs.String("out", "", "parquet file to write")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *model == "" || *out == "" {
		return fmt.Errorf("export requires -model and -out")
	}
	cfg, _, err := loadConfig(fs, common)
	if err != nil {
		return err
	}
	logger, runID, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	var rows []store.ValueRow
	switch *kind {
	case "tictactoe":
		agent, err := tictactoe.NewAgent(td.DefaultConfig(), nil, logger)
		if err != nil {
			return err
		}
		if err := agent.LoadFile(*model, tictactoe.Codec{}); err != nil {
			return err
		}
		rows = store.ValueRows(agent.Table(), tictactoe.Codec{}, runID, *model)
	case "grid":
		agent, err := td.NewAgent[engine.Position, engine.Move](td.DefaultConfig())
		if err != nil {
			return err
		}
		if err := agent.LoadFile(*model, engine.Codec{}); err != nil {
			return err
		}
		rows = store.ValueRows(agent.Table(), engine.Codec{}, runID, *model)
	default:
		return fmt.Errorf("unknown model kind %q", *kind)
	}

	if err := store.WriteValues(*out, runID, rows); err != nil {
		return err
	}
	logger.Info("value table exported", "model", *model, "out", *out, "rows", len(rows))
	return nil
}
