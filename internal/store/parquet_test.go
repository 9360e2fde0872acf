package store

import (
	"os"
	"path/filepath"
	"testing"

	"tiny-td-go/internal/engine"
	"tiny-td-go/internal/td"
	"tiny-td-go/internal/tictactoe"
)

func TestValueRowsSorted(t *testing.T) {
	table := td.NewValueTable[engine.Position, engine.Move]()
	table.Set(engine.Position{Row: 1, Col: 0}, engine.Down, 2)
	table.Set(engine.Position{Row: 0, Col: 0}, engine.Right, 1)
	table.Set(engine.Position{Row: 0, Col: 0}, engine.Down, 0.5)

	rows := ValueRows(table, engine.Codec{}, "run", "maze")
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	want := []struct{ state, action string }{{"0,0", "0,1"}, {"0,0", "1,0"}, {"1,0", "1,0"}}
	for i, w := range want {
		if rows[i].State != w.state || rows[i].Action != w.action {
			t.Fatalf("expected row %d to be %s/%s, got %s/%s", i, w.state, w.action, rows[i].State, rows[i].Action)
		}
	}
	if rows[0].Value != 1 || rows[0].Model != "maze" {
		t.Fatalf("expected value 1 for model maze, got %+v", rows[0])
	}
}

func TestValuesRoundTrip(t *testing.T) {
	table := td.NewValueTable[tictactoe.Board, tictactoe.Cell]()
	var b tictactoe.Board
	table.Set(b, tictactoe.Cell{Row: 1, Col: 1}, 0.75)
	b[1][1] = tictactoe.X
	table.Set(b, tictactoe.Cell{Row: 0, Col: 0}, -0.25)

	rows := ValueRows(table, tictactoe.Codec{}, "run-1", "agent_x")
	path := filepath.Join(t.TempDir(), "nested", "values.parquet")
	if err := WriteValues(path, "run-1", rows); err != nil {
		t.Fatalf("WriteValues: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected the temp file to be renamed away, got %v", err)
	}

	got, err := ReadValues(path)
	if err != nil {
		t.Fatalf("ReadValues: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), len(got))
	}
	for i := range rows {
		if got[i] != rows[i] {
			t.Fatalf("expected row %d to be %+v, got %+v", i, rows[i], got[i])
		}
	}

	for key, want := range map[string]string{"schema": ValueSchema, "run_id": "run-1"} {
		value, ok, err := Metadata(path, key)
		if err != nil || !ok || value != want {
			t.Fatalf("expected metadata %s=%s, got %q (%v, %v)", key, want, value, ok, err)
		}
	}
}

func TestEpisodesRoundTrip(t *testing.T) {
	stats := []engine.EpisodeStat{
		{Episode: 1, Steps: 100, Reward: -12.5, Epsilon: 1},
		{Episode: 2, Steps: 17, Reward: 8.4, Success: true, Epsilon: 0.998},
	}
	rows := EpisodeRows(stats, "run-2", engine.EnvMaze, engine.AlgorithmQLearning)
	path := filepath.Join(t.TempDir(), "episodes.parquet")
	if err := WriteEpisodes(path, "run-2", rows); err != nil {
		t.Fatalf("WriteEpisodes: %v", err)
	}
	got, err := ReadEpisodes(path)
	if err != nil {
		t.Fatalf("ReadEpisodes: %v", err)
	}
	if len(got) != 2 || got[1] != rows[1] {
		t.Fatalf("expected %+v, got %+v", rows, got)
	}
	if !got[1].Success || got[1].Env != engine.EnvMaze {
		t.Fatalf("expected a successful maze episode, got %+v", got[1])
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := ReadValues(filepath.Join(t.TempDir(), "absent.parquet")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
