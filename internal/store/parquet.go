// Package store exports trained value tables and training statistics as
// Parquet files for offline analysis.
package store

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/pkg/errors"

	"tiny-td-go/internal/engine"
	"tiny-td-go/internal/td"
)

const (
	ValueSchema   = "value_table_v1"
	EpisodeSchema = "episode_stats_v1"
)

// ValueRow is one (state, action) entry of a value table. State and Action
// use the model's JSON key encoding.
type ValueRow struct {
	RunID  string  `parquet:"run_id,dict"`
	Model  string  `parquet:"model,dict"`
	State  string  `parquet:"state,dict"`
	Action string  `parquet:"action,dict"`
	Value  float64 `parquet:"value"`
}

// EpisodeRow is the outcome of one grid training episode.
type EpisodeRow struct {
	RunID     string  `parquet:"run_id,dict"`
	Env       string  `parquet:"env,dict"`
	Algorithm string  `parquet:"algorithm,dict"`
	Episode   int32   `parquet:"episode"`
	Steps     int32   `parquet:"steps"`
	Reward    float64 `parquet:"reward"`
	Success   bool    `parquet:"success"`
	Epsilon   float64 `parquet:"epsilon"`
}

// ValueRows flattens table in state, action key order.
func ValueRows[S comparable, A comparable](table *td.ValueTable[S, A], codec td.Codec[S, A], runID, model string) []ValueRow {
	rows := make([]ValueRow, 0, table.Len())
	table.Range(func(s S, a A, v float64) bool {
		rows = append(rows, ValueRow{
			RunID:  runID,
			Model:  model,
			State:  codec.EncodeState(s),
			Action: codec.EncodeAction(a),
			Value:  v,
		})
		return true
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].State != rows[j].State {
			return rows[i].State < rows[j].State
		}
		return rows[i].Action < rows[j].Action
	})
	return rows
}

func EpisodeRows(stats []engine.EpisodeStat, runID, env, algorithm string) []EpisodeRow {
	rows := make([]EpisodeRow, len(stats))
	for i, s := range stats {
		rows[i] = EpisodeRow{
			RunID:     runID,
			Env:       env,
			Algorithm: algorithm,
			Episode:   int32(s.Episode),
			Steps:     int32(s.Steps),
			Reward:    s.Reward,
			Success:   s.Success,
			Epsilon:   s.Epsilon,
		}
	}
	return rows
}

func WriteValues(outPath, runID string, rows []ValueRow) error {
	return writeParquet(outPath, rows, ValueSchema, runID)
}

func WriteEpisodes(outPath, runID string, rows []EpisodeRow) error {
	return writeParquet(outPath, rows, EpisodeSchema, runID)
}

func writeParquet[T any](outPath string, rows []T, schema, runID string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}

	// Write to a temp file and rename atomically.
	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schema),
		parquet.KeyValueMetadata("run_id", runID),
	); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "write parquet")
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "rename parquet")
	}
	return nil
}

func ReadValues(path string) ([]ValueRow, error) {
	rows, err := parquet.ReadFile[ValueRow](path)
	return rows, errors.Wrapf(err, "read %s", path)
}

func ReadEpisodes(path string) ([]EpisodeRow, error) {
	rows, err := parquet.ReadFile[EpisodeRow](path)
	return rows, errors.Wrapf(err, "read %s", path)
}

// Metadata returns the file-level key/value metadata value for key.
func Metadata(path, key string) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", false, err
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return "", false, errors.Wrapf(err, "open %s", path)
	}
	value, ok := pf.Lookup(key)
	return value, ok, nil
}
