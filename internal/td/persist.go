package td

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Codec converts states and actions to and from the string keys of a persisted
// model.
type Codec[S comparable, A comparable] interface {
	EncodeState(S) string
	DecodeState(string) (S, error)
	EncodeAction(A) string
	DecodeAction(string) (A, error)
}

// Format selects the persisted shape of a model.
type Format int

const (
	// FormatWrapped stores the table with the training-step counter and the
	// visited set.
	FormatWrapped Format = iota
	// FormatBare stores only the table, as older models did.
	FormatBare
)

const (
	keyTable   = "q_table"
	keySteps   = "training_steps"
	keyVisited = "visited"
)

type wrappedModel struct {
	QTable        map[string]map[string]float64 `json:"q_table"`
	TrainingSteps int                           `json:"training_steps"`
	Visited       [][2]string                   `json:"visited"`
}

// Save writes the agent's model to w.
func (a *Agent[S, A]) Save(w io.Writer, codec Codec[S, A], format Format) error {
	table := make(map[string]map[string]float64, a.table.States())
	for s, row := range a.table.rows {
		encoded := make(map[string]float64, len(row))
		for act, v := range row {
			encoded[codec.EncodeAction(act)] = v
		}
		table[codec.EncodeState(s)] = encoded
	}

	var payload any = table
	if format == FormatWrapped {
		visited := make([][2]string, 0, len(a.visited))
		for p := range a.visited {
			visited = append(visited, [2]string{codec.EncodeState(p.State), codec.EncodeAction(p.Action)})
		}
		sort.Slice(visited, func(i, j int) bool {
			if visited[i][0] != visited[j][0] {
				return visited[i][0] < visited[j][0]
			}
			return visited[i][1] < visited[j][1]
		})
		payload = wrappedModel{QTable: table, TrainingSteps: a.steps, Visited: visited}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

// Load replaces the table, step counter and visited set with the model read
// from r. Both the wrapped and the bare shape are accepted; a bare model loads
// with a zero counter and an empty visited set.
func (a *Agent[S, A]) Load(r io.Reader, codec Codec[S, A]) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrapf(ErrDeserialization, "decode model: %v", err)
	}
	if raw == nil {
		return errors.Wrap(ErrDeserialization, "decode model: not a JSON object")
	}

	var model wrappedModel
	if isWrapped(raw) {
		if _, ok := raw[keyTable]; !ok {
			return errors.Wrapf(ErrDeserialization, "wrapped model has no %q", keyTable)
		}
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&model); err != nil {
			return errors.Wrapf(ErrDeserialization, "decode wrapped model: %v", err)
		}
		if model.QTable == nil {
			return errors.Wrapf(ErrDeserialization, "wrapped model %q is not an object", keyTable)
		}
	} else {
		model.QTable = make(map[string]map[string]float64, len(raw))
		for key, value := range raw {
			var row map[string]float64
			if err := json.Unmarshal(value, &row); err != nil {
				return errors.Wrapf(ErrDeserialization, "decode row %q: %v", key, err)
			}
			if row == nil {
				row = map[string]float64{}
			}
			model.QTable[key] = row
		}
	}

	table := NewValueTable[S, A]()
	for stateKey, row := range model.QTable {
		s, err := codec.DecodeState(stateKey)
		if err != nil {
			return errors.Wrapf(ErrDeserialization, "state key %q: %v", stateKey, err)
		}
		table.row(s)
		for actionKey, v := range row {
			act, err := codec.DecodeAction(actionKey)
			if err != nil {
				return errors.Wrapf(ErrDeserialization, "action key %q: %v", actionKey, err)
			}
			table.Set(s, act, v)
		}
	}

	var visited map[Pair[S, A]]struct{}
	if a.cfg.tracksVisited() || len(model.Visited) > 0 {
		visited = make(map[Pair[S, A]]struct{}, len(model.Visited))
	}
	for _, entry := range model.Visited {
		s, err := codec.DecodeState(entry[0])
		if err != nil {
			return errors.Wrapf(ErrDeserialization, "visited state %q: %v", entry[0], err)
		}
		act, err := codec.DecodeAction(entry[1])
		if err != nil {
			return errors.Wrapf(ErrDeserialization, "visited action %q: %v", entry[1], err)
		}
		visited[Pair[S, A]{State: s, Action: act}] = struct{}{}
	}
	if model.TrainingSteps < 0 {
		return errors.Wrapf(ErrDeserialization, "negative %s %d", keySteps, model.TrainingSteps)
	}

	a.table = table
	a.steps = model.TrainingSteps
	a.visited = visited
	if visited != nil {
		a.fresh = make(map[Pair[S, A]]struct{})
	} else {
		a.fresh = nil
	}
	if a.memory != nil {
		a.memory = NewReplayMemory[S, A](a.cfg.ReplayCapacity)
	}
	a.log.Debug("model loaded", "pairs", table.Len(), "states", table.States(), "steps", a.steps, "visited", len(visited))
	return nil
}

func isWrapped(raw map[string]json.RawMessage) bool {
	for _, key := range []string{keyTable, keySteps, keyVisited} {
		if _, ok := raw[key]; ok {
			return true
		}
	}
	return false
}

// SaveFile writes the model to path through a temporary file so a crash never
// leaves a truncated model behind.
func (a *Agent[S, A]) SaveFile(path string, codec Codec[S, A], format Format) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	if err := a.Save(f, codec, format); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func (a *Agent[S, A]) LoadFile(path string, codec Codec[S, A]) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return a.Load(f, codec)
}
