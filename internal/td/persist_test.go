package td

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
)

func trainedAgent(t *testing.T) *Agent[int, int] {
	t.Helper()
	agent := newTestAgent(t, Config{Alpha: 0.3, Gamma: 0.9, Epsilon: 0.2, TrackVisited: true})
	for s := 0; s < 5; s++ {
		a, err := agent.SelectAction(s, []int{0, 1, 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		agent.Update(Transition[int, int]{State: s, Action: a, Reward: float64(s), Next: s + 1, NextActions: []int{0, 1, 2}})
	}
	return agent
}

func TestSaveLoadWrappedRoundTrip(t *testing.T) {
	agent := trainedAgent(t)
	var buf bytes.Buffer
	if err := agent.Save(&buf, intCodec{}, FormatWrapped); err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}

	restored := newTestAgent(t, Config{Alpha: 0.3, Gamma: 0.9, TrackVisited: true})
	if err := restored.Load(&buf, intCodec{}); err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if !restored.Table().Equal(agent.Table()) {
		t.Fatalf("expected restored table to equal the saved one")
	}
	if restored.Steps() != agent.Steps() {
		t.Fatalf("expected %d steps, got %d", agent.Steps(), restored.Steps())
	}
	if restored.VisitedCount() != agent.VisitedCount() {
		t.Fatalf("expected %d visited pairs, got %d", agent.VisitedCount(), restored.VisitedCount())
	}
}

func TestSaveLoadBareRoundTrip(t *testing.T) {
	agent := trainedAgent(t)
	var buf bytes.Buffer
	if err := agent.Save(&buf, intCodec{}, FormatBare); err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}
	if strings.Contains(buf.String(), keyTable) {
		t.Fatalf("expected bare model without wrapper keys, got %s", buf.String())
	}

	restored := newTestAgent(t, Config{Alpha: 0.3, Gamma: 0.9, TrackVisited: true})
	restored.Update(Transition[int, int]{State: 42, Action: 1})
	if err := restored.Load(&buf, intCodec{}); err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if !restored.Table().Equal(agent.Table()) {
		t.Fatalf("expected restored table to equal the saved one")
	}
	if restored.Steps() != 0 {
		t.Fatalf("expected bare model to reset the counter, got %d", restored.Steps())
	}
	if restored.VisitedCount() != 0 {
		t.Fatalf("expected empty visited set, got %d", restored.VisitedCount())
	}
}

func TestLoadLegacyBareModel(t *testing.T) {
	legacy := `{"0": {"1": 0.5, "2": -1}, "3": {}}`
	agent := newTestAgent(t, DefaultConfig())
	if err := agent.Load(strings.NewReader(legacy), intCodec{}); err != nil {
		t.Fatalf("expected legacy model to load, got %v", err)
	}
	if got := agent.Table().Get(0, 2); got != -1 {
		t.Fatalf("expected Q(0,2)=-1, got %v", got)
	}
	if agent.Table().States() != 2 {
		t.Fatalf("expected 2 states including the empty row, got %d", agent.Table().States())
	}
}

func TestLoadWrappedDefaultsMissingMetadata(t *testing.T) {
	agent := newTestAgent(t, DefaultConfig())
	if err := agent.Load(strings.NewReader(`{"q_table": {"1": {"1": 2}}}`), intCodec{}); err != nil {
		t.Fatalf("expected wrapped model to load, got %v", err)
	}
	if agent.Steps() != 0 || agent.VisitedCount() != 0 {
		t.Fatalf("expected zero counter and empty visited set, got %d and %d", agent.Steps(), agent.VisitedCount())
	}
}

func TestLoadEmptiesReplayMemory(t *testing.T) {
	agent := newTestAgent(t, Config{Alpha: 0.5, Gamma: 0.9, ReplayCapacity: 4, ReplayBatch: 2})
	for i := 0; i < 4; i++ {
		agent.Update(Transition[int, int]{State: 9, Action: 9, Reward: 5})
	}
	if err := agent.Load(strings.NewReader(`{"q_table": {}}`), intCodec{}); err != nil {
		t.Fatalf("expected empty model to load, got %v", err)
	}
	if agent.Memory().Len() != 0 || agent.Memory().Cap() != 4 {
		t.Fatalf("expected an empty memory of capacity 4, got len %d cap %d", agent.Memory().Len(), agent.Memory().Cap())
	}
	agent.Update(Transition[int, int]{State: 1, Action: 1, Reward: 1, Next: 1})
	agent.Update(Transition[int, int]{State: 1, Action: 1, Reward: 1, Next: 1})
	if got := agent.Table().Get(9, 9); got != 0 {
		t.Fatalf("expected no pre-load transition to be replayed, got Q(9,9)=%v", got)
	}
	if agent.Table().States() != 1 {
		t.Fatalf("expected only state 1 in the table, got %d states", agent.Table().States())
	}
}

func TestLoadMalformedModels(t *testing.T) {
	cases := map[string]string{
		"not json":          `q_table`,
		"array":             `[1, 2]`,
		"null":              `null`,
		"wrapper no table":  `{"training_steps": 3}`,
		"wrapper bad table": `{"q_table": [1]}`,
		"wrapper null":      `{"q_table": null}`,
		"bare bad row":      `{"0": 5}`,
		"bad state key":     `{"zero": {"1": 1}}`,
		"bad visited":       `{"q_table": {}, "visited": [["0", "x"]]}`,
	}
	for name, input := range cases {
		agent := newTestAgent(t, DefaultConfig())
		agent.Table().Set(9, 9, 9)
		err := agent.Load(strings.NewReader(input), intCodec{})
		if !errors.Is(err, ErrDeserialization) {
			t.Fatalf("%s: expected ErrDeserialization, got %v", name, err)
		}
		if agent.Table().Get(9, 9) != 9 {
			t.Fatalf("%s: expected failed load to keep the existing table", name)
		}
	}
}

func TestSaveFileLoadFile(t *testing.T) {
	agent := trainedAgent(t)
	path := filepath.Join(t.TempDir(), "models", "agent.json")
	if err := agent.SaveFile(path, intCodec{}, FormatWrapped); err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}
	restored := newTestAgent(t, DefaultConfig())
	if err := restored.LoadFile(path, intCodec{}); err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if !restored.Table().Equal(agent.Table()) {
		t.Fatalf("expected restored table to equal the saved one")
	}
}

func TestLoadFileMissingSurfacesIOError(t *testing.T) {
	agent := newTestAgent(t, DefaultConfig())
	err := agent.LoadFile(filepath.Join(t.TempDir(), "missing.json"), intCodec{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
	if errors.Is(err, ErrDeserialization) {
		t.Fatalf("expected I/O error not to be reported as deserialization")
	}
}
