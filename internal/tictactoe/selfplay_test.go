package tictactoe

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"tiny-td-go/internal/td"
)

func TestEmptyBoardScenario(t *testing.T) {
	agent, err := NewAgent(td.DefaultConfig(), rand.New(rand.NewSource(1)), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var state Board
	valid := state.ValidMoves()
	action, err := agent.SelectAction(state, valid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Row < 0 || action.Row >= Size || action.Col < 0 || action.Col >= Size {
		t.Fatalf("expected one of the 9 cells, got %+v", action)
	}

	corner := Cell{Row: 0, Col: 0}
	before := agent.Table().Get(state, corner)
	terminal := Board{{X, X, X}, {O, O, Empty}, {Empty, Empty, Empty}}
	agent.Update(td.Transition[Board, Cell]{State: state, Action: corner, Reward: 1, Next: terminal})
	after := agent.Table().Get(state, corner)
	if !(after > before && after <= 1) {
		t.Fatalf("expected Q to move from %v toward 1.0, got %v", before, after)
	}
}

func TestSymmetricUpdateScattersToCorners(t *testing.T) {
	cfg := td.DefaultConfig()
	cfg.Symmetry = true
	agent, err := NewAgent(cfg, rand.New(rand.NewSource(1)), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var empty Board
	agent.Update(td.Transition[Board, Cell]{State: empty, Action: Cell{0, 0}, Reward: 1, Next: empty})
	want := agent.Table().Get(empty, Cell{0, 0})
	for _, corner := range []Cell{{0, 2}, {2, 0}, {2, 2}} {
		if got := agent.Table().Get(empty, corner); got != want {
			t.Fatalf("expected corner %+v to share value %v, got %v", corner, want, got)
		}
	}
	if got := agent.Table().Get(empty, Cell{1, 1}); got != 0 {
		t.Fatalf("expected centre untouched, got %v", got)
	}
}

func TestSelfPlayTalliesEveryGame(t *testing.T) {
	cfg := td.Config{Alpha: 0.3, Gamma: 0.9, Epsilon: 0.2, Symmetry: true, ReplayCapacity: 64, ReplayBatch: 8}
	rng := rand.New(rand.NewSource(9))
	x, err := NewAgent(cfg, rng, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o, err := NewAgent(cfg, rng, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := SelfPlay(context.Background(), x, o, SelfPlayConfig{Episodes: 200}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Games != 200 || result.XWins+result.OWins+result.Draws != 200 {
		t.Fatalf("expected 200 tallied games, got %+v", result)
	}
	if x.Table().Len() == 0 || o.Table().Len() == 0 {
		t.Fatalf("expected both agents to learn")
	}
	if CanonicalPositions(x) > x.Table().States() {
		t.Fatalf("expected canonical positions to be at most the stored states")
	}
}

func TestSelfPlayStopsOnCancel(t *testing.T) {
	x, _ := NewAgent(td.DefaultConfig(), nil, nil)
	o, _ := NewAgent(td.DefaultConfig(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := SelfPlay(ctx, x, o, SelfPlayConfig{Episodes: 10}, nil)
	if err == nil || result.Games != 0 {
		t.Fatalf("expected cancellation before the first game, got %+v (%v)", result, err)
	}
}

func TestVersusRandomOpponentLearns(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	cfg := td.Config{Alpha: 0.3, Gamma: 0.9, Epsilon: 0.1, Symmetry: true}
	agent, err := NewAgent(cfg, rng, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := NewOpponentEnv(rng)
	result, err := Versus(context.Background(), agent, env, 3000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.XWins <= result.OWins {
		t.Fatalf("expected the learner to beat a random opponent more often than not, got %+v", result)
	}
}

func TestAgentModelRoundTrip(t *testing.T) {
	cfg := td.Config{Alpha: 0.3, Gamma: 0.9, Epsilon: 0.2, TrackVisited: true}
	x, _ := NewAgent(cfg, rand.New(rand.NewSource(2)), nil)
	o, _ := NewAgent(cfg, rand.New(rand.NewSource(3)), nil)
	if _, err := SelfPlay(context.Background(), x, o, SelfPlayConfig{Episodes: 20}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := x.Save(&buf, Codec{}, td.FormatWrapped); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	restored, _ := NewAgent(cfg, nil, nil)
	if err := restored.Load(&buf, Codec{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !restored.Table().Equal(x.Table()) || restored.Steps() != x.Steps() {
		t.Fatalf("expected restored model to match")
	}
}
