package tictactoe

import (
	"context"
	"io"
	"log/slog"
	"math/rand"

	"github.com/pkg/errors"

	"tiny-td-go/internal/td"
)

// Agent is the tabular learner specialised to boards and cells.
type Agent = td.Agent[Board, Cell]

// NewAgent builds an agent wired with the board's dihedral symmetry.
func NewAgent(cfg td.Config, rng *rand.Rand, logger *slog.Logger) (*Agent, error) {
	opts := []td.Option[Board, Cell]{td.WithSymmetry[Board, Cell](Dihedral{})}
	if rng != nil {
		opts = append(opts, td.WithRand[Board, Cell](rng))
	}
	if logger != nil {
		opts = append(opts, td.WithLogger[Board, Cell](logger))
	}
	return td.NewAgent[Board, Cell](cfg, opts...)
}

// Result tallies finished games.
type Result struct {
	Games int
	XWins int
	OWins int
	Draws int
}

func (r *Result) record(winner int8) {
	r.Games++
	switch winner {
	case X:
		r.XWins++
	case O:
		r.OWins++
	default:
		r.Draws++
	}
}

type SelfPlayConfig struct {
	Episodes int
	LogEvery int
}

type pendingMove struct {
	state  Board
	action Cell
	set    bool
}

// SelfPlay trains x and o against each other. A player's transition closes when
// it is to move again, so its next state is the position it actually faces.
func SelfPlay(ctx context.Context, x, o *Agent, cfg SelfPlayConfig, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var result Result
	game := NewGame()
	for episode := 1; episode <= cfg.Episodes; episode++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		game.Reset()
		var pending [2]pendingMove
		for !game.Over() {
			player := game.Turn()
			agent, slot := x, 0
			if player == O {
				agent, slot = o, 1
			}
			state := game.Board()
			valid := state.ValidMoves()
			if p := pending[slot]; p.set {
				agent.Update(td.Transition[Board, Cell]{State: p.state, Action: p.action, Next: state, NextActions: valid})
			}
			action, err := agent.SelectAction(state, valid)
			if err != nil {
				return result, errors.Wrapf(err, "episode %d", episode)
			}
			if err := game.Play(action); err != nil {
				return result, errors.Wrapf(err, "episode %d", episode)
			}
			pending[slot] = pendingMove{state: state, action: action, set: true}
		}

		final := game.Board()
		for slot, player := range [2]int8{X, O} {
			p := pending[slot]
			if !p.set {
				continue
			}
			agent := x
			if player == O {
				agent = o
			}
			agent.Update(td.Transition[Board, Cell]{State: p.state, Action: p.action, Reward: game.Reward(player), Next: final})
		}
		result.record(game.Winner())

		if cfg.LogEvery > 0 && episode%cfg.LogEvery == 0 {
			logger.Info("self-play progress",
				"episode", episode,
				"x_wins", result.XWins,
				"o_wins", result.OWins,
				"draws", result.Draws,
				"epsilon_x", x.Epsilon(),
				"states_x", x.Table().States(),
			)
		}
	}
	return result, nil
}

// Versus plays episodes of agent (as X) in env, learning off-policy after every
// move. It returns the tally of finished games.
func Versus(ctx context.Context, agent *Agent, env td.Environment[Board, Cell], episodes int) (Result, error) {
	var result Result
	for episode := 1; episode <= episodes; episode++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		state := env.Reset()
		for {
			action, err := agent.SelectAction(state, env.ValidActions(state))
			if err != nil {
				return result, errors.Wrapf(err, "episode %d", episode)
			}
			next, reward, done := env.Step(state, action)
			var nextActions []Cell
			if !done {
				nextActions = env.ValidActions(next)
			}
			agent.Update(td.Transition[Board, Cell]{State: state, Action: action, Reward: reward, Next: next, NextActions: nextActions})
			state = next
			if done {
				break
			}
		}
		result.record(state.Winner())
	}
	return result, nil
}

// CanonicalPositions counts the positions in agent's table up to symmetry.
func CanonicalPositions(agent *Agent) int {
	seen := make(map[Board]struct{})
	agent.Table().Range(func(b Board, _ Cell, _ float64) bool {
		seen[Canonicalize(b)] = struct{}{}
		return true
	})
	return len(seen)
}
