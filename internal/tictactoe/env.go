package tictactoe

import "math/rand"

// OpponentEnv lets a single agent play X against an opponent that answers
// every move uniformly at random. Rewards are scored for X.
type OpponentEnv struct {
	rng *rand.Rand
}

func NewOpponentEnv(rng *rand.Rand) *OpponentEnv {
	return &OpponentEnv{rng: rng}
}

func (e *OpponentEnv) Reset() Board {
	return Board{}
}

func (e *OpponentEnv) ValidActions(state Board) []Cell {
	if state.Terminal() {
		return nil
	}
	return state.ValidMoves()
}

// Step plays action for X, then the opponent's reply. An illegal action ends
// the game as a loss.
func (e *OpponentEnv) Step(state Board, action Cell) (Board, float64, bool) {
	game := GameFrom(state)
	if err := game.Play(action); err != nil {
		return state, -1, true
	}
	if game.Over() {
		return game.Board(), game.Reward(X), true
	}
	replies := game.ValidMoves()
	_ = game.Play(replies[e.rng.Intn(len(replies))])
	return game.Board(), game.Reward(X), game.Over()
}
