package td

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Transition is one observed step: acting with Action in State produced Reward
// and led to Next, where NextActions are legal. An empty NextActions marks Next
// as terminal.
type Transition[S comparable, A comparable] struct {
	State       S
	Action      A
	Reward      float64
	Next        S
	NextActions []A
}

// ReplayMemory is a bounded FIFO of transitions. Once full, every Push evicts
// the oldest entry.
type ReplayMemory[S comparable, A comparable] struct {
	items []Transition[S, A]
	head  int
	size  int
}

func NewReplayMemory[S comparable, A comparable](capacity int) *ReplayMemory[S, A] {
	if capacity < 0 {
		capacity = 0
	}
	return &ReplayMemory[S, A]{items: make([]Transition[S, A], capacity)}
}

func (m *ReplayMemory[S, A]) Push(t Transition[S, A]) {
	if len(m.items) == 0 {
		return
	}
	// Detach the slice so later caller mutations do not leak into memory.
	t.NextActions = append([]A(nil), t.NextActions...)
	idx := (m.head + m.size) % len(m.items)
	if m.size == len(m.items) {
		m.items[m.head] = t
		m.head = (m.head + 1) % len(m.items)
		return
	}
	m.items[idx] = t
	m.size++
}

func (m *ReplayMemory[S, A]) Len() int { return m.size }
func (m *ReplayMemory[S, A]) Cap() int { return len(m.items) }

// Items returns the stored transitions, oldest first.
func (m *ReplayMemory[S, A]) Items() []Transition[S, A] {
	out := make([]Transition[S, A], m.size)
	for i := 0; i < m.size; i++ {
		out[i] = m.items[(m.head+i)%len(m.items)]
	}
	return out
}

// Sample draws n distinct transitions uniformly at random.
func (m *ReplayMemory[S, A]) Sample(n int, rng *rand.Rand) ([]Transition[S, A], error) {
	if n < 0 || n > m.size {
		return nil, errors.Wrapf(ErrPrecondition, "sample %d transitions from memory holding %d", n, m.size)
	}
	picked := rng.Perm(m.size)[:n]
	out := make([]Transition[S, A], n)
	for i, offset := range picked {
		out[i] = m.items[(m.head+offset)%len(m.items)]
	}
	return out, nil
}
