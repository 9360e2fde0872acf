package td

import (
	"errors"
	"math/rand"
	"testing"
)

func TestReplayMemoryEvictsOldest(t *testing.T) {
	const capacity = 5
	memory := NewReplayMemory[int, int](capacity)
	for i := 0; i <= capacity; i++ {
		memory.Push(Transition[int, int]{State: i, Action: i})
	}
	if memory.Len() != capacity {
		t.Fatalf("expected %d items, got %d", capacity, memory.Len())
	}
	items := memory.Items()
	for _, item := range items {
		if item.State == 0 {
			t.Fatalf("expected first pushed transition to be evicted")
		}
	}
	if items[0].State != 1 || items[capacity-1].State != capacity {
		t.Fatalf("expected oldest-first order 1..%d, got %d..%d", capacity, items[0].State, items[capacity-1].State)
	}
}

func TestReplayMemorySampleWithoutReplacement(t *testing.T) {
	memory := NewReplayMemory[int, int](10)
	for i := 0; i < 10; i++ {
		memory.Push(Transition[int, int]{State: i})
	}
	rng := rand.New(rand.NewSource(5))
	for round := 0; round < 50; round++ {
		batch, err := memory.Sample(10, rng)
		if err != nil {
			t.Fatalf("expected sample to succeed, got %v", err)
		}
		seen := make(map[int]bool, len(batch))
		for _, tr := range batch {
			if seen[tr.State] {
				t.Fatalf("expected distinct transitions, got duplicate %d", tr.State)
			}
			seen[tr.State] = true
		}
	}
}

func TestReplayMemorySampleTooMany(t *testing.T) {
	memory := NewReplayMemory[int, int](4)
	memory.Push(Transition[int, int]{})
	_, err := memory.Sample(2, rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
}

func TestReplayMemoryCopiesNextActions(t *testing.T) {
	memory := NewReplayMemory[int, int](2)
	next := []int{1, 2}
	memory.Push(Transition[int, int]{NextActions: next})
	next[0] = 9
	if got := memory.Items()[0].NextActions[0]; got != 1 {
		t.Fatalf("expected stored next actions to be detached, got %d", got)
	}
}
