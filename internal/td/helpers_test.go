package td

import (
	"strconv"
	"testing"
)

type intCodec struct{}

func (intCodec) EncodeState(s int) string            { return strconv.Itoa(s) }
func (intCodec) DecodeState(key string) (int, error) { return strconv.Atoi(key) }
func (intCodec) EncodeAction(a int) string           { return strconv.Itoa(a) }
func (intCodec) DecodeAction(key string) (int, error) {
	return strconv.Atoi(key)
}

// mirror treats s and -s (with a and -a) as equivalent.
type mirror struct{}

func (mirror) Canonical(s int) int {
	if s < 0 {
		return -s
	}
	return s
}
func (mirror) States(s int) []int  { return []int{s, -s} }
func (mirror) Actions(a int) []int { return []int{a, -a} }

func newTestAgent(t testing.TB, cfg Config, opts ...Option[int, int]) *Agent[int, int] {
	t.Helper()
	agent, err := NewAgent[int, int](cfg, opts...)
	if err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	return agent
}
