package td

import (
	"io"
	"log/slog"
	"math/rand"

	"github.com/pkg/errors"
)

// Environment is the collaborator a training driver steps through.
// ValidActions is non-empty for every non-terminal state.
type Environment[S comparable, A comparable] interface {
	Reset() S
	Step(state S, action A) (S, float64, bool)
	ValidActions(state S) []A
}

// Pair identifies one cell of the value table.
type Pair[S comparable, A comparable] struct {
	State  S
	Action A
}

// Agent is a tabular temporal-difference learner. It is not safe for
// concurrent use.
type Agent[S comparable, A comparable] struct {
	cfg      Config
	rng      *rand.Rand
	log      *slog.Logger
	table    *ValueTable[S, A]
	schedule *Schedule
	sym      Symmetry[S, A]
	filter   func(S, A) bool
	visited  map[Pair[S, A]]struct{}
	fresh    map[Pair[S, A]]struct{}
	memory   *ReplayMemory[S, A]
	steps    int
}

type Option[S comparable, A comparable] func(*Agent[S, A])

// WithSymmetry sets the transforms used when cfg.Symmetry is enabled.
func WithSymmetry[S comparable, A comparable](sym Symmetry[S, A]) Option[S, A] {
	return func(a *Agent[S, A]) { a.sym = sym }
}

// WithActionFilter installs a predicate reporting actions to avoid at a state.
// Filtered actions are skipped by random and greedy choices unless every valid
// action is filtered.
func WithActionFilter[S comparable, A comparable](excluded func(S, A) bool) Option[S, A] {
	return func(a *Agent[S, A]) { a.filter = excluded }
}

func WithRand[S comparable, A comparable](rng *rand.Rand) Option[S, A] {
	return func(a *Agent[S, A]) { a.rng = rng }
}

func WithLogger[S comparable, A comparable](logger *slog.Logger) Option[S, A] {
	return func(a *Agent[S, A]) { a.log = logger }
}

func NewAgent[S comparable, A comparable](cfg Config, opts ...Option[S, A]) (*Agent[S, A], error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "agent config")
	}
	a := &Agent[S, A]{
		cfg:      cfg,
		table:    NewValueTable[S, A](),
		schedule: newSchedule(cfg),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(1))
	}
	if a.log == nil {
		a.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if a.sym == nil {
		a.sym = Identity[S, A]{}
	}
	if cfg.tracksVisited() {
		a.visited = make(map[Pair[S, A]]struct{})
		a.fresh = make(map[Pair[S, A]]struct{})
	}
	if cfg.ReplayCapacity > 0 {
		a.memory = NewReplayMemory[S, A](cfg.ReplayCapacity)
	}
	return a, nil
}

func (a *Agent[S, A]) Config() Config              { return a.cfg }
func (a *Agent[S, A]) Table() *ValueTable[S, A]    { return a.table }
func (a *Agent[S, A]) Memory() *ReplayMemory[S, A] { return a.memory }
func (a *Agent[S, A]) Steps() int                  { return a.steps }
func (a *Agent[S, A]) Epsilon() float64            { return a.schedule.At(a.steps) }

// SetEpsilon overrides the exploration rate. It has no effect while step decay
// is configured.
func (a *Agent[S, A]) SetEpsilon(eps float64) { a.schedule.Set(eps) }

// SetActionFilter replaces the action filter installed by WithActionFilter.
func (a *Agent[S, A]) SetActionFilter(excluded func(S, A) bool) { a.filter = excluded }

// Visited reports whether (s, act) has been chosen or learned from before.
func (a *Agent[S, A]) Visited(s S, act A) bool {
	_, ok := a.visited[Pair[S, A]{State: s, Action: act}]
	return ok
}

// VisitedCount reports the size of the visited set.
func (a *Agent[S, A]) VisitedCount() int { return len(a.visited) }

// SelectAction picks an epsilon-greedy action among valid.
func (a *Agent[S, A]) SelectAction(s S, valid []A) (A, error) {
	var zero A
	if len(valid) == 0 {
		return zero, errors.Wrapf(ErrPrecondition, "select action at %v: no valid actions", s)
	}
	a.table.Touch(s, valid)

	if a.visited != nil && a.cfg.ForceExplore > 0 {
		unvisited := make([]A, 0, len(valid))
		for _, act := range valid {
			if !a.Visited(s, act) {
				unvisited = append(unvisited, act)
			}
		}
		if len(unvisited) > 0 && a.rng.Float64() < a.cfg.ForceExplore {
			choice := unvisited[a.rng.Intn(len(unvisited))]
			a.markVisited(s, choice)
			return choice, nil
		}
	}

	candidates := a.allowed(s, valid)
	var choice A
	if a.rng.Float64() < a.Epsilon() {
		choice = candidates[a.rng.Intn(len(candidates))]
	} else {
		choice = a.table.BestAction(s, candidates, a.rng)
	}
	a.markVisited(s, choice)
	return choice, nil
}

// Greedy picks the best known action without exploring or recording a visit.
func (a *Agent[S, A]) Greedy(s S, valid []A) (A, error) {
	var zero A
	if len(valid) == 0 {
		return zero, errors.Wrapf(ErrPrecondition, "greedy action at %v: no valid actions", s)
	}
	a.table.Touch(s, valid)
	return a.table.BestAction(s, a.allowed(s, valid), a.rng), nil
}

func (a *Agent[S, A]) allowed(s S, valid []A) []A {
	if a.filter == nil {
		return valid
	}
	kept := make([]A, 0, len(valid))
	for _, act := range valid {
		if !a.filter(s, act) {
			kept = append(kept, act)
		}
	}
	if len(kept) == 0 {
		return valid
	}
	return kept
}

func (a *Agent[S, A]) markVisited(s S, act A) {
	if a.visited == nil {
		return
	}
	p := Pair[S, A]{State: s, Action: act}
	if _, ok := a.visited[p]; ok {
		return
	}
	a.visited[p] = struct{}{}
	if a.cfg.ExplorationBonus != 0 {
		a.fresh[p] = struct{}{}
	}
}

// novel reports whether t is the first experience of its pair, consuming the
// first-visit mark left by SelectAction.
func (a *Agent[S, A]) novel(s S, act A) bool {
	p := Pair[S, A]{State: s, Action: act}
	if _, ok := a.fresh[p]; ok {
		delete(a.fresh, p)
		return true
	}
	if _, ok := a.visited[p]; ok {
		return false
	}
	a.visited[p] = struct{}{}
	return true
}

// Update applies the off-policy (Q-learning) target max_a Q(next, a).
func (a *Agent[S, A]) Update(t Transition[S, A]) {
	a.learn(t, nil)
}

// UpdateOnPolicy applies the on-policy (SARSA) target Q(next, nextAction).
func (a *Agent[S, A]) UpdateOnPolicy(t Transition[S, A], nextAction A) {
	a.learn(t, &nextAction)
}

func (a *Agent[S, A]) learn(t Transition[S, A], nextAction *A) {
	a.table.Touch(t.State, []A{t.Action})
	a.table.Touch(t.Next, t.NextActions)

	var future float64
	if nextAction != nil {
		future = a.table.Get(t.Next, *nextAction)
	} else {
		future = a.table.MaxValue(t.Next, t.NextActions)
	}
	target := t.Reward + a.cfg.Gamma*future
	if a.cfg.ExplorationBonus != 0 && a.novel(t.State, t.Action) {
		target += a.cfg.ExplorationBonus
	}
	a.apply(t.State, t.Action, target)

	if a.memory != nil {
		a.memory.Push(t)
		if a.memory.Len() >= a.cfg.ReplayBatch {
			a.replay()
		}
	}
	a.steps++
}

func (a *Agent[S, A]) replay() {
	batch, err := a.memory.Sample(a.cfg.ReplayBatch, a.rng)
	if err != nil {
		a.log.Warn("replay skipped", "err", err)
		return
	}
	for _, t := range batch {
		a.table.Touch(t.Next, t.NextActions)
		target := t.Reward + a.cfg.Gamma*a.table.MaxValue(t.Next, t.NextActions)
		a.apply(t.State, t.Action, target)
	}
}

// apply moves Q(s, act) toward target. With symmetry enabled the new value
// overwrites every symmetric pair, discarding whatever those cells held.
func (a *Agent[S, A]) apply(s S, act A, target float64) {
	current := a.table.Get(s, act)
	updated := current + a.cfg.Alpha*(target-current)
	a.table.Set(s, act, updated)
	if !a.cfg.Symmetry {
		return
	}
	states := a.sym.States(s)
	actions := a.sym.Actions(act)
	for i := range states {
		a.table.Set(states[i], actions[i], updated)
	}
}
