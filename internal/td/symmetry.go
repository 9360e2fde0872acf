package td

// Symmetry describes a finite group of transforms that leave the value of a
// (state, action) pair unchanged.
//
// States and Actions must return the same number of elements, aligned by index:
// States(s)[i] paired with Actions(a)[i] is the image of (s, a) under transform i.
type Symmetry[S comparable, A comparable] interface {
	Canonical(s S) S
	States(s S) []S
	Actions(a A) []A
}

// Identity is the trivial symmetry for domains without structural equivalences.
type Identity[S comparable, A comparable] struct{}

func (Identity[S, A]) Canonical(s S) S { return s }
func (Identity[S, A]) States(s S) []S  { return []S{s} }
func (Identity[S, A]) Actions(a A) []A { return []A{a} }
