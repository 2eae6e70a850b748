package cycle

import "fmt"

// Outcome is a stage handler's verdict on the state: either a replacement
// value or an explicit "leave it as is". The zero Outcome is Unchanged.
type Outcome[S any] struct {
	state    S
	replaced bool
}

// Replace returns an Outcome carrying a replacement state.
func Replace[S any](state S) Outcome[S] {
	return Outcome[S]{state: state, replaced: true}
}

// Unchanged returns an Outcome that keeps the current state.
func Unchanged[S any]() Outcome[S] {
	return Outcome[S]{}
}

// Get returns the replacement state and whether one was set.
func (o Outcome[S]) Get() (S, bool) {
	return o.state, o.replaced
}

// Replaced reports whether the Outcome carries a replacement state.
func (o Outcome[S]) Replaced() bool {
	return o.replaced
}

// String renders as "Replace(v)" or "Unchanged".
func (o Outcome[S]) String() string {
	if o.replaced {
		return fmt.Sprintf("Replace(%v)", o.state)
	}

	return "Unchanged"
}
