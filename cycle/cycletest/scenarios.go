package cycletest

import (
	"testing"

	"github.com/loopworks/mobius/cycle"
)

// Scenario bundles a config, a number of advances, and the matchers the
// resulting trace must satisfy.
type Scenario[S any] struct {
	Name     string
	Config   *cycle.Config[S]
	Advances int

	// ToleratesFailures keeps advancing through handler errors instead of
	// failing the test, so failure matchers can inspect the trace.
	ToleratesFailures bool

	Matchers []Matcher[S]
}

// Run executes the scenario as a subtest.
func Run[S any](t *testing.T, scenario Scenario[S]) {
	t.Helper()

	t.Run(scenario.Name, func(t *testing.T) {
		engine := New(t, scenario.Config)

		if scenario.ToleratesFailures {
			for i := 0; i < scenario.Advances; i++ {
				_ = engine.Advance(t.Context())
			}
		} else {
			engine.AdvanceN(t.Context(), scenario.Advances)
		}

		for _, matcher := range scenario.Matchers {
			Expect(engine, matcher)
		}
	})
}
