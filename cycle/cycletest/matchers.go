package cycletest

import (
	"errors"
	"fmt"
	"time"

	"github.com/loopworks/mobius/cycle"
)

// Matcher errors.
var (
	ErrNoTrace          = errors.New("no advance trace available")
	ErrNoMatchersPassed = errors.New("no matchers passed")
	ErrStageNotVisited  = errors.New("stage was not visited")
	ErrAdvanceFailed    = errors.New("an advance failed")
	ErrNoFailureFound   = errors.New("no failed advance found")
	ErrTraceTooSlow     = errors.New("advances exceeded time limit")
)

// Matcher defines an assertion over a recorded engine trace.
type Matcher[S any] interface {
	Match(engine *Engine[S]) (bool, error)
	Description() string
}

// Expect evaluates the matcher and fails the test when it does not match.
func Expect[S any](engine *Engine[S], matcher Matcher[S]) {
	engine.t.Helper()

	matched, err := matcher.Match(engine)
	if !matched || err != nil {
		engine.t.Fatalf("%s: %v", matcher.Description(), err)
	}
}

// StageWasVisited creates a matcher that checks if a stage was advanced from.
func StageWasVisited[S any](stage cycle.Stage) Matcher[S] {
	return &stageVisitedMatcher[S]{stage: stage}
}

type stageVisitedMatcher[S any] struct {
	stage cycle.Stage
}

func (m *stageVisitedMatcher[S]) Match(engine *Engine[S]) (bool, error) {
	if engine.visitCount(m.stage) > 0 {
		return true, nil
	}

	return false, fmt.Errorf("%w: '%s'", ErrStageNotVisited, m.stage)
}

func (m *stageVisitedMatcher[S]) Description() string {
	return fmt.Sprintf("stage '%s' should be visited", m.stage)
}

// AllStagesVisited creates a matcher that checks every configured stage was
// advanced from at least once.
func AllStagesVisited[S any]() Matcher[S] {
	return &allStagesVisitedMatcher[S]{}
}

type allStagesVisitedMatcher[S any] struct{}

func (m *allStagesVisitedMatcher[S]) Match(engine *Engine[S]) (bool, error) {
	if len(engine.Trace()) == 0 {
		return false, ErrNoTrace
	}

	for _, stage := range engine.Stages() {
		if engine.visitCount(stage) == 0 {
			return false, fmt.Errorf("%w: '%s'", ErrStageNotVisited, stage)
		}
	}

	return true, nil
}

func (m *allStagesVisitedMatcher[S]) Description() string {
	return "every configured stage should be visited"
}

// AdvancesSucceeded creates a matcher that checks no recorded advance failed.
func AdvancesSucceeded[S any]() Matcher[S] {
	return &advancesSucceededMatcher[S]{}
}

type advancesSucceededMatcher[S any] struct{}

func (m *advancesSucceededMatcher[S]) Match(engine *Engine[S]) (bool, error) {
	trace := engine.Trace()
	if len(trace) == 0 {
		return false, ErrNoTrace
	}

	for _, entry := range trace {
		if entry.Error != nil {
			return false, fmt.Errorf("%w: stage '%s': %w", ErrAdvanceFailed, entry.Stage, entry.Error)
		}
	}

	return true, nil
}

func (m *advancesSucceededMatcher[S]) Description() string {
	return "every advance should succeed"
}

// AdvanceFailedAt creates a matcher that checks a stage recorded at least one
// failed advance.
func AdvanceFailedAt[S any](stage cycle.Stage) Matcher[S] {
	return &advanceFailedAtMatcher[S]{stage: stage}
}

type advanceFailedAtMatcher[S any] struct {
	stage cycle.Stage
}

func (m *advanceFailedAtMatcher[S]) Match(engine *Engine[S]) (bool, error) {
	trace := engine.Trace()
	if len(trace) == 0 {
		return false, ErrNoTrace
	}

	for _, entry := range trace {
		if entry.Stage == m.stage && entry.Error != nil {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: stage '%s'", ErrNoFailureFound, m.stage)
}

func (m *advanceFailedAtMatcher[S]) Description() string {
	return fmt.Sprintf("an advance at stage '%s' should fail", m.stage)
}

// TraceTookLessThan creates a matcher that checks the summed advance durations.
func TraceTookLessThan[S any](maxDuration time.Duration) Matcher[S] {
	return &traceDurationMatcher[S]{maxDuration: maxDuration}
}

type traceDurationMatcher[S any] struct {
	maxDuration time.Duration
}

func (m *traceDurationMatcher[S]) Match(engine *Engine[S]) (bool, error) {
	total := time.Duration(0)
	for _, entry := range engine.Trace() {
		total += entry.Duration
	}

	if total > m.maxDuration {
		return false, fmt.Errorf("%w: took %s, max %s", ErrTraceTooSlow, total, m.maxDuration)
	}

	return true, nil
}

func (m *traceDurationMatcher[S]) Description() string {
	return fmt.Sprintf("advances should take less than %s", m.maxDuration)
}

// All creates a matcher that requires every sub-matcher to pass.
func All[S any](matchers ...Matcher[S]) Matcher[S] {
	return &allMatcher[S]{matchers: matchers}
}

type allMatcher[S any] struct {
	matchers []Matcher[S]
}

func (m *allMatcher[S]) Match(engine *Engine[S]) (bool, error) {
	for _, matcher := range m.matchers {
		matched, err := matcher.Match(engine)
		if !matched || err != nil {
			return false, err
		}
	}

	return true, nil
}

func (m *allMatcher[S]) Description() string {
	return "all matchers should pass"
}

// Any creates a matcher that requires at least one sub-matcher to pass.
func Any[S any](matchers ...Matcher[S]) Matcher[S] {
	return &anyMatcher[S]{matchers: matchers}
}

type anyMatcher[S any] struct {
	matchers []Matcher[S]
}

func (m *anyMatcher[S]) Match(engine *Engine[S]) (bool, error) {
	for _, matcher := range m.matchers {
		matched, err := matcher.Match(engine)
		if matched && err == nil {
			return true, nil
		}
	}

	return false, ErrNoMatchersPassed
}

func (m *anyMatcher[S]) Description() string {
	return "at least one matcher should pass"
}
