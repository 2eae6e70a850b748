package cycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric definitions with appropriate labels.
var (
	// AdvancesTotal tracks advance counts by cycle, stage, and outcome
	// (success, error, or skipped).
	advancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cycle_advances_total",
		Help: "Total number of stage advances by cycle, stage, and outcome (success, error, or skipped)",
	}, []string{"cycle", "stage", "outcome"})

	// StageDuration tracks stage handler execution time.
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cycle_stage_duration_seconds",
		Help:    "Duration of stage execution by cycle, stage, and outcome",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"cycle", "stage", "outcome"})

	// HandlerPanicsTotal tracks recovered handler panics.
	handlerPanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cycle_handler_panics_total",
		Help: "Total number of stage handler panics recovered by the engine",
	}, []string{"cycle", "stage"})

	// StateInjectionsTotal tracks direct state replacements via SetState.
	stateInjectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cycle_state_injections_total",
		Help: "Total number of direct state injections via SetState",
	}, []string{"cycle"})

	// ResetsTotal tracks engine resets.
	resetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cycle_resets_total",
		Help: "Total number of engine resets",
	}, []string{"cycle"})

	// TicksTotal tracks scheduler ticks that reached the engine.
	ticksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cycle_ticks_total",
		Help: "Total number of scheduler ticks delivered to the engine",
	}, []string{"cycle"})

	// TickOverrunsTotal tracks ticks whose advance outlasted the interval.
	tickOverrunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cycle_tick_overruns_total",
		Help: "Total number of ticks whose advance took longer than the tick interval",
	}, []string{"cycle"})

	// SchedulerRunning tracks whether a scheduler loop is active per cycle.
	schedulerRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cycle_scheduler_running",
		Help: "Whether a scheduler loop is active (1) or not (0) per cycle",
	}, []string{"cycle"})
)

// sanitizeCycle keeps the cycle label non-empty.
func sanitizeCycle(name string) string {
	if name == "" {
		return "unknown"
	}

	return name
}
