package pool

import "github.com/prometheus/client_golang/prometheus"

var (
	workersRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "llmpool",
			Subsystem: "pool",
			Name:      "workers_running",
			Help:      "Workers with a live execution context",
		},
	)

	generateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmpool",
			Subsystem: "pool",
			Name:      "generate_total",
			Help:      "Generate calls by outcome",
		},
		[]string{"strategy", "outcome"},
	)

	generateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "llmpool",
			Subsystem: "pool",
			Name:      "generate_duration_seconds",
			Help:      "Round trip of Generate calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	spawnFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmpool",
			Subsystem: "pool",
			Name:      "spawn_failures_total",
			Help:      "Worker starts that failed to spawn a generator",
		},
		[]string{"strategy"},
	)
)

func init() {
	prometheus.MustRegister(workersRunning, generateTotal, generateDuration, spawnFailuresTotal)
}

// outcomeLabel buckets a Generate error for metrics.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsUnknownWorker(err):
		return "unknown_worker"
	case IsNotRunning(err):
		return "not_running"
	case IsTooBusy(err):
		return "too_busy"
	case IsGenerationFailure(err):
		return "generation_failure"
	default:
		return "canceled"
	}
}
