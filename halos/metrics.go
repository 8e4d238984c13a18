package halos

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus metrics of the grouped reduction engine.
type Metrics struct {
	JobsEvaluated   prometheus.Counter
	BlocksProcessed prometheus.Counter
	EvalDuration    prometheus.Histogram
}

// NewMetrics creates and registers all engine metrics with the provided
// registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	jobsEvaluated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scida_grouped_jobs_evaluated_total",
		Help: "Total grouped jobs evaluated",
	})

	blocksProcessed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scida_grouped_blocks_processed_total",
		Help: "Total group-aligned blocks processed during evaluation",
	})

	evalDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scida_grouped_eval_duration_seconds",
		Help:    "Wall time of grouped job evaluations",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	reg.MustRegister(jobsEvaluated, blocksProcessed, evalDuration)

	return &Metrics{
		JobsEvaluated:   jobsEvaluated,
		BlocksProcessed: blocksProcessed,
		EvalDuration:    evalDuration,
	}
}
