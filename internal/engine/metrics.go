package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/evalengine/internal/model"
)

// Metric label values for evaluation results.
const (
	resultSucceeded = "succeeded"
	resultFailed    = "failed"
)

var (
	pollCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalengine_poll_cycles_total",
			Help: "Total number of poll cycles by outcome.",
		},
		[]string{"outcome"},
	)

	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalengine_evaluations_total",
			Help: "Total number of evaluations by result.",
		},
		[]string{"result"},
	)

	evaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evalengine_evaluation_duration_seconds",
			Help:    "Duration of evaluation callback invocations, in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
	)

	publishFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evalengine_publish_failures_total",
			Help: "Total number of failed writes of the engine record.",
		},
	)

	engineStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evalengine_engine_status",
			Help: "1 for the engine's current status, 0 otherwise.",
		},
		[]string{"status"},
	)
)

var allOutcomes = []Outcome{
	OutcomeUnavailable,
	OutcomeMalformed,
	OutcomeNoTask,
	OutcomeUnrecognized,
	OutcomeSubmitted,
	OutcomeFailed,
	OutcomeReset,
	OutcomePublishFailed,
	OutcomeInterrupted,
}

var allStatuses = []string{model.StatusReady, model.StatusSubmitted, model.StatusFailed}

func init() {
	prometheus.MustRegister(pollCyclesTotal)
	prometheus.MustRegister(evaluationsTotal)
	prometheus.MustRegister(evaluationDuration)
	prometheus.MustRegister(publishFailuresTotal)
	prometheus.MustRegister(engineStatus)

	// Pre-initialize label combinations so they appear in /metrics with
	// value 0 from startup.
	for _, o := range allOutcomes {
		pollCyclesTotal.WithLabelValues(string(o))
	}
	evaluationsTotal.WithLabelValues(resultSucceeded)
	evaluationsTotal.WithLabelValues(resultFailed)
	for _, s := range allStatuses {
		engineStatus.WithLabelValues(s)
	}
}

// setStatusGauge marks status as the current one.
func setStatusGauge(status string) {
	for _, s := range allStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		engineStatus.WithLabelValues(s).Set(v)
	}
}
