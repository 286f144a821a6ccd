package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline instruments. Registered on the default registry; the optional
// --metrics-addr listener in cmd exposes them.
var (
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conviction_evaluations_total",
		Help: "Completed per-instrument evaluations",
	}, []string{"instrument"})

	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "conviction_evaluation_duration_seconds",
		Help:    "Wall time of one per-instrument evaluation",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	FlipsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conviction_gamma_flips_detected_total",
		Help: "Evaluations in which a primary gamma flip level was found",
	})

	PinningAssessments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conviction_pinning_assessments_total",
		Help: "Pinning risk classifications by level",
	}, []string{"level"})

	ConsensusGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "conviction_portfolio_consensus",
		Help: "Consensus of the most recent cross-instrument evaluation",
	})

	Recommendations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conviction_recommendations_total",
		Help: "Portfolio recommendations by mode",
	}, []string{"mode"})

	FactorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conviction_factor_failures_total",
		Help: "Factor computations that degraded to the neutral default",
	}, []string{"factor"})
)
