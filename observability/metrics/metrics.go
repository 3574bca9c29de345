// Package metrics exposes the engine's Prometheus counters and histograms:
// operation calls, matching-run diagnostics, and settlement transitions.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every engine-level Prometheus collector. Construct one per
// process and register it against a single registry at startup.
type Metrics struct {
	Registry *prometheus.Registry

	OperationsTotal    *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	MatchingCandidates  prometheus.Histogram
	MatchingSelected    prometheus.Histogram
	SettlementTransitions *prometheus.CounterVec
}

// New constructs and registers the engine's metric collectors under
// namespace "swapmesh".
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		Registry: registry,
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swapmesh",
			Name:      "operations_total",
			Help:      "Total engine operations processed, by operation id and outcome code.",
		}, []string{"operation_id", "code"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "swapmesh",
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation_id"}),
		MatchingCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "swapmesh",
			Name:      "matching_candidates",
			Help:      "Number of scored cycle candidates per matching run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		MatchingSelected: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "swapmesh",
			Name:      "matching_selected",
			Help:      "Number of disjoint proposals selected per matching run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		SettlementTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swapmesh",
			Name:      "settlement_transitions_total",
			Help:      "Total settlement transitions into completed or failed, by resulting state; earlier transitions are not counted.",
		}, []string{"state"}),
	}
	registry.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.MatchingCandidates,
		m.MatchingSelected,
		m.SettlementTransitions,
	)
	return m
}
