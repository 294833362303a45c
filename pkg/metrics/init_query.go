package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initQueryMetrics() {
	r.QueriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempering_queries_total",
			Help: "Total number of optimization queries by mode and outcome",
		},
		[]string{"mode", "status"},
	)

	r.QueryDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tempering_query_duration_seconds",
			Help:    "Optimization query duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"mode"},
	)

	r.QueryPrunedNodes = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tempering_pruned_nodes",
			Help:    "Number of master graph nodes removed by pruning per query",
			Buckets: []float64{10, 100, 1000, 10000, 100000},
		},
		[]string{"mode"},
	)

	r.QueryOptimalPaths = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tempering_optimal_paths",
			Help:    "Number of tied optimal paths returned per query",
			Buckets: []float64{1, 2, 5, 10, 50, 100},
		},
		[]string{"mode"},
	)

	r.SlowQueries = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempering_slow_queries_total",
			Help: "Total number of slow queries (>1s)",
		},
		[]string{"mode"},
	)
}
