package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tempering_graph_nodes",
			Help: "Nodes in the master process graph by kind",
		},
		[]string{"kind"},
	)

	r.GraphEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tempering_graph_edges",
			Help: "Edges in the master process graph",
		},
	)

	r.BuildSkippedRowsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "tempering_build_skipped_rows_total",
			Help: "Dataset records skipped during graph construction",
		},
	)

	r.GraphBuildDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tempering_graph_build_duration_seconds",
			Help:    "Master graph construction time in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0},
		},
	)
}
