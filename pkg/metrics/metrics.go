package metrics

import (
	"runtime"
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize observes the size of an HTTP response body
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

func (r *Registry) IncHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Inc() }
func (r *Registry) DecHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Dec() }

// RecordAuthFailure counts a request rejected by the token guard
func (r *Registry) RecordAuthFailure() {
	r.AuthFailuresTotal.Inc()
}

// RecordQuery records one optimization query. status is "success" or an error kind.
func (r *Registry) RecordQuery(mode, status string, duration time.Duration, prunedNodes, optimalPaths int) {
	r.QueriesTotal.WithLabelValues(mode, status).Inc()
	r.QueryDuration.WithLabelValues(mode).Observe(duration.Seconds())
	r.QueryPrunedNodes.WithLabelValues(mode).Observe(float64(prunedNodes))
	if status == "success" {
		r.QueryOptimalPaths.WithLabelValues(mode).Observe(float64(optimalPaths))
	}

	if duration > time.Second {
		r.SlowQueries.WithLabelValues(mode).Inc()
	}
}

// RecordGraphBuild publishes the shape of a freshly built master graph
func (r *Registry) RecordGraphBuild(nodesByKind map[string]int, edges, skippedRows int, duration time.Duration) {
	r.GraphNodes.Reset()
	for kind, n := range nodesByKind {
		r.GraphNodes.WithLabelValues(kind).Set(float64(n))
	}
	r.GraphEdges.Set(float64(edges))
	r.BuildSkippedRowsTotal.Add(float64(skippedRows))
	r.GraphBuildDuration.Observe(duration.Seconds())
}

// RecordCacheLookup counts a result cache hit or miss
func (r *Registry) RecordCacheLookup(hit bool) {
	if hit {
		r.CacheHitsTotal.Inc()
	} else {
		r.CacheMissesTotal.Inc()
	}
}

// UpdateSystemMetrics refreshes uptime, goroutine and memory gauges
func (r *Registry) UpdateSystemMetrics(start time.Time) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(start).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
