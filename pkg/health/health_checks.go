package health

import (
	"runtime"

	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

// Thresholds used by the built-in checks.
const (
	MemoryDegradedPercent = 90
	// CacheMinLookups is the number of lookups before hit ratio is judged.
	CacheMinLookups = 100
	// CacheDegradedRatio marks a cache that is mostly missing.
	CacheDegradedRatio = 0.05
)

// GraphCheck reports whether a usable master graph is loaded. A graph with
// no hardness nodes can answer no query and is unhealthy.
func GraphCheck(graph func() *processgraph.Graph) CheckFunc {
	return func() Check {
		check := Check{Name: "graph", Details: make(map[string]any)}

		g := graph()
		if g == nil {
			check.Status = StatusUnhealthy
			check.Message = "No graph loaded"
			return check
		}

		counts := g.CountByKind()
		for kind, n := range counts {
			check.Details[kind.String()] = n
		}
		check.Details["edges"] = g.EdgeCount()

		_, hasSource := g.Source()
		switch {
		case !hasSource:
			check.Status = StatusUnhealthy
			check.Message = "Graph has no source node"
		case counts[processgraph.KindHardness] == 0:
			check.Status = StatusUnhealthy
			check.Message = "Graph has no hardness targets"
		case counts[processgraph.KindSteel] == 0:
			check.Status = StatusUnhealthy
			check.Message = "Graph has no steels"
		default:
			check.Status = StatusHealthy
			check.Message = "Graph loaded"
		}
		return check
	}
}

// CacheCheck reports result cache occupancy and hit ratio. A cache that
// has seen enough lookups and almost never hits is degraded.
func CacheCheck(stats func() (entries int, hits, misses int64)) CheckFunc {
	return func() Check {
		check := Check{Name: "cache", Details: make(map[string]any)}

		entries, hits, misses := stats()
		lookups := hits + misses
		ratio := 0.0
		if lookups > 0 {
			ratio = float64(hits) / float64(lookups)
		}

		check.Details["entries"] = entries
		check.Details["hits"] = hits
		check.Details["misses"] = misses
		check.Details["hit_ratio"] = ratio

		if lookups >= CacheMinLookups && ratio < CacheDegradedRatio {
			check.Status = StatusDegraded
			check.Message = "Low cache hit ratio"
		} else {
			check.Status = StatusHealthy
			check.Message = "Cache operational"
		}
		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{Name: "memory", Details: make(map[string]any)}

		alloc, sys := getUsage()
		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		if sys > 0 && float64(alloc)/float64(sys)*100 > MemoryDegradedPercent {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}

// RuntimeMemory reads heap allocation and total memory from the runtime.
func RuntimeMemory() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}
