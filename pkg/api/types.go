package api

import (
	"github.com/dd0wney/cluso-tempering/pkg/optimizer"
	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	// Kind is the optimizer failure class, when there is one.
	Kind string `json:"kind,omitempty"`
}

// OptimizeResponse is a Result plus rendered process flows, one per path.
type OptimizeResponse struct {
	*optimizer.Result
	Unit  string   `json:"unit"`
	Flows []string `json:"flows"`
}

// CacheStats summarizes the result cache.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// GraphStatsResponse summarizes the master graph.
type GraphStatsResponse struct {
	Nodes map[string]int     `json:"nodes"`
	Edges int                `json:"edges"`
	Stats processgraph.Stats `json:"stats"`
	Cache *CacheStats        `json:"cache,omitempty"`
}
