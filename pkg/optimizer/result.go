package optimizer

import (
	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

// Detail describes the process behind one optimal path.
type Detail struct {
	Steel       string             `json:"steel"`
	Hardness    float64            `json:"hardness_hrc"`
	Temperature float64            `json:"temperature_c"`
	Time        float64            `json:"time_s"`
	Row         int                `json:"row"`
	Composition map[string]float64 `json:"composition"`
}

// Result is the answer to a query. Paths, PathIDs and Details are parallel.
type Result struct {
	QueryID string                  `json:"query_id"`
	Query   Query                   `json:"query"`
	Paths   [][]string              `json:"paths"`
	PathIDs [][]processgraph.NodeID `json:"path_ids"`
	Cost    float64                 `json:"cost"`
	Details []Detail                `json:"details"`
	// Subgraph is the pruned, weighted graph the paths were found in.
	Subgraph *processgraph.Graph `json:"-"`
	// Pruned counts master graph nodes removed by the filters.
	Pruned int  `json:"pruned_nodes"`
	Cached bool `json:"cached"`
}

// Highlighted returns the set of nodes on any optimal path.
func (r *Result) Highlighted() processgraph.NodeSet {
	set := make(processgraph.NodeSet)
	for _, p := range r.PathIDs {
		for _, id := range p {
			set.Add(id)
		}
	}
	return set
}
