// Package optimizer answers tempering queries against a master process
// graph: prune by filters, assign costs for the chosen mode, then collect
// every Source->Hardness path tying for the minimum cost.
package optimizer

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/dd0wney/cluso-tempering/pkg/constraints"
	"github.com/dd0wney/cluso-tempering/pkg/weighting"
)

// Query is one optimization request.
type Query struct {
	Name    string              `json:"query_name"`
	Mode    weighting.Mode      `json:"optimize_by"`
	Alpha   float64             `json:"alpha"`
	Filters constraints.Filters `json:"filters"`
}

// Validate checks mode and alpha.
func (q Query) Validate() error {
	switch q.Mode {
	case weighting.ModeTime, weighting.ModeTemperature, weighting.ModeBalanced:
	default:
		return fmt.Errorf("%w: %v", weighting.ErrInvalidMode, q.Mode)
	}
	if q.Mode == weighting.ModeBalanced && (math.IsNaN(q.Alpha) || q.Alpha < 0 || q.Alpha > 1) {
		return fmt.Errorf("%w: got %v", weighting.ErrInvalidAlpha, q.Alpha)
	}
	return nil
}

// cacheKey identifies queries that must produce identical results. The
// name is excluded and alpha only counts in balanced mode.
func (q Query) cacheKey() string {
	alpha := 0.0
	if q.Mode == weighting.ModeBalanced {
		alpha = q.Alpha
	}
	// Filters marshal with sorted map keys so the encoding is stable.
	data, _ := json.Marshal(struct {
		Mode    string              `json:"m"`
		Alpha   float64             `json:"a"`
		Filters constraints.Filters `json:"f"`
	}{q.Mode.String(), alpha, q.Filters})
	return string(data)
}
