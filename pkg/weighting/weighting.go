// Package weighting assigns per-mode edge costs to a pruned process graph.
package weighting

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

var (
	ErrInvalidMode  = errors.New("invalid optimization mode")
	ErrInvalidAlpha = errors.New("alpha must be within [0, 1]")
)

// Mode selects what a path's cost measures.
type Mode int

const (
	ModeTime Mode = iota
	ModeTemperature
	ModeBalanced
)

// DefaultAlpha is the balanced-mode mixing coefficient when a query omits it.
const DefaultAlpha = 0.5

func (m Mode) String() string {
	switch m {
	case ModeTime:
		return "time"
	case ModeTemperature:
		return "temperature"
	case ModeBalanced:
		return "balanced"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Unit is the report unit for costs in this mode.
func (m Mode) Unit() string {
	switch m {
	case ModeTime:
		return "s"
	case ModeTemperature:
		return "C"
	default:
		return "(Score)"
	}
}

// ParseMode accepts "time", "temperature" or "balanced", ignoring case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "time":
		return ModeTime, nil
	case "temperature":
		return ModeTemperature, nil
	case "balanced":
		return ModeBalanced, nil
	default:
		return 0, fmt.Errorf("%w: %q (want time, temperature or balanced)", ErrInvalidMode, s)
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Assign returns a canonical copy of g with edge weights for mode. Only
// Steel->Time and Time->Temperature edges carry cost; all others weigh zero.
// alpha is only consulted for ModeBalanced.
func Assign(g *processgraph.Graph, mode Mode, alpha float64) (*processgraph.Graph, error) {
	if mode < ModeTime || mode > ModeBalanced {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMode, mode)
	}
	if mode == ModeBalanced && (math.IsNaN(alpha) || alpha < 0 || alpha > 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidAlpha, alpha)
	}
	stats := g.Stats()
	return g.Reweighted(func(e processgraph.Edge) float64 {
		return Weight(e, mode, alpha, stats)
	}), nil
}

// Weight computes the cost of a single edge.
func Weight(e processgraph.Edge, mode Mode, alpha float64, stats processgraph.Stats) float64 {
	switch {
	case e.Time != nil:
		switch mode {
		case ModeTime:
			return *e.Time
		case ModeBalanced:
			return alpha * math.Log(math.Max(*e.Time, 1)) / stats.LogMaxTime
		}
	case e.Temperature != nil:
		switch mode {
		case ModeTemperature:
			return *e.Temperature
		case ModeBalanced:
			return (1 - alpha) * *e.Temperature / stats.MaxTemperature
		}
	}
	return 0
}
