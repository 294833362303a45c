// Package visualization computes renderer-independent layouts of process
// graphs and exports them, with the optimal paths highlighted, as JSON.
package visualization

import (
	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

// Position represents a 2D coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LayoutConfig configures layout parameters
type LayoutConfig struct {
	Width   float64 // Canvas width
	Height  float64 // Canvas height
	Padding float64 // Padding from edges
}

// DefaultLayoutConfig matches a 22x14 inch figure at 100 dpi.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{Width: 2200, Height: 1400, Padding: 50}
}

// Layout assigns a position to every node of g.
type Layout interface {
	ComputeLayout(g *processgraph.Graph) (map[processgraph.NodeID]Position, error)
}

// Visualization is a laid out graph plus the optimal path set.
type Visualization struct {
	Title     string
	Graph     *processgraph.Graph
	Positions map[processgraph.NodeID]Position
	Paths     [][]processgraph.NodeID
}

// Build lays out g with layout and attaches the highlighted paths.
func Build(layout Layout, title string, g *processgraph.Graph, paths [][]processgraph.NodeID) (*Visualization, error) {
	positions, err := layout.ComputeLayout(g)
	if err != nil {
		return nil, err
	}
	return &Visualization{Title: title, Graph: g, Positions: positions, Paths: paths}, nil
}
