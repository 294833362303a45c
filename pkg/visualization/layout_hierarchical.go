package visualization

import (
	"errors"

	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

var ErrNilGraph = errors.New("visualization: nil graph")

// LayeredLayout places each node kind in its own column, left to right from
// Source to Sink. Nodes of a column are spread evenly top to bottom in
// canonical order.
type LayeredLayout struct {
	config LayoutConfig
}

// NewLayeredLayout creates a new layered layout
func NewLayeredLayout(config LayoutConfig) *LayeredLayout {
	if config.Padding == 0 {
		config.Padding = 50
	}
	return &LayeredLayout{config: config}
}

// ComputeLayout arranges nodes by layer. Empty layers keep their column so
// the same kind always lands at the same x.
func (l *LayeredLayout) ComputeLayout(g *processgraph.Graph) (map[processgraph.NodeID]Position, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	positions := make(map[processgraph.NodeID]Position, g.Len())

	kinds := processgraph.Kinds()
	columnWidth := (l.config.Width - 2*l.config.Padding) / float64(len(kinds))
	columnHeight := l.config.Height - 2*l.config.Padding

	for _, kind := range kinds {
		x := l.config.Padding + float64(kind.Layer())*columnWidth + columnWidth/2
		column := g.NodesOfKind(kind)
		spacing := columnHeight / float64(len(column)+1)

		for i, n := range column {
			y := l.config.Padding + spacing*float64(i+1)
			positions[n.ID] = Position{X: x, Y: y}
		}
	}

	return positions, nil
}

// Visualize lays out g with l and attaches the highlighted paths.
func (l *LayeredLayout) Visualize(title string, g *processgraph.Graph, paths [][]processgraph.NodeID) (*Visualization, error) {
	return Build(l, title, g, paths)
}
