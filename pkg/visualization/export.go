package visualization

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

type nodeViz struct {
	ID          processgraph.NodeID `json:"id"`
	Kind        string              `json:"kind"`
	Layer       int                 `json:"layer"`
	Label       string              `json:"label"`
	Row         *int                `json:"row,omitempty"`
	Value       *float64            `json:"value,omitempty"`
	Composition map[string]float64  `json:"composition,omitempty"`
	X           float64             `json:"x"`
	Y           float64             `json:"y"`
	Highlighted bool                `json:"highlighted"`
}

type edgeViz struct {
	From        processgraph.NodeID `json:"from"`
	To          processgraph.NodeID `json:"to"`
	Weight      float64             `json:"weight"`
	Highlighted bool                `json:"highlighted"`
}

type vizData struct {
	Title string                  `json:"title,omitempty"`
	Nodes []nodeViz               `json:"nodes"`
	Edges []edgeViz               `json:"edges"`
	Paths [][]processgraph.NodeID `json:"paths"`
}

type edgeKey struct{ from, to processgraph.NodeID }

// ExportJSON exports the visualization to JSON. Nodes and edges on any
// highlighted path are flagged.
func (v *Visualization) ExportJSON() ([]byte, error) {
	if v.Graph == nil {
		return nil, ErrNilGraph
	}

	onPath := make(processgraph.NodeSet)
	pathEdges := make(map[edgeKey]bool)
	for _, p := range v.Paths {
		for i, id := range p {
			onPath.Add(id)
			if i > 0 {
				pathEdges[edgeKey{p[i-1], id}] = true
			}
		}
	}

	paths := v.Paths
	if paths == nil {
		paths = [][]processgraph.NodeID{}
	}
	data := vizData{
		Title: v.Title,
		Nodes: make([]nodeViz, 0, v.Graph.Len()),
		Edges: make([]edgeViz, 0, v.Graph.EdgeCount()),
		Paths: paths,
	}

	for _, n := range v.Graph.Nodes() {
		pos := v.Positions[n.ID]
		nv := nodeViz{
			ID:          n.ID,
			Kind:        n.Kind.String(),
			Layer:       n.Kind.Layer(),
			Label:       n.Label,
			X:           pos.X,
			Y:           pos.Y,
			Highlighted: onPath.Has(n.ID),
		}
		switch n.Kind {
		case processgraph.KindSteel:
			if n.Steel != nil {
				nv.Composition = n.Steel.Composition
			}
		case processgraph.KindTime, processgraph.KindTemperature:
			row, val := n.Row, n.Value
			nv.Row, nv.Value = &row, &val
		case processgraph.KindHardness:
			val := n.Value
			nv.Value = &val
		}
		data.Nodes = append(data.Nodes, nv)
	}

	for _, e := range v.Graph.Edges() {
		data.Edges = append(data.Edges, edgeViz{
			From:        e.From,
			To:          e.To,
			Weight:      e.Weight,
			Highlighted: pathEdges[edgeKey{e.From, e.To}],
		})
	}

	return json.MarshalIndent(data, "", "  ")
}

// WriteFile writes the JSON export to path.
func (v *Visualization) WriteFile(path string) error {
	data, err := v.ExportJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write layout: %w", err)
	}
	return nil
}
