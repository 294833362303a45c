// Package graphql serves optimizer results and graph statistics over GraphQL.
package graphql

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/optimizer"
	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
	"github.com/dd0wney/cluso-tempering/pkg/queries"
	"github.com/dd0wney/cluso-tempering/pkg/report"
	"github.com/dd0wney/cluso-tempering/pkg/validation"
)

var errOptimizeFailed = errors.New("optimize failed")

// EngineFunc returns the engine that should answer the next query.
type EngineFunc func() *optimizer.Engine

var kindCountType = graphql.NewObject(graphql.ObjectConfig{
	Name: "KindCount",
	Fields: graphql.Fields{
		"kind":  &graphql.Field{Type: graphql.String},
		"count": &graphql.Field{Type: graphql.Int},
	},
})

var graphStatsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "GraphStats",
	Fields: graphql.Fields{
		"nodes":          &graphql.Field{Type: graphql.NewList(kindCountType)},
		"edges":          &graphql.Field{Type: graphql.Int},
		"maxTime":        &graphql.Field{Type: graphql.Float},
		"maxTemperature": &graphql.Field{Type: graphql.Float},
	},
})

var elementType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Element",
	Fields: graphql.Fields{
		"symbol":   &graphql.Field{Type: graphql.String},
		"fraction": &graphql.Field{Type: graphql.Float},
	},
})

var detailType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Detail",
	Fields: graphql.Fields{
		"steel":        &graphql.Field{Type: graphql.String},
		"hardnessHrc":  &graphql.Field{Type: graphql.Float},
		"temperatureC": &graphql.Field{Type: graphql.Float},
		"timeS":        &graphql.Field{Type: graphql.Float},
		"row":          &graphql.Field{Type: graphql.Int},
		"composition":  &graphql.Field{Type: graphql.NewList(elementType)},
	},
})

var optimizationType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Optimization",
	Fields: graphql.Fields{
		"queryId":     &graphql.Field{Type: graphql.String},
		"name":        &graphql.Field{Type: graphql.String},
		"mode":        &graphql.Field{Type: graphql.String},
		"alpha":       &graphql.Field{Type: graphql.Float},
		"cost":        &graphql.Field{Type: graphql.Float},
		"unit":        &graphql.Field{Type: graphql.String},
		"cached":      &graphql.Field{Type: graphql.Boolean},
		"prunedNodes": &graphql.Field{Type: graphql.Int},
		"paths":       &graphql.Field{Type: graphql.NewList(graphql.NewList(graphql.String))},
		"flows":       &graphql.Field{Type: graphql.NewList(graphql.String)},
		"details":     &graphql.Field{Type: graphql.NewList(detailType)},
	},
})

// NewSchema builds the query-only schema. engine is called once per
// resolved field so a swapped engine takes effect on the next request.
func NewSchema(engine EngineFunc, logger logging.Logger) (graphql.Schema, error) {
	logger = logging.OrDefault(logger).With(logging.Component("graphql"))
	r := &resolver{engine: engine, logger: logger}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return "ok", nil
				},
			},
			"graph": &graphql.Field{
				Type:    graphStatsType,
				Resolve: r.graph,
			},
			"optimize": &graphql.Field{
				Type:        optimizationType,
				Description: "Run one query. filters is a JSON object in the query file format.",
				Args: graphql.FieldConfigArgument{
					"name":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"optimizeBy": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"alpha":      &graphql.ArgumentConfig{Type: graphql.Float},
					"filters":    &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.optimize,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

type resolver struct {
	engine EngineFunc
	logger logging.Logger
}

func (r *resolver) graph(p graphql.ResolveParams) (interface{}, error) {
	g := r.engine().Graph()
	counts := g.CountByKind()

	nodes := make([]map[string]interface{}, 0, len(counts))
	for _, kind := range processgraph.Kinds() {
		nodes = append(nodes, map[string]interface{}{
			"kind":  kind.String(),
			"count": counts[kind],
		})
	}
	stats := g.Stats()
	return map[string]interface{}{
		"nodes":          nodes,
		"edges":          g.EdgeCount(),
		"maxTime":        stats.MaxTime,
		"maxTemperature": stats.MaxTemperature,
	}, nil
}

func (r *resolver) optimize(p graphql.ResolveParams) (interface{}, error) {
	req := validation.OptimizeRequest{Filters: map[string]any{}}
	req.QueryName, _ = p.Args["name"].(string)
	req.OptimizeBy, _ = p.Args["optimizeBy"].(string)
	if alpha, ok := p.Args["alpha"].(float64); ok {
		req.Alpha = &alpha
	}
	if raw, ok := p.Args["filters"].(string); ok && raw != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		dec.UseNumber()
		if err := dec.Decode(&req.Filters); err != nil {
			return nil, fmt.Errorf("filters: %w", err)
		}
	}

	q, err := queries.Build(req, r.logger)
	if err != nil {
		return nil, err
	}
	res, err := r.engine().Optimize(p.Context, q)
	if err != nil {
		if kind := optimizer.KindOf(err); kind == 0 || kind == optimizer.KindData {
			r.logger.Error("optimize failed", logging.Query(q.Name), logging.Error(err))
			return nil, errOptimizeFailed
		}
		return nil, err
	}
	return optimization(res), nil
}

func optimization(res *optimizer.Result) map[string]interface{} {
	flows := make([]string, len(res.Paths))
	for i, path := range res.Paths {
		flows[i] = report.Flow(path)
	}
	details := make([]map[string]interface{}, len(res.Details))
	for i, d := range res.Details {
		composition := make([]map[string]interface{}, 0, len(d.Composition))
		for _, el := range slices.Sorted(maps.Keys(d.Composition)) {
			composition = append(composition, map[string]interface{}{
				"symbol":   el,
				"fraction": d.Composition[el],
			})
		}
		details[i] = map[string]interface{}{
			"steel":        d.Steel,
			"hardnessHrc":  d.Hardness,
			"temperatureC": d.Temperature,
			"timeS":        d.Time,
			"row":          d.Row,
			"composition":  composition,
		}
	}

	return map[string]interface{}{
		"queryId":     res.QueryID,
		"name":        res.Query.Name,
		"mode":        res.Query.Mode.String(),
		"alpha":       res.Query.Alpha,
		"cost":        res.Cost,
		"unit":        res.Query.Mode.Unit(),
		"cached":      res.Cached,
		"prunedNodes": res.Pruned,
		"paths":       res.Paths,
		"flows":       flows,
		"details":     details,
	}
}
