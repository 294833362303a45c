package api

import (
	"net/http"

	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/optimizer"
	"github.com/dd0wney/cluso-tempering/pkg/report"
	"github.com/dd0wney/cluso-tempering/pkg/validation"
	"github.com/dd0wney/cluso-tempering/pkg/visualization"
)

// decodeAndRun decodes the body, runs the query and writes any failure.
// It returns nil when a response has already been written.
func (s *Server) decodeAndRun(w http.ResponseWriter, r *http.Request) *optimizer.Result {
	var req validation.OptimizeRequest
	var q optimizer.Query
	if s.newRequestDecoder(w, r).DecodeJSON(&req).BuildQuery(&req, &q).RespondError() {
		return nil
	}

	res, err := s.Engine().Optimize(r.Context(), q)
	if err != nil {
		s.respondQueryError(w, err)
		return nil
	}
	return res
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	res := s.decodeAndRun(w, r)
	if res == nil {
		return
	}

	flows := make([]string, len(res.Paths))
	for i, p := range res.Paths {
		flows[i] = report.Flow(p)
	}
	s.respondJSON(w, http.StatusOK, OptimizeResponse{
		Result: res,
		Unit:   res.Query.Mode.Unit(),
		Flows:  flows,
	})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	res := s.decodeAndRun(w, r)
	if res == nil {
		return
	}

	viz, err := visualization.Build(s.layout, report.Title(res), res.Subgraph, res.PathIDs)
	if err != nil {
		s.logger.Error("layout failed", logging.Query(res.Query.Name), logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "layout failed")
		return
	}
	data, err := viz.ExportJSON()
	if err != nil {
		s.logger.Error("layout export failed", logging.Query(res.Query.Name), logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "layout failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleGraphStats(w http.ResponseWriter, r *http.Request) {
	engine := s.Engine()
	g := engine.Graph()

	resp := GraphStatsResponse{
		Nodes: make(map[string]int),
		Edges: g.EdgeCount(),
		Stats: g.Stats(),
	}
	for kind, n := range g.CountByKind() {
		resp.Nodes[kind.String()] = n
	}
	if c := engine.Cache(); c != nil {
		hits, misses := c.Stats()
		resp.Cache = &CacheStats{Entries: c.Len(), Hits: hits, Misses: misses}
	}

	s.respondJSON(w, http.StatusOK, resp)
}
