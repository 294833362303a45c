package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-tempering/pkg/algorithms"
	"github.com/dd0wney/cluso-tempering/pkg/constraints"
	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/metrics"
	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
	"github.com/dd0wney/cluso-tempering/pkg/weighting"
)

// Engine runs queries against one immutable master graph. It is safe for
// concurrent use: every query derives its own pruned and weighted graphs.
type Engine struct {
	master    *processgraph.Graph
	tolerance algorithms.Tolerance
	timeout   time.Duration
	logger    logging.Logger
	metrics   *metrics.Registry
	cache     *Cache
}

// Option configures an Engine.
type Option func(*Engine)

// WithTolerance overrides the tie tolerance.
func WithTolerance(t algorithms.Tolerance) Option {
	return func(e *Engine) { e.tolerance = t }
}

// WithTimeout bounds each query. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records query metrics in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = r }
}

// WithCache memoizes results in c.
func WithCache(c *Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// NewEngine creates an engine over master.
func NewEngine(master *processgraph.Graph, opts ...Option) (*Engine, error) {
	if master == nil {
		return nil, NewError(KindData, "init").Cause(ErrNoGraph).Err()
	}
	e := &Engine{master: master, tolerance: algorithms.DefaultTolerance}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrDefault(e.logger).With(logging.Component("optimizer"))
	return e, nil
}

// Graph returns the master graph.
func (e *Engine) Graph() *processgraph.Graph {
	return e.master
}

// Cache returns the result cache, or nil when caching is off.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Optimize answers q. Failures are *QueryError values classified by Kind.
func (e *Engine) Optimize(ctx context.Context, q Query) (*Result, error) {
	if q.Mode != weighting.ModeBalanced && math.IsNaN(q.Alpha) {
		q.Alpha = 0
	}
	queryID := uuid.New().String()
	logger := e.logger.With(logging.QueryID(queryID), logging.Query(q.Name), logging.Mode(q.Mode.String()))

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	timer := logging.StartTimer(logger, "optimize", logging.String("filters", q.Filters.String()))
	res, err := e.optimize(ctx, q, logger)
	status := "success"
	pruned, paths := 0, 0
	if err != nil {
		status = KindOf(err).String()
		if IsRecoverable(err) {
			timer.EndWarn(err, logging.Kind(status))
		} else {
			timer.EndError(err, logging.Kind(status))
		}
	} else {
		res.QueryID = queryID
		pruned, paths = res.Pruned, len(res.Paths)
		timer.End(logging.Cost(res.Cost), logging.Count(paths), logging.Bool("cached", res.Cached))
	}
	if e.metrics != nil {
		e.metrics.RecordQuery(q.Mode.String(), status, timer.Elapsed(), pruned, paths)
	}
	return res, err
}

func (e *Engine) optimize(ctx context.Context, q Query, logger logging.Logger) (*Result, error) {
	if err := q.Validate(); err != nil {
		return nil, NewError(KindInvalidQuery, "validate").Query(q).Cause(err).Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, NewError(KindTimeout, "start").Query(q).Cause(err).Err()
	}

	if e.cache != nil {
		res, hit := e.cache.Get(q)
		if e.metrics != nil {
			e.metrics.RecordCacheLookup(hit)
			e.metrics.CacheEntries.Set(float64(e.cache.Len()))
		}
		if hit {
			return res, nil
		}
	}

	pruned, report, err := constraints.Prune(e.master, q.Filters, logger)
	if errors.Is(err, constraints.ErrNoMatch) {
		return nil, NewError(KindNoMatch, "prune").Query(q).
			Context("filters removed every %s node", report.Emptied).Cause(ErrNoMatch).Err()
	}
	if err != nil {
		return nil, NewError(KindData, "prune").Query(q).Cause(err).Err()
	}

	weighted, err := weighting.Assign(pruned, q.Mode, q.Alpha)
	if err != nil {
		return nil, NewError(KindInvalidQuery, "weight").Query(q).Cause(err).Err()
	}

	found, err := search(ctx, weighted, e.tolerance, logger)
	if err != nil {
		return nil, e.classify(q, weighted, err)
	}
	if found.rejected > 0 {
		logger.Warn("skipped malformed paths", logging.Count(found.rejected))
	}

	res := &Result{
		Query:    q,
		Cost:     found.cost,
		Subgraph: weighted,
		Pruned:   report.Removed,
		Paths:    make([][]string, len(found.candidates)),
		PathIDs:  make([][]processgraph.NodeID, len(found.candidates)),
		Details:  make([]Detail, len(found.candidates)),
	}
	for i, c := range found.candidates {
		res.Paths[i], res.PathIDs[i], res.Details[i] = c.labels, c.ids, c.detail
	}

	if e.cache != nil {
		if err := e.cache.Put(q, res); err != nil {
			logger.Warn("result not cached", logging.Error(err))
		}
	}
	return res, nil
}

func (e *Engine) classify(q Query, g *processgraph.Graph, err error) error {
	kind, detail := KindStructural, ""
	switch {
	case isContextErr(err):
		kind = KindTimeout
	case errors.Is(err, ErrNoCompletePath):
		kind, detail = KindNoMatch, "no hardness target survived pruning"
	case errors.Is(err, ErrNoReachablePath):
		kind = KindUnreachable
		detail = fmt.Sprintf("%d hardness targets, none reachable from source",
			len(g.NodesOfKind(processgraph.KindHardness)))
	case errors.Is(err, algorithms.ErrNegativeWeight):
		kind = KindData
	}
	b := NewError(kind, "search").Query(q).Cause(err)
	if detail != "" {
		b.Context("%s", detail)
	}
	return b.Err()
}
