// Package api exposes the optimizer over HTTP.
//
// Routes:
//
//	POST /v1/optimize     run one query (operator)
//	POST /v1/layout       run one query and return the layered layout (operator)
//	GET  /v1/graph/stats  master graph summary (viewer or operator)
//	POST /v1/graphql      read-only GraphQL over results and graph stats (operator)
//	GET  /health          aggregate health
//	GET  /health/ready    readiness
//	GET  /health/live     liveness
//	GET  /metrics         Prometheus exposition
//
// When no token validator is configured every route is open.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-tempering/pkg/api/middleware"
	"github.com/dd0wney/cluso-tempering/pkg/auth"
	"github.com/dd0wney/cluso-tempering/pkg/graphql"
	"github.com/dd0wney/cluso-tempering/pkg/health"
	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/metrics"
	"github.com/dd0wney/cluso-tempering/pkg/optimizer"
	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
	"github.com/dd0wney/cluso-tempering/pkg/visualization"
)

// ErrNoEngine is returned by NewServer without an engine.
var ErrNoEngine = errors.New("api: engine is required")

// Config wires a Server. Only Engine is required.
type Config struct {
	Engine  *optimizer.Engine
	Metrics *metrics.Registry
	// Tokens guards the /v1 routes. Nil leaves them open.
	Tokens auth.TokenValidator
	Logger logging.Logger
	// Layout positions nodes for /v1/layout. Defaults to the layered layout.
	Layout       visualization.Layout
	MaxBodyBytes int64
	// RateLimit applies to POST routes. Nil disables limiting.
	RateLimit  *middleware.RateLimitConfig
	TLSEnabled bool
}

// Server is the HTTP front end of one Engine.
type Server struct {
	engine    atomic.Pointer[optimizer.Engine]
	metrics   *metrics.Registry
	tokens    auth.TokenValidator
	logger    logging.Logger
	layout    visualization.Layout
	health    *health.HealthChecker
	limiter   *middleware.RateLimiter
	graphql   *graphql.Handler
	startTime time.Time
	handler   http.Handler
}

// NewServer builds the route table and middleware chain.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, ErrNoEngine
	}

	s := &Server{
		metrics:   cfg.Metrics,
		tokens:    cfg.Tokens,
		logger:    logging.OrDefault(cfg.Logger).With(logging.Component("api")),
		layout:    cfg.Layout,
		health:    health.NewHealthChecker(),
		startTime: time.Now(),
	}
	s.engine.Store(cfg.Engine)
	if s.layout == nil {
		s.layout = visualization.NewLayeredLayout(visualization.DefaultLayoutConfig())
	}
	if cfg.RateLimit != nil {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit, s.logger)
	}
	s.registerHealthChecks()

	schema, err := graphql.NewSchema(s.Engine, s.logger)
	if err != nil {
		return nil, fmt.Errorf("api: graphql schema: %w", err)
	}
	s.graphql = graphql.NewHandler(schema, s.logger)

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	// Metrics wraps the mux directly so route patterns resolve.
	var h http.Handler = mux
	h = middleware.PanicRecovery(s.logger)(h)
	if s.metrics != nil {
		h = middleware.Metrics(s.metrics)(h)
	}
	h = middleware.BodySizeLimit(cfg.MaxBodyBytes)(h)
	h = middleware.SecurityHeaders(&middleware.SecurityHeadersConfig{TLSEnabled: cfg.TLSEnabled})(h)
	h = middleware.Logging(s.logger, middleware.GetRequestID)(h)
	h = middleware.RequestID()(h)
	s.handler = h

	return s, nil
}

// Engine returns the engine currently serving requests.
func (s *Server) Engine() *optimizer.Engine {
	return s.engine.Load()
}

// SwapEngine replaces the serving engine, e.g. after a dataset reload.
// In-flight requests finish on the engine they started with.
func (s *Server) SwapEngine(e *optimizer.Engine) error {
	if e == nil {
		return ErrNoEngine
	}
	s.engine.Store(e)
	s.logger.Info("engine swapped", logging.Count(e.Graph().Len()))
	return nil
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) setupRoutes(mux *http.ServeMux) {
	limit := middleware.RateLimit(s.limiter, middleware.RemoteIP)

	mux.Handle("POST /v1/optimize", limit(s.requireRole(auth.RoleOperator)(http.HandlerFunc(s.handleOptimize))))
	mux.Handle("POST /v1/layout", limit(s.requireRole(auth.RoleOperator)(http.HandlerFunc(s.handleLayout))))
	mux.Handle("GET /v1/graph/stats", s.requireRole(auth.RoleViewer, auth.RoleOperator)(http.HandlerFunc(s.handleGraphStats)))
	mux.Handle("POST /v1/graphql", limit(s.requireRole(auth.RoleOperator)(s.graphql)))

	mux.HandleFunc("GET /health", s.health.HTTPHandler())
	mux.HandleFunc("GET /health/ready", s.health.ReadinessHandler())
	mux.HandleFunc("GET /health/live", s.health.LivenessHandler())

	if s.metrics != nil {
		prom := promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{})
		mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
			s.metrics.UpdateSystemMetrics(s.startTime)
			prom.ServeHTTP(w, r)
		})
	}
}

func (s *Server) registerHealthChecks() {
	graphCheck := health.GraphCheck(func() *processgraph.Graph { return s.Engine().Graph() })
	s.health.RegisterCheck("graph", graphCheck)
	s.health.RegisterReadinessCheck("graph", graphCheck)
	s.health.RegisterLivenessCheck("alive", func() health.Check {
		return health.Check{Name: "alive", Status: health.StatusHealthy}
	})
	s.health.RegisterCheck("memory", health.MemoryCheck(health.RuntimeMemory))

	s.health.RegisterCheck("cache", health.CacheCheck(func() (int, int64, int64) {
		c := s.Engine().Cache()
		if c == nil {
			return 0, 0, 0
		}
		hits, misses := c.Stats()
		return c.Len(), hits, misses
	}))
}
