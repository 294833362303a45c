package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-tempering/pkg/auth"
	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/metrics"
	"github.com/dd0wney/cluso-tempering/pkg/optimizer"
	"github.com/dd0wney/cluso-tempering/pkg/processgraph/graphtest"
)

const testSecret = "0123456789abcdef0123456789abcdef"

const hardQuery = `{"query_name":"hard","optimize_by":"time","filters":{"hardness_range":{"min":45,"max":55}}}`

const graphQuery = `{"query":"query($f: String) { optimize(name: \"hard\", optimizeBy: \"time\", filters: $f) { cost unit } graph { edges } }","variables":{"f":"{\"hardness_range\":{\"min\":45,\"max\":55}}"}}`

func setupTestServer(t *testing.T, tokens auth.TokenValidator) (*Server, *metrics.Registry) {
	t.Helper()

	reg := metrics.NewRegistry()
	engine, err := optimizer.NewEngine(graphtest.Build(t, graphtest.ScenarioRecords()),
		optimizer.WithLogger(logging.NewNopLogger()),
		optimizer.WithMetrics(reg),
		optimizer.WithCache(optimizer.NewCache(16)),
	)
	require.NoError(t, err)

	var cfg Config
	cfg.Engine = engine
	cfg.Metrics = reg
	cfg.Logger = logging.NewNopLogger()
	if tokens != nil {
		cfg.Tokens = tokens
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s, reg
}

func do(t *testing.T, s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&e), rr.Body.String())
	return e
}

func TestNewServer_RequiresEngine(t *testing.T) {
	_, err := NewServer(Config{})
	assert.ErrorIs(t, err, ErrNoEngine)
}

func TestOptimize_Success(t *testing.T) {
	s, _ := setupTestServer(t, nil)

	rr := do(t, s, http.MethodPost, "/v1/optimize", hardQuery, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	var resp struct {
		QueryID string     `json:"query_id"`
		Cost    float64    `json:"cost"`
		Paths   [][]string `json:"paths"`
		Unit    string     `json:"unit"`
		Flows   []string   `json:"flows"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 10.0, resp.Cost)
	assert.Equal(t, "s", resp.Unit)
	assert.NotEmpty(t, resp.QueryID)
	require.NotEmpty(t, resp.Paths)
	require.Len(t, resp.Flows, len(resp.Paths))
	assert.True(t, strings.HasPrefix(resp.Flows[0], "Start -> "), resp.Flows[0])
	assert.True(t, strings.HasSuffix(resp.Flows[0], "HRC"), resp.Flows[0])
}

func TestOptimize_ErrorMapping(t *testing.T) {
	s, _ := setupTestServer(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{
			name:   "no matching hardness",
			body:   `{"query_name":"none","optimize_by":"time","filters":{"hardness_range":{"min":99,"max":100}}}`,
			status: http.StatusNotFound,
			kind:   "no_match",
		},
		{
			name:   "unknown mode",
			body:   `{"query_name":"bad","optimize_by":"cost","filters":{}}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "alpha out of range",
			body:   `{"query_name":"bad","optimize_by":"balanced","alpha":2,"filters":{}}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			body:   `{"query_name":"bad","optimize_by":"time","filters":{},"extra":1}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "malformed json",
			body:   `{"query_name":`,
			status: http.StatusBadRequest,
		},
		{
			name:   "bad filter value",
			body:   `{"query_name":"bad","optimize_by":"time","filters":{"hardness_range":"hard"}}`,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, http.MethodPost, "/v1/optimize", tt.body, "")
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
			e := decodeError(t, rr)
			assert.Equal(t, tt.status, e.Code)
			assert.NotEmpty(t, e.Message)
			assert.Equal(t, tt.kind, e.Kind)
		})
	}
}

func TestOptimize_EmptyBody(t *testing.T) {
	s, _ := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/optimize", bytes.NewReader(nil))
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Message, "empty")
}

func TestOptimize_MethodNotAllowed(t *testing.T) {
	s, _ := setupTestServer(t, nil)

	rr := do(t, s, http.MethodGet, "/v1/optimize", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestLayout(t *testing.T) {
	s, _ := setupTestServer(t, nil)

	rr := do(t, s, http.MethodPost, "/v1/layout", hardQuery, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var viz struct {
		Title string           `json:"title"`
		Nodes []map[string]any `json:"nodes"`
		Edges []map[string]any `json:"edges"`
		Paths [][]float64      `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&viz))
	assert.True(t, strings.HasPrefix(viz.Title, "hard | time"), viz.Title)
	assert.NotEmpty(t, viz.Nodes)
	assert.NotEmpty(t, viz.Edges)
	assert.NotEmpty(t, viz.Paths)
}

func TestGraphStats(t *testing.T) {
	s, _ := setupTestServer(t, nil)

	// Warm the cache so stats carry lookups.
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/optimize", hardQuery, "").Code)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/optimize", hardQuery, "").Code)

	rr := do(t, s, http.MethodGet, "/v1/graph/stats", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp GraphStatsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	g := s.Engine().Graph()
	assert.Equal(t, g.EdgeCount(), resp.Edges)
	for kind, n := range g.CountByKind() {
		assert.Equal(t, n, resp.Nodes[kind.String()], kind.String())
	}
	require.NotNil(t, resp.Cache)
	assert.Equal(t, int64(1), resp.Cache.Hits)
	assert.Equal(t, 1, resp.Cache.Entries)
}

func TestGraphQL(t *testing.T) {
	s, _ := setupTestServer(t, nil)

	rr := do(t, s, http.MethodPost, "/v1/graphql", graphQuery, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp struct {
		Data struct {
			Optimize struct {
				Cost float64 `json:"cost"`
				Unit string  `json:"unit"`
			} `json:"optimize"`
			Graph struct {
				Edges int `json:"edges"`
			} `json:"graph"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Empty(t, resp.Errors)
	assert.Equal(t, 10.0, resp.Data.Optimize.Cost)
	assert.Equal(t, "s", resp.Data.Optimize.Unit)
	assert.Equal(t, s.Engine().Graph().EdgeCount(), resp.Data.Graph.Edges)

	rr = do(t, s, http.MethodGet, "/v1/graphql", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := setupTestServer(t, nil)

	for _, path := range []string{"/health", "/health/ready", "/health/live"} {
		rr := do(t, s, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr := do(t, s, http.MethodGet, "/health", "", "")
	var resp struct {
		Status string                    `json:"status"`
		Checks map[string]map[string]any `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Contains(t, resp.Checks, "graph")
	assert.Contains(t, resp.Checks, "cache")
	assert.Contains(t, resp.Checks, "memory")
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := setupTestServer(t, nil)

	do(t, s, http.MethodPost, "/v1/optimize", hardQuery, "")
	rr := do(t, s, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "tempering_queries_total")
	assert.Contains(t, body, `path="/v1/optimize"`)
}

func TestSecurityHeadersApplied(t *testing.T) {
	s, _ := setupTestServer(t, nil)

	rr := do(t, s, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestAuth(t *testing.T) {
	jwtManager, err := auth.NewJWTManager(testSecret, time.Hour)
	require.NoError(t, err)
	s, reg := setupTestServer(t, jwtManager)

	operator, err := jwtManager.GenerateToken("alice", auth.RoleOperator)
	require.NoError(t, err)
	viewer, err := jwtManager.GenerateToken("bob", auth.RoleViewer)
	require.NoError(t, err)

	other, err := auth.NewJWTManager(strings.Repeat("z", 32), time.Hour)
	require.NoError(t, err)
	forged, err := other.GenerateToken("mallory", auth.RoleOperator)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		status int
	}{
		{"operator optimizes", http.MethodPost, "/v1/optimize", hardQuery, operator, http.StatusOK},
		{"viewer cannot optimize", http.MethodPost, "/v1/optimize", hardQuery, viewer, http.StatusForbidden},
		{"missing token", http.MethodPost, "/v1/optimize", hardQuery, "", http.StatusUnauthorized},
		{"forged token", http.MethodPost, "/v1/optimize", hardQuery, forged, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/v1/graph/stats", "", "not-a-jwt", http.StatusUnauthorized},
		{"viewer reads stats", http.MethodGet, "/v1/graph/stats", "", viewer, http.StatusOK},
		{"operator queries graphql", http.MethodPost, "/v1/graphql", graphQuery, operator, http.StatusOK},
		{"viewer cannot query graphql", http.MethodPost, "/v1/graphql", graphQuery, viewer, http.StatusForbidden},
		{"graphql needs a token", http.MethodPost, "/v1/graphql", graphQuery, "", http.StatusUnauthorized},
		{"operator reads stats", http.MethodGet, "/v1/graph/stats", "", operator, http.StatusOK},
		{"health is public", http.MethodGet, "/health/live", "", "", http.StatusOK},
	}

	failures := 0
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, tt.method, tt.path, tt.body, tt.token)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
		if tt.status == http.StatusUnauthorized || tt.status == http.StatusForbidden {
			failures++
		}
	}

	var m dto.Metric
	require.NoError(t, reg.AuthFailuresTotal.Write(&m))
	assert.Equal(t, float64(failures), m.Counter.GetValue())
}

func TestSwapEngine(t *testing.T) {
	s, _ := setupTestServer(t, nil)
	assert.ErrorIs(t, s.SwapEngine(nil), ErrNoEngine)

	recs := graphtest.ScenarioRecords()
	next, err := optimizer.NewEngine(graphtest.Build(t, recs[:1]), optimizer.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	require.NoError(t, s.SwapEngine(next))
	assert.Same(t, next, s.Engine())

	rr := do(t, s, http.MethodGet, "/v1/graph/stats", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp GraphStatsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, next.Graph().EdgeCount(), resp.Edges)
	assert.Nil(t, resp.Cache, "new engine has no cache")
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		token, ok := bearerToken(req)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(optimizer.KindInvalidQuery))
	assert.Equal(t, http.StatusNotFound, statusFor(optimizer.KindNoMatch))
	assert.Equal(t, http.StatusNotFound, statusFor(optimizer.KindUnreachable))
	assert.Equal(t, http.StatusNotFound, statusFor(optimizer.KindStructural))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(optimizer.KindTimeout))
	assert.Equal(t, http.StatusInternalServerError, statusFor(optimizer.KindData))
	assert.Equal(t, http.StatusInternalServerError, statusFor(0))
}
