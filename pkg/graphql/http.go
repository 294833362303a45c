package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-tempering/pkg/logging"
)

// Request is a GraphQL HTTP request body.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Response is a GraphQL HTTP response body.
type Response struct {
	Data   any     `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
}

// Error is one GraphQL error.
type Error struct {
	Message string `json:"message"`
}

// Handler executes GraphQL requests against a schema. Method routing and
// auth are left to the mux it is mounted on.
type Handler struct {
	schema graphql.Schema
	logger logging.Logger
}

// NewHandler creates a Handler for schema.
func NewHandler(schema graphql.Schema, logger logging.Logger) *Handler {
	return &Handler{schema: schema, logger: logging.OrDefault(logger)}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond(w, http.StatusBadRequest, Response{Errors: []Error{{Message: "invalid request body"}}})
		return
	}
	if req.Query == "" {
		h.respond(w, http.StatusBadRequest, Response{Errors: []Error{{Message: "query is required"}}})
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})

	resp := Response{Data: result.Data}
	if result.HasErrors() {
		resp.Errors = make([]Error, len(result.Errors))
		for i, err := range result.Errors {
			resp.Errors[i] = Error{Message: err.Message}
		}
	}
	h.respond(w, http.StatusOK, resp)
}

func (h *Handler) respond(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("encode graphql response", logging.Error(err))
	}
}
