package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/optimizer"
	"github.com/dd0wney/cluso-tempering/pkg/queries"
	"github.com/dd0wney/cluso-tempering/pkg/validation"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding JSON response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// statusFor maps an optimizer failure kind to an HTTP status.
func statusFor(kind optimizer.Kind) int {
	switch kind {
	case optimizer.KindInvalidQuery:
		return http.StatusBadRequest
	case optimizer.KindNoMatch, optimizer.KindUnreachable, optimizer.KindStructural:
		return http.StatusNotFound
	case optimizer.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondQueryError writes an optimizer failure. Per-query failures carry
// their message and kind; anything else is logged and reported generically.
func (s *Server) respondQueryError(w http.ResponseWriter, err error) {
	kind := optimizer.KindOf(err)
	status := statusFor(kind)

	resp := ErrorResponse{Error: http.StatusText(status), Code: status}
	if status == http.StatusInternalServerError {
		s.logger.Error("optimize failed", logging.Error(err))
		resp.Message = "optimize failed"
	} else {
		resp.Message = err.Error()
	}
	if kind != 0 {
		resp.Kind = kind.String()
	}
	s.respondJSON(w, status, resp)
}

// requestDecoder decodes and validates an optimize request body.
// Call RespondError after the chain; it writes the first failure.
type requestDecoder struct {
	r          *http.Request
	w          http.ResponseWriter
	server     *Server
	err        error
	statusCode int
}

func (s *Server) newRequestDecoder(w http.ResponseWriter, r *http.Request) *requestDecoder {
	return &requestDecoder{r: r, w: w, server: s}
}

// DecodeJSON decodes the body into v. Unknown fields are rejected.
func (rd *requestDecoder) DecodeJSON(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	dec := json.NewDecoder(rd.r.Body)
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		rd.statusCode = http.StatusBadRequest
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			rd.statusCode = http.StatusRequestEntityTooLarge
			rd.err = fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			rd.err = errors.New("request body is empty")
		default:
			rd.err = fmt.Errorf("invalid request body: %w", err)
		}
	}
	return rd
}

// BuildQuery validates req and converts it into q.
func (rd *requestDecoder) BuildQuery(req *validation.OptimizeRequest, q *optimizer.Query) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	built, err := queries.Build(*req, rd.server.logger)
	if err != nil {
		rd.err = err
		rd.statusCode = http.StatusBadRequest
		return rd
	}
	*q = built
	return rd
}

// RespondError writes the error, if any, and reports whether it did.
func (rd *requestDecoder) RespondError() bool {
	if rd.err == nil {
		return false
	}
	rd.server.respondError(rd.w, rd.statusCode, rd.err.Error())
	return true
}
