package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dd0wney/cluso-tempering/pkg/auth"
	"github.com/dd0wney/cluso-tempering/pkg/logging"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// ClaimsFromContext returns the caller's claims, if the request was authenticated.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return c, ok
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// requireRole admits requests whose bearer token carries one of roles.
// Without a token validator it admits everything.
func (s *Server) requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.tokens == nil {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				s.authFailed(w, r, http.StatusUnauthorized, "Missing bearer token", nil)
				return
			}

			claims, err := s.tokens.ValidateToken(r.Context(), token)
			if err != nil {
				msg := "Invalid token"
				if errors.Is(err, auth.ErrExpiredToken) {
					msg = "Token expired"
				}
				s.authFailed(w, r, http.StatusUnauthorized, msg, err)
				return
			}

			if !claims.Allows(roles...) {
				s.authFailed(w, r, http.StatusForbidden, "Role not permitted", auth.ErrForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) authFailed(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	if s.metrics != nil {
		s.metrics.RecordAuthFailure()
	}
	fields := []logging.Field{logging.Path(r.URL.Path), logging.Int("status", status)}
	if err != nil {
		fields = append(fields, logging.Error(err))
	}
	s.logger.Warn("authentication failed", fields...)
	s.respondError(w, status, msg)
}
