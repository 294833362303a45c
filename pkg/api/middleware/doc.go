// Package middleware provides the HTTP middleware used by the tempering API server.
//
// Every middleware has the shape func(http.Handler) http.Handler and can be
// chained in any order:
//
//	handler := middleware.PanicRecovery(logger)(mux)
//	handler = middleware.Metrics(registry)(handler)
//	handler = middleware.Logging(logger, middleware.GetRequestID)(handler)
//	handler = middleware.RequestID()(handler)
//
// The request ID middleware should run outermost so every other layer sees
// the ID in the request context.
package middleware
