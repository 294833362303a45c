package optimizer

import (
	"errors"
	"fmt"
)

// Kind classifies optimizer failures.
type Kind int

const (
	KindData Kind = iota + 1
	KindNoMatch
	KindUnreachable
	KindStructural
	KindInvalidQuery
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data_error"
	case KindNoMatch:
		return "no_match"
	case KindUnreachable:
		return "unreachable"
	case KindStructural:
		return "structural_anomaly"
	case KindInvalidQuery:
		return "invalid_query"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Common sentinel errors
var (
	ErrNoMatch         = errors.New("no match for filters")
	ErrNoCompletePath  = errors.New("no complete path")
	ErrNoReachablePath = errors.New("no reachable path")
	ErrNoValidPath     = errors.New("no structurally valid path")
	ErrNoGraph         = errors.New("no graph loaded")
)

// QueryError provides structured error information for a failed query.
type QueryError struct {
	Kind    Kind   // Failure class
	Op      string // Pipeline stage (e.g. "prune", "search")
	Query   string // Query name, if any
	Filters string // Rendered filters
	Context string // Additional context
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Op)
	if e.Query != "" {
		msg += fmt.Sprintf(" query %q", e.Query)
	}
	if e.Filters != "" {
		msg += " filters " + e.Filters
	}
	if e.Context != "" {
		msg += fmt.Sprintf(" (%s)", e.Context)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chain support.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is matches a *QueryError target of the same Kind, so
// errors.Is(err, &QueryError{Kind: KindTimeout}) tests the class of err.
// Causes are still matched through Unwrap.
func (e *QueryError) Is(target error) bool {
	t, ok := target.(*QueryError)
	if !ok || t == nil {
		return false
	}
	return t.Kind == e.Kind
}

// ErrorBuilder provides a fluent interface for building QueryErrors.
type ErrorBuilder struct {
	err QueryError
}

// NewError creates a new error builder for kind at stage op.
func NewError(kind Kind, op string) *ErrorBuilder {
	return &ErrorBuilder{err: QueryError{Kind: kind, Op: op}}
}

// Query sets the query name and its rendered filters.
func (b *ErrorBuilder) Query(q Query) *ErrorBuilder {
	b.err.Query = q.Name
	b.err.Filters = q.Filters.String()
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(format string, args ...any) *ErrorBuilder {
	b.err.Context = fmt.Sprintf(format, args...)
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	e := b.err
	return &e
}

// KindOf returns the kind of a QueryError anywhere in err's chain, or 0.
func KindOf(err error) Kind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return 0
}

// IsNoMatch reports whether err is a no-match failure.
func IsNoMatch(err error) bool {
	return KindOf(err) == KindNoMatch
}

// IsUnreachable reports whether err is an unreachable-target failure.
func IsUnreachable(err error) bool {
	return KindOf(err) == KindUnreachable
}

// IsRecoverable reports whether err is a per-query failure that should not
// stop a batch.
func IsRecoverable(err error) bool {
	switch KindOf(err) {
	case KindNoMatch, KindUnreachable, KindStructural, KindInvalidQuery, KindTimeout:
		return true
	default:
		return false
	}
}
