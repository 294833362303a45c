package constraints

import "errors"

var (
	ErrUnknownOperator = errors.New("unknown comparison operator")
	ErrUnknownFilter   = errors.New("unknown filter key")
	ErrInvalidFilter   = errors.New("invalid filter value")
)
