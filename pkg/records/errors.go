package records

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoRecords      = errors.New("dataset contains no records")
	ErrMissingColumns = errors.New("required columns missing")
	ErrUnsupportedURI = errors.New("unsupported dataset location")
)

// ColumnError reports which required columns a header lacks.
type ColumnError struct {
	Missing   []string
	Available []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%v: %s (available: %s)", ErrMissingColumns,
		strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
}

func (e *ColumnError) Unwrap() error {
	return ErrMissingColumns
}
