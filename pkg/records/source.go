package records

import (
	"context"
	"strings"
)

// Open loads a dataset from a CSV path or a postgres:// URL.
func Open(ctx context.Context, location, table string, cols Columns) (*Store, error) {
	if location == "" {
		return nil, ErrUnsupportedURI
	}
	if strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://") {
		src, err := NewPGSource(ctx, location, table)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return src.Load(ctx)
	}
	return LoadFile(location, cols)
}
