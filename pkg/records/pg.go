package records

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool used by PGSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGSource loads records from a PostgreSQL table with columns
// id, steel, time_s, temperature_c, hardness_hrc and composition (jsonb).
type PGSource struct {
	db    Querier
	table string
	pool  *pgxpool.Pool
}

// NewPGSource connects to databaseURL and verifies the connection.
func NewPGSource(ctx context.Context, databaseURL, table string) (*PGSource, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.MaxConns = 4
	config.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	src := NewPGSourceFrom(pool, table)
	src.pool = pool
	return src, nil
}

// NewPGSourceFrom wraps an existing connection or pool.
func NewPGSourceFrom(db Querier, table string) *PGSource {
	if table == "" {
		table = "tempering_records"
	}
	return &PGSource{db: db, table: table}
}

// Close releases the pool when the source owns one
func (s *PGSource) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PGSource) selectSQL() string {
	return fmt.Sprintf(
		"SELECT steel, time_s, temperature_c, hardness_hrc, composition FROM %s ORDER BY id",
		pgx.Identifier{s.table}.Sanitize(),
	)
}

// Load reads every row in id order.
func (s *PGSource) Load(ctx context.Context) (*Store, error) {
	rows, err := s.db.Query(ctx, s.selectSQL())
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var recs []ProcessRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrNoRecords
	}
	return NewStore(recs), nil
}

// scanRecord maps one row. NULL numeric columns become NaN so the builder
// reports them instead of silently reading zero.
func scanRecord(row pgx.Row) (ProcessRecord, error) {
	var (
		steel           *string
		t, temp, hard   *float64
		compositionJSON []byte
	)
	if err := row.Scan(&steel, &t, &temp, &hard, &compositionJSON); err != nil {
		return ProcessRecord{}, fmt.Errorf("failed to scan record: %w", err)
	}

	rec := ProcessRecord{
		Time:        orNaN(t),
		Temperature: orNaN(temp),
		Hardness:    orNaN(hard),
		Composition: map[string]float64{},
	}
	if steel != nil {
		rec.Steel = *steel
	}
	if len(compositionJSON) > 0 {
		var comp map[string]*float64
		if err := json.Unmarshal(compositionJSON, &comp); err != nil {
			return ProcessRecord{}, fmt.Errorf("failed to unmarshal composition: %w", err)
		}
		for k, v := range comp {
			if v != nil {
				rec.Composition[k] = *v
			}
		}
	}
	return rec, nil
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
