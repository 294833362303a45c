package records

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	steel           *string
	t, temp, hard   *float64
	compositionJSON []byte
	err             error
}

func (f fakeRow) Scan(dest ...any) error {
	if f.err != nil {
		return f.err
	}
	*dest[0].(**string) = f.steel
	*dest[1].(**float64) = f.t
	*dest[2].(**float64) = f.temp
	*dest[3].(**float64) = f.hard
	*dest[4].(*[]byte) = f.compositionJSON
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestScanRecord(t *testing.T) {
	rec, err := scanRecord(fakeRow{
		steel:           ptr("AISI 4140"),
		t:               ptr(3600.0),
		temp:            ptr(200.0),
		hard:            ptr(50.0),
		compositionJSON: []byte(`{"C": 0.4, "Cr": null}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "AISI 4140", rec.Steel)
	assert.Equal(t, 3600.0, rec.Time)
	assert.Equal(t, map[string]float64{"C": 0.4}, rec.Composition)
}

func TestScanRecordNulls(t *testing.T) {
	rec, err := scanRecord(fakeRow{steel: ptr("X"), temp: ptr(1.0), hard: ptr(2.0)})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(rec.Time))
	assert.Empty(t, rec.Composition)
}

func TestScanRecordErrors(t *testing.T) {
	_, err := scanRecord(fakeRow{err: errors.New("boom")})
	assert.ErrorContains(t, err, "failed to scan record")

	_, err = scanRecord(fakeRow{compositionJSON: []byte(`{bad`)})
	assert.ErrorContains(t, err, "failed to unmarshal composition")
}

func TestSelectSQLQuotesTable(t *testing.T) {
	src := NewPGSourceFrom(nil, `odd"name`)
	assert.Equal(t,
		`SELECT steel, time_s, temperature_c, hardness_hrc, composition FROM "odd""name" ORDER BY id`,
		src.selectSQL())
	assert.Equal(t, "tempering_records", NewPGSourceFrom(nil, "").table)
}
