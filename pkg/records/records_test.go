package records

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Steel type, C (%wt),Cr (%wt),Initial hardness (HRC) - post quenching,Tempering time (s),Tempering temperature (ºC),Final hardness (HRC) - post tempering,Source
AISI 4140,0.40,1.0,55,3600,200,50,paper-a
AISI 4140,0.40,1.0,55,7200,400,45,paper-a
,,,,,,,
AISI 1045,0.45,,58,abc,300,40,paper-b
`

func TestLoadCSV(t *testing.T) {
	store, err := LoadCSV(strings.NewReader(sampleCSV), DefaultColumns())
	require.NoError(t, err)
	require.Equal(t, 3, store.Len())

	first := store.At(0)
	assert.Equal(t, 0, first.Row)
	assert.Equal(t, "AISI 4140", first.Steel)
	assert.Equal(t, 3600.0, first.Time)
	assert.Equal(t, 200.0, first.Temperature)
	assert.Equal(t, 50.0, first.Hardness)
	assert.Equal(t, map[string]float64{"C": 0.40, "Cr": 1.0}, first.Composition)

	third := store.At(2)
	assert.Equal(t, 2, third.Row, "blank rows are dropped before numbering")
	assert.True(t, math.IsNaN(third.Time))
	_, hasCr := third.Composition["Cr"]
	assert.False(t, hasCr, "empty composition cells are omitted")

	ok, reason := third.Valid()
	assert.False(t, ok)
	assert.Equal(t, "missing tempering time", reason)

	assert.Equal(t, []string{"C", "Cr"}, store.Elements())
}

func TestLoadCSVMissingColumns(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("Steel type,Tempering time (s)\nX,10\n"), DefaultColumns())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumns))

	var colErr *ColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Contains(t, colErr.Missing, "Tempering temperature (ºC)")
	assert.Contains(t, colErr.Missing, "Final hardness (HRC) - post tempering")
}

func TestLoadCSVEmpty(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(""), DefaultColumns())
	assert.ErrorIs(t, err, ErrNoRecords)

	header := "Steel type,Tempering time (s),Tempering temperature (ºC),Final hardness (HRC) - post tempering\n"
	_, err = LoadCSV(strings.NewReader(header), DefaultColumns())
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestValid(t *testing.T) {
	base := ProcessRecord{Steel: "X", Time: 10, Temperature: 200, Hardness: 50}
	ok, _ := base.Valid()
	assert.True(t, ok)

	tests := []struct {
		name   string
		mutate func(*ProcessRecord)
		reason string
	}{
		{"blank steel", func(r *ProcessRecord) { r.Steel = "" }, "missing steel identifier"},
		{"negative time", func(r *ProcessRecord) { r.Time = -1 }, "negative tempering time"},
		{"inf temperature", func(r *ProcessRecord) { r.Temperature = math.Inf(1) }, "missing tempering temperature"},
		{"nan hardness", func(r *ProcessRecord) { r.Hardness = math.NaN() }, "missing hardness"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			ok, reason := r.Valid()
			assert.False(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestNewStoreCopies(t *testing.T) {
	comp := map[string]float64{"C": 0.2}
	recs := []ProcessRecord{{Row: 42, Steel: "X", Composition: comp, Time: 1, Temperature: 2, Hardness: 3}}
	store := NewStore(recs)

	comp["C"] = 9
	recs[0].Steel = "Y"

	assert.Equal(t, 0, store.At(0).Row)
	assert.Equal(t, "X", store.At(0).Steel)
	assert.Equal(t, 0.2, store.At(0).Composition["C"])
}

func TestElementSymbol(t *testing.T) {
	cols := DefaultColumns()
	assert.Equal(t, "Mn", cols.ElementSymbol("Mn (%wt)"))
	assert.Equal(t, "Mo", cols.ElementSymbol(" Mo(%wt) "))
}
