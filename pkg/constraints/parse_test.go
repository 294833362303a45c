package constraints

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-tempering/pkg/logging"
)

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"C (%wt)":           "c",
		"c":                 "c",
		" Cr ":              "cr",
		"Steel Type":        "steel_type",
		"hardness_range":    "hardness_range",
		"Temperature Range": "temperature_range",
	}
	for in, want := range tests {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromMap(t *testing.T) {
	f, err := FromMap(map[string]any{
		"steel_type":     "AISI 4140",
		"C (%wt)":        map[string]any{"op": ">=", "val": 0.3},
		"Cr":             map[string]any{"op": "<", "val": 2},
		"hardness_range": map[string]any{"min": 45, "max": 55.5},
		"time_range":     map[string]any{"min": 10},
	}, logging.NewNopLogger())
	require.NoError(t, err)

	require.NotNil(t, f.SteelType)
	assert.Equal(t, "AISI 4140", *f.SteelType)
	assert.Equal(t, map[string]CompositionFilter{
		"c":  {Op: OpGreaterEqual, Val: 0.3},
		"cr": {Op: OpLess, Val: 2},
	}, f.Composition)
	assert.Equal(t, &Range{Min: 45, Max: 55.5}, f.Hardness)
	assert.Nil(t, f.Time, "range without max is ignored")
	assert.Nil(t, f.Temperature)
	assert.Equal(t, `{steel_type="AISI 4140", c >= 0.3, cr < 2, hardness_range=[45, 55.5]}`, f.String())
}

func TestFromMapEmpty(t *testing.T) {
	f, err := FromMap(map[string]any{}, nil)
	require.NoError(t, err)
	assert.True(t, f.IsEmpty())
	assert.Equal(t, "{}", f.String())
	assert.Empty(t, f.Constraints())
}

func TestFromMapErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want error
	}{
		{"unknown key", map[string]any{"colour": "red"}, ErrUnknownFilter},
		{"composition without op", map[string]any{"C": map[string]any{"val": 1}}, ErrUnknownFilter},
		{"bad operator", map[string]any{"C": map[string]any{"op": "!=", "val": 1}}, ErrUnknownOperator},
		{"missing val", map[string]any{"C": map[string]any{"op": ">"}}, ErrInvalidFilter},
		{"non numeric val", map[string]any{"C": map[string]any{"op": ">", "val": []int{1}}}, ErrInvalidFilter},
		{"steel type not string", map[string]any{"steel_type": 4140}, ErrInvalidFilter},
		{"range not mapping", map[string]any{"time_range": 10}, ErrInvalidFilter},
		{"range bound not numeric", map[string]any{"time_range": map[string]any{"min": "a", "max": 2}}, ErrInvalidFilter},
		{"element given twice", map[string]any{
			"C":       map[string]any{"op": ">", "val": 0.1},
			"C (%wt)": map[string]any{"op": "<", "val": 0.9},
		}, ErrInvalidFilter},
		{"range given twice", map[string]any{
			"hardness_range":  map[string]any{"min": 40, "max": 50},
			"Hardness Range ": map[string]any{"min": 10, "max": 20},
		}, ErrInvalidFilter},
		{"steel type given twice", map[string]any{"steel_type": "a", "Steel Type": "b"}, ErrInvalidFilter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.raw, logging.NewNopLogger())
			if !errors.Is(err, tt.want) {
				t.Errorf("FromMap() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFromMapDuplicateMessageIsStable(t *testing.T) {
	raw := map[string]any{
		"c":       map[string]any{"op": ">", "val": 0.1},
		"C (%wt)": map[string]any{"op": "<", "val": 0.9},
		"C":       map[string]any{"op": "==", "val": 0.4},
	}
	_, first := FromMap(raw, logging.NewNopLogger())
	require.Error(t, first)
	for i := 0; i < 20; i++ {
		_, err := FromMap(raw, logging.NewNopLogger())
		assert.Equal(t, first.Error(), err.Error())
	}
	assert.Contains(t, first.Error(), `"C" and "C (%wt)"`)
}

func TestOpApply(t *testing.T) {
	assert.True(t, OpGreater.Apply(2, 1))
	assert.False(t, OpGreater.Apply(1, 1))
	assert.True(t, OpGreaterEqual.Apply(1, 1))
	assert.True(t, OpLess.Apply(0.1, 0.2))
	assert.True(t, OpLessEqual.Apply(0.2, 0.2))
	assert.True(t, OpEqual.Apply(0.4, 0.4))
	assert.False(t, OpEqual.Apply(0.4, 0.40000001))
	assert.False(t, Op("?").Apply(1, 1))
}

func TestToFloat(t *testing.T) {
	for _, v := range []any{3, int64(3), uint64(3), float32(3), 3.0, "3"} {
		got, err := ToFloat(v)
		require.NoError(t, err, "%T", v)
		assert.Equal(t, 3.0, got)
	}
	_, err := ToFloat(true)
	assert.Error(t, err)
}
