package constraints

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-tempering/pkg/logging"
)

const (
	keySteelType        = "steel_type"
	keyTimeRange        = "time_range"
	keyTemperatureRange = "temperature_range"
	keyHardnessRange    = "hardness_range"
)

var keyReplacer = strings.NewReplacer(" ", "_", "(", "", ")", "", "%", "", "wt", "")

// NormalizeKey folds a filter key or dataset column into its canonical form:
// "C (%wt)", "c" and " C " all become "c".
func NormalizeKey(key string) string {
	k := keyReplacer.Replace(strings.ToLower(strings.TrimSpace(key)))
	return strings.Trim(k, "_")
}

// FromMap parses the loose filter mapping of a query definition. Range
// entries missing a bound are ignored with a warning. Two keys that
// normalize to the same filter, such as "C" and "C (%wt)", are rejected.
func FromMap(raw map[string]any, logger logging.Logger) (Filters, error) {
	logger = logging.OrDefault(logger)
	var f Filters

	seen := make(map[string]string, len(raw))
	for _, rawKey := range slices.Sorted(maps.Keys(raw)) {
		value := raw[rawKey]
		key := NormalizeKey(rawKey)
		if first, dup := seen[key]; dup {
			return Filters{}, fmt.Errorf("%w: %q and %q both set %s", ErrInvalidFilter, first, rawKey, key)
		}
		seen[key] = rawKey

		switch key {
		case keySteelType:
			s, ok := value.(string)
			if !ok {
				return Filters{}, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidFilter, rawKey, value)
			}
			f.SteelType = &s

		case keyTimeRange, keyTemperatureRange, keyHardnessRange:
			r, ok, err := parseRange(rawKey, value)
			if err != nil {
				return Filters{}, err
			}
			if !ok {
				logger.Warn("ignoring range filter without min and max", logging.String("filter", rawKey))
				continue
			}
			switch key {
			case keyTimeRange:
				f.Time = &r
			case keyTemperatureRange:
				f.Temperature = &r
			default:
				f.Hardness = &r
			}

		default:
			m, ok := value.(map[string]any)
			if !ok || m["op"] == nil {
				return Filters{}, fmt.Errorf("%w: %q", ErrUnknownFilter, rawKey)
			}
			cf, err := parseComposition(rawKey, m)
			if err != nil {
				return Filters{}, err
			}
			if f.Composition == nil {
				f.Composition = make(map[string]CompositionFilter)
			}
			f.Composition[key] = cf
		}
	}
	return f, nil
}

func parseRange(name string, value any) (Range, bool, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return Range{}, false, fmt.Errorf("%w: %s must be a mapping with min and max", ErrInvalidFilter, name)
	}
	rawMin, hasMin := m["min"]
	rawMax, hasMax := m["max"]
	if !hasMin || !hasMax {
		return Range{}, false, nil
	}
	lo, err := ToFloat(rawMin)
	if err != nil {
		return Range{}, false, fmt.Errorf("%w: %s.min: %v", ErrInvalidFilter, name, err)
	}
	hi, err := ToFloat(rawMax)
	if err != nil {
		return Range{}, false, fmt.Errorf("%w: %s.max: %v", ErrInvalidFilter, name, err)
	}
	return Range{Min: lo, Max: hi}, true, nil
}

func parseComposition(name string, m map[string]any) (CompositionFilter, error) {
	opStr, ok := m["op"].(string)
	if !ok {
		return CompositionFilter{}, fmt.Errorf("%w: %s.op must be a string", ErrInvalidFilter, name)
	}
	op, err := ParseOp(opStr)
	if err != nil {
		return CompositionFilter{}, fmt.Errorf("%s: %w", name, err)
	}
	raw, ok := m["val"]
	if !ok {
		return CompositionFilter{}, fmt.Errorf("%w: %s.val is required", ErrInvalidFilter, name)
	}
	val, err := ToFloat(raw)
	if err != nil {
		return CompositionFilter{}, fmt.Errorf("%w: %s.val: %v", ErrInvalidFilter, name, err)
	}
	return CompositionFilter{Op: op, Val: val}, nil
}

// ToFloat converts the numeric types produced by JSON and YAML decoders.
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
