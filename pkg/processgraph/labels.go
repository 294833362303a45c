package processgraph

import "strconv"

const (
	// Labels of the two singleton nodes.
	SourceLabel = "SOURCE"
	SinkLabel   = "SINK"
)

// FormatNumber renders v in plain decimal with the fewest digits that round-trip.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func steelLabel(name string) string {
	return "Steel: " + name
}

func timeLabel(v float64, row int) string {
	return "Time: " + FormatNumber(v) + " s | id:" + strconv.Itoa(row)
}

func temperatureLabel(v float64, row int) string {
	return "Temp: " + FormatNumber(v) + " C | id:" + strconv.Itoa(row)
}

func hardnessLabel(v float64) string {
	return "Hardness: " + FormatNumber(v) + " HRC"
}
