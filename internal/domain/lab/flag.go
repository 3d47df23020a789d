package lab

import (
	"strconv"
	"strings"
)

// parseRange parses a "min-max" reference range such as "4.5-11.0" or
// "70 - 110". Ranges in any other shape (e.g. "Negative", "< 5.7") are not
// machine-evaluable and return ok=false.
func parseRange(normalRange string) (min, max float64, ok bool) {
	parts := strings.SplitN(normalRange, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	min, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	max, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	if min > max {
		return 0, 0, false
	}
	return min, max, true
}

// DetermineFlag compares a result value against the reference range
// snapshotted on the order line. Non-numeric values and non-numeric ranges
// flag Normal; qualitative results rely on an explicit flag from the
// technician instead.
func DetermineFlag(value string, normalRange *string) string {
	if normalRange == nil || *normalRange == "" {
		return FlagNormal
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return FlagNormal
	}
	min, max, ok := parseRange(*normalRange)
	if !ok {
		return FlagNormal
	}
	switch {
	case v < min:
		return FlagLow
	case v > max:
		return FlagHigh
	default:
		return FlagNormal
	}
}
