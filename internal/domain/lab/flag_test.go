package lab

import "testing"

func TestDetermineFlag(t *testing.T) {
	rangeWBC := "4.5-11.0"
	rangeGlucose := "70 - 110"
	qualitative := "Negative"

	cases := []struct {
		name        string
		value       string
		normalRange *string
		want        string
	}{
		{"below range", "3.2", &rangeWBC, FlagLow},
		{"above range", "15.5", &rangeWBC, FlagHigh},
		{"within range", "7.0", &rangeWBC, FlagNormal},
		{"at lower bound", "4.5", &rangeWBC, FlagNormal},
		{"at upper bound", "11.0", &rangeWBC, FlagNormal},
		{"spaced range", "65", &rangeGlucose, FlagLow},
		{"non-numeric value", "Positive", &rangeWBC, FlagNormal},
		{"non-numeric range", "5.0", &qualitative, FlagNormal},
		{"no range", "5.0", nil, FlagNormal},
		{"value with whitespace", " 12.0 ", &rangeWBC, FlagHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetermineFlag(tc.value, tc.normalRange); got != tc.want {
				t.Errorf("DetermineFlag(%q) = %s, want %s", tc.value, got, tc.want)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	if _, _, ok := parseRange("11.0-4.5"); ok {
		t.Error("inverted range should not parse")
	}
	if _, _, ok := parseRange("4.5"); ok {
		t.Error("single value should not parse")
	}
	min, max, ok := parseRange("0.5-1.2")
	if !ok || min != 0.5 || max != 1.2 {
		t.Errorf("parseRange = %v %v %v", min, max, ok)
	}
}
