package vitals

import (
	"math"

	"github.com/hms/hms/internal/domain/lab"
)

// refRange is a fixed adult reference band. Values outside [CritLow,
// CritHigh] are flagged Critical; outside [Low, High] they are flagged
// Low or High.
type refRange struct {
	Low, High         float64
	CritLow, CritHigh float64
}

// Adult reference ranges. Pediatric ranges are out of scope.
var referenceRanges = map[string]refRange{
	"temperature": {Low: 36.1, High: 37.2, CritLow: 35.0, CritHigh: 39.5},
	"pulse":       {Low: 60, High: 100, CritLow: 40, CritHigh: 130},
	"respRate":    {Low: 12, High: 20, CritLow: 8, CritHigh: 30},
	"systolic":    {Low: 90, High: 120, CritLow: 70, CritHigh: 180},
	"diastolic":   {Low: 60, High: 80, CritLow: 40, CritHigh: 120},
	"spo2":        {Low: 95, High: 100, CritLow: 90, CritHigh: 101},
	"bmi":         {Low: 18.5, High: 24.9, CritLow: 13, CritHigh: 40},
}

func flagValue(name string, value float64) string {
	r, ok := referenceRanges[name]
	if !ok {
		return lab.FlagNormal
	}
	switch {
	case value <= r.CritLow || value >= r.CritHigh:
		return lab.FlagCritical
	case value < r.Low:
		return lab.FlagLow
	case value > r.High:
		return lab.FlagHigh
	}
	return lab.FlagNormal
}

// Assess derives BMI, flags every recorded measurement against the adult
// reference ranges and rolls up IsAbnormal.
func Assess(v *VitalSigns) {
	if v.WeightKg != nil && v.HeightCm != nil && *v.HeightCm > 0 {
		m := *v.HeightCm / 100
		bmi := math.Round(*v.WeightKg/(m*m)*10) / 10
		v.BMI = &bmi
	}

	v.Flags = make(map[string]string)
	measurements := map[string]*float64{
		"temperature": v.Temperature,
		"pulse":       v.Pulse,
		"respRate":    v.RespRate,
		"systolic":    v.Systolic,
		"diastolic":   v.Diastolic,
		"spo2":        v.SpO2,
		"bmi":         v.BMI,
	}
	v.IsAbnormal = false
	for name, val := range measurements {
		if val == nil {
			continue
		}
		flag := flagValue(name, *val)
		v.Flags[name] = flag
		if flag != lab.FlagNormal {
			v.IsAbnormal = true
		}
	}
}
