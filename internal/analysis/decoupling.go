package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"hrmetrics/internal/store"
)

// HalfAverages holds the mean heart rate and speed of one half
type HalfAverages struct {
	Heartrate float64 // bpm, 0 when no sample has heart rate
	Speed     float64 // m/s, 0 when no sample has velocity
}

// AverageHalf computes the mean heart rate and mean velocity of a half.
// Missing values are skipped, so each mean has its own sample count.
func AverageHalf(half []store.StreamPoint) HalfAverages {
	hr := make([]float64, 0, len(half))
	vel := make([]float64, 0, len(half))
	for _, p := range half {
		if p.Heartrate != nil {
			hr = append(hr, *p.Heartrate)
		}
		if p.VelocitySmooth != nil {
			vel = append(vel, *p.VelocitySmooth)
		}
	}

	var avg HalfAverages
	if len(hr) > 0 {
		avg.Heartrate = stat.Mean(hr, nil)
	}
	if len(vel) > 0 {
		avg.Speed = stat.Mean(vel, nil)
	}
	return avg
}

// CardiacDrift compares the heart rate change between halves with the speed change:
//
//	ratio = (hrSecond / hrFirst) / (speedFirst / speedSecond)
//	drift = (ratio - 1) * 100
//
// ok is false when the first half heart rate or either half speed is not positive.
func CardiacDrift(first, second []store.StreamPoint) (drift float64, ok bool) {
	a := AverageHalf(first)
	b := AverageHalf(second)

	if a.Heartrate <= 0 || a.Speed <= 0 || b.Speed <= 0 {
		return 0, false
	}

	ratio := (b.Heartrate / a.Heartrate) / (a.Speed / b.Speed)
	drift = (ratio - 1) * 100

	if math.IsNaN(drift) || math.IsInf(drift, 0) {
		return 0, false
	}
	return drift, true
}

// DriftAssessment returns a human-readable cardiac drift assessment
func DriftAssessment(drift float64) string {
	switch {
	case drift < -5:
		return "Negative split"
	case drift < 3:
		return "Excellent aerobic base"
	case drift < 5:
		return "Good aerobic fitness"
	case drift < 8:
		return "Developing aerobic base"
	case drift < 12:
		return "Needs more easy miles"
	default:
		return "Aerobic system needs work"
	}
}
