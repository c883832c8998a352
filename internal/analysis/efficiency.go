package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"hrmetrics/internal/store"
)

// DefaultReferenceHR is the heart rate the efficiency factor is normalised to
const DefaultReferenceHR = 197

// EfficiencyFactor normalises speed by relative effort:
// velocity / (heartrate / referenceHR). Higher is better.
func EfficiencyFactor(velocity, heartrate, referenceHR float64) float64 {
	return velocity / (heartrate / referenceHR)
}

// HalfEfficiency computes the mean efficiency factor and the sample standard
// deviation of heart rate for one half. Only samples with positive heart rate
// and positive velocity take part. A field is nil when it cannot be computed:
// both are nil for an empty filtered set, and the deviation needs two samples.
func HalfEfficiency(half []store.StreamPoint, referenceHR float64) store.HalfMetrics {
	var factors, hrs []float64
	for _, p := range half {
		if p.Heartrate == nil || p.VelocitySmooth == nil {
			continue
		}
		hr, vel := *p.Heartrate, *p.VelocitySmooth
		if hr <= 0 || vel <= 0 {
			continue
		}
		factors = append(factors, EfficiencyFactor(vel, hr, referenceHR))
		hrs = append(hrs, hr)
	}

	var m store.HalfMetrics
	if len(factors) == 0 {
		return m
	}

	if ef := stat.Mean(factors, nil); isFinite(ef) {
		m.AvgEfficiencyFactor = &ef
	}
	if len(hrs) > 1 {
		// stat.StdDev is the unbiased (n-1) estimator
		if sd := stat.StdDev(hrs, nil); isFinite(sd) {
			m.HRStdDev = &sd
		}
	}
	return m
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
