package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrmetrics/internal/store"
)

func floatPtr(f float64) *float64 {
	return &f
}

// makeStreamPoint builds a moving sample
func makeStreamPoint(seq int, velocity, hr float64) store.StreamPoint {
	return store.StreamPoint{
		Seq:            seq,
		TimeOffset:     seq,
		VelocitySmooth: floatPtr(velocity),
		Heartrate:      floatPtr(hr),
		Moving:         true,
	}
}

func constantStream(n int, velocity, hr float64) []store.StreamPoint {
	streams := make([]store.StreamPoint, n)
	for i := range streams {
		streams[i] = makeStreamPoint(i, velocity, hr)
	}
	return streams
}

func TestEfficiencyFactor(t *testing.T) {
	tests := []struct {
		name        string
		velocity    float64
		heartrate   float64
		referenceHR float64
		expected    float64
	}{
		{
			name:        "at reference heart rate equals speed",
			velocity:    3.0,
			heartrate:   197,
			referenceHR: 197,
			expected:    3.0,
		},
		{
			name:        "below reference heart rate scales speed up",
			velocity:    3.0,
			heartrate:   140,
			referenceHR: 197,
			// 3.0 / (140/197)
			expected: 4.2214,
		},
		{
			name:        "custom reference",
			velocity:    4.0,
			heartrate:   160,
			referenceHR: 180,
			expected:    4.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EfficiencyFactor(tt.velocity, tt.heartrate, tt.referenceHR)
			assert.InDelta(t, tt.expected, got, 0.0001)
		})
	}
}

func TestHalfEfficiency(t *testing.T) {
	t.Run("empty half is undefined", func(t *testing.T) {
		m := HalfEfficiency(nil, DefaultReferenceHR)
		assert.Nil(t, m.AvgEfficiencyFactor)
		assert.Nil(t, m.HRStdDev)
	})

	t.Run("no positive velocity is undefined", func(t *testing.T) {
		half := constantStream(10, 0, 140)
		m := HalfEfficiency(half, DefaultReferenceHR)
		assert.Nil(t, m.AvgEfficiencyFactor)
		assert.Nil(t, m.HRStdDev)
	})

	t.Run("missing velocity samples are filtered", func(t *testing.T) {
		half := constantStream(4, 3.0, 140)
		half[1].VelocitySmooth = nil
		half[2].Heartrate = nil

		m := HalfEfficiency(half, DefaultReferenceHR)
		require.NotNil(t, m.AvgEfficiencyFactor)
		assert.InDelta(t, 3.0/(140.0/197.0), *m.AvgEfficiencyFactor, 1e-9)
		require.NotNil(t, m.HRStdDev)
		assert.Equal(t, 0.0, *m.HRStdDev)
	})

	t.Run("constant effort", func(t *testing.T) {
		m := HalfEfficiency(constantStream(5, 3.0, 140), DefaultReferenceHR)
		require.NotNil(t, m.AvgEfficiencyFactor)
		assert.InDelta(t, 4.2214, *m.AvgEfficiencyFactor, 0.0001)
		require.NotNil(t, m.HRStdDev)
		assert.Equal(t, 0.0, *m.HRStdDev)
	})

	t.Run("mean of per-sample factors", func(t *testing.T) {
		half := []store.StreamPoint{
			makeStreamPoint(0, 2.0, 100),
			makeStreamPoint(1, 4.0, 200),
			makeStreamPoint(2, 3.0, 150),
		}
		m := HalfEfficiency(half, 100)
		require.NotNil(t, m.AvgEfficiencyFactor)
		// 2/1, 4/2, 3/1.5 are all 2.0
		assert.InDelta(t, 2.0, *m.AvgEfficiencyFactor, 1e-9)
		require.NotNil(t, m.HRStdDev)
		// sample std dev of 100, 200, 150 is 50
		assert.InDelta(t, 50.0, *m.HRStdDev, 1e-9)
	})

	t.Run("single sample has no deviation", func(t *testing.T) {
		m := HalfEfficiency(constantStream(1, 3.0, 140), DefaultReferenceHR)
		require.NotNil(t, m.AvgEfficiencyFactor)
		assert.Nil(t, m.HRStdDev)
	})

	t.Run("values are finite", func(t *testing.T) {
		half := constantStream(3, 1e308, 1e-300)
		m := HalfEfficiency(half, DefaultReferenceHR)
		if m.AvgEfficiencyFactor != nil {
			assert.False(t, math.IsInf(*m.AvgEfficiencyFactor, 0))
		}
	})
}
