package analysis

import (
	"fmt"
	"math"

	"hrmetrics/internal/store"
)

// Zone is an ordinal heart rate zone, Zone1 through Zone5
type Zone int

const (
	Zone1 Zone = iota + 1
	Zone2
	Zone3
	Zone4
	Zone5
)

// String returns the zone label, e.g. "Zone 2"
func (z Zone) String() string {
	return fmt.Sprintf("Zone %d", int(z))
}

// Index returns the zero-based position of z in a zone array
func (z Zone) Index() int {
	return int(z) - 1
}

// ZoneBand is a half-open band [MinPct, MaxPct) of max heart rate
type ZoneBand struct {
	Zone   Zone
	MinPct float64
	MaxPct float64
}

// StandardZones partitions the heart rate domain into the five training zones.
// Bands are contiguous: each MinPct equals the previous band's MaxPct.
var StandardZones = [store.NumZones]ZoneBand{
	{Zone: Zone1, MinPct: 0, MaxPct: 0.60},
	{Zone: Zone2, MinPct: 0.60, MaxPct: 0.725},
	{Zone: Zone3, MinPct: 0.725, MaxPct: 0.80},
	{Zone: Zone4, MinPct: 0.80, MaxPct: 0.90},
	{Zone: Zone5, MinPct: 0.90, MaxPct: math.Inf(1)},
}

// Age-predicted maximum heart rate: 220 - age
const (
	MaxHRFormulaBase = 220
	DefaultAge       = 23
)

// HRZones classifies heart rates against an athlete's maximum heart rate
type HRZones struct {
	MaxHR float64
}

// ZonesForAge returns zones using the age-predicted maximum heart rate
func ZonesForAge(age int) HRZones {
	return HRZones{MaxHR: float64(MaxHRFormulaBase - age)}
}

// DefaultZones returns zones for DefaultAge
func DefaultZones() HRZones {
	return ZonesForAge(DefaultAge)
}

// Classify maps a heart rate to its zone
func (z HRZones) Classify(hr float64) Zone {
	for _, band := range StandardZones {
		if hr < band.MaxPct*z.MaxHR {
			return band.Zone
		}
	}
	return Zone5
}

// ZoneOf classifies a stream point; ok is false when the point has no heart rate
func (z HRZones) ZoneOf(p store.StreamPoint) (zone Zone, ok bool) {
	if p.Heartrate == nil {
		return 0, false
	}
	return z.Classify(*p.Heartrate), true
}
