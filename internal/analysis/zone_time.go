package analysis

import "hrmetrics/internal/store"

// ZoneDistribution is the time-in-zone breakdown of a cleaned stream
type ZoneDistribution struct {
	// Samples per zone; index 0 is Zone 1. Unvisited zones stay zero.
	Time [store.NumZones]int
	// Positions whose zone differs from the preceding sample.
	// The first sample always counts.
	Transitions int
}

// AggregateZones counts samples per zone and zone changes across the whole stream.
// Samples without heart rate are ignored.
func AggregateZones(streams []store.StreamPoint, zones HRZones) ZoneDistribution {
	var dist ZoneDistribution
	var prev Zone

	for _, p := range streams {
		zone, ok := zones.ZoneOf(p)
		if !ok {
			continue
		}
		dist.Time[zone.Index()]++
		if zone != prev {
			dist.Transitions++
		}
		prev = zone
	}

	return dist
}

// Total returns the number of classified samples
func (d ZoneDistribution) Total() int {
	total := 0
	for _, n := range d.Time {
		total += n
	}
	return total
}
