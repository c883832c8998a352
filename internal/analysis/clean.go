package analysis

import "hrmetrics/internal/store"

// CleanStream keeps the samples recorded while moving with a positive heart rate.
// Order is preserved; the input is not modified.
func CleanStream(streams []store.StreamPoint) []store.StreamPoint {
	cleaned := make([]store.StreamPoint, 0, len(streams))
	for _, p := range streams {
		if p.Moving && p.Heartrate != nil && *p.Heartrate > 0 {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}

// SplitHalves divides a stream into two contiguous halves.
// The first half holds len/2 samples; the second half gets the extra sample
// when the length is odd.
func SplitHalves(streams []store.StreamPoint) (first, second []store.StreamPoint) {
	mid := len(streams) / 2
	return streams[:mid], streams[mid:]
}

// HasHeartrate reports whether any sample carries heart rate data
func HasHeartrate(streams []store.StreamPoint) bool {
	for _, p := range streams {
		if p.Heartrate != nil {
			return true
		}
	}
	return false
}
