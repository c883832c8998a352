package dataset

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"

	"hrmetrics/internal/store"
)

// StreamTable is the read-only per-second sample table grouped by activity.
// Samples keep the order in which they appear in the file.
type StreamTable struct {
	byActivity map[int64][]store.StreamPoint
	order      []int64
	rows       int
}

// LoadStreams reads the stream table at path
func LoadStreams(path string) (*StreamTable, error) {
	f, err := openTable(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadStreams(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return t, nil
}

// ReadStreams parses a stream table. Only activity_id is required; sensor
// columns may be absent or empty, which leaves the matching field nil.
func ReadStreams(r io.Reader) (*StreamTable, error) {
	t := &StreamTable{byActivity: make(map[int64][]store.StreamPoint)}

	err := readTable(r, []string{"activity_id"}, func(h header, rec []string, _ int) error {
		id, err := parseID(h.get(rec, "activity_id"))
		if err != nil {
			return fmt.Errorf("activity_id: %w", err)
		}

		seq := len(t.byActivity[id])
		p, err := parseStreamPoint(h, rec, id, seq)
		if err != nil {
			return err
		}

		if seq == 0 {
			t.order = append(t.order, id)
		}
		t.byActivity[id] = append(t.byActivity[id], p)
		t.rows++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func parseStreamPoint(h header, rec []string, activityID int64, seq int) (store.StreamPoint, error) {
	p := store.StreamPoint{
		ActivityID: activityID,
		Seq:        seq,
		TimeOffset: seq,
	}

	if h.has("time") {
		offset, err := parseOptionalFloat(h.get(rec, "time"))
		if err != nil {
			return p, fmt.Errorf("time: %w", err)
		}
		if offset != nil {
			p.TimeOffset = int(math.Round(*offset))
		}
	}

	var err error
	if p.Lat, p.Lng, err = parseLatLng(h.get(rec, "latlng")); err != nil {
		return p, fmt.Errorf("latlng: %w", err)
	}

	optional := []struct {
		col string
		dst **float64
	}{
		{"distance", &p.Distance},
		{"altitude", &p.Altitude},
		{"velocity_smooth", &p.VelocitySmooth},
		{"heartrate", &p.Heartrate},
		{"cadence", &p.Cadence},
		{"watts", &p.Watts},
		{"temp", &p.Temp},
		{"grade_smooth", &p.GradeSmooth},
	}
	for _, o := range optional {
		if *o.dst, err = parseOptionalFloat(h.get(rec, o.col)); err != nil {
			return p, fmt.Errorf("%s: %w", o.col, err)
		}
	}

	if p.Moving, err = parseBool(h.get(rec, "moving")); err != nil {
		return p, fmt.Errorf("moving: %w", err)
	}

	return p, nil
}

// ActivityIDsWithHeartrate returns, in ascending order, the activities with
// at least one sample carrying heart rate data
func (t *StreamTable) ActivityIDsWithHeartrate(_ context.Context) ([]int64, error) {
	var ids []int64
	for id, points := range t.byActivity {
		for _, p := range points {
			if p.Heartrate != nil {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Streams returns the samples of one activity; nil for unknown activities
func (t *StreamTable) Streams(_ context.Context, activityID int64) ([]store.StreamPoint, error) {
	return t.byActivity[activityID], nil
}

// ActivityIDs returns the activities in order of first appearance
func (t *StreamTable) ActivityIDs() []int64 {
	return append([]int64(nil), t.order...)
}

// Rows returns the total number of samples
func (t *StreamTable) Rows() int {
	return t.rows
}
