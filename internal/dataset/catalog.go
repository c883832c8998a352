package dataset

import (
	"context"
	"fmt"
	"io"

	"hrmetrics/internal/store"
)

// Catalog is the read-only activity table keyed by activity ID
type Catalog struct {
	activities map[int64]store.Activity
	order      []int64
}

// LoadCatalog reads the activity table at path
func LoadCatalog(path string) (*Catalog, error) {
	f, err := openTable(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := ReadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return c, nil
}

// ReadCatalog parses an activity table. Only the id column is required;
// IDs must be unique.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	c := &Catalog{activities: make(map[int64]store.Activity)}

	err := readTable(r, []string{"id"}, func(h header, rec []string, _ int) error {
		a, err := parseActivity(h, rec)
		if err != nil {
			return err
		}
		if _, dup := c.activities[a.ID]; dup {
			return fmt.Errorf("duplicate activity id %d", a.ID)
		}
		c.activities[a.ID] = a
		c.order = append(c.order, a.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func parseActivity(h header, rec []string) (store.Activity, error) {
	var a store.Activity
	var err error

	if a.ID, err = parseID(h.get(rec, "id")); err != nil {
		return a, fmt.Errorf("id: %w", err)
	}
	a.Name = h.get(rec, "name")
	a.Type = normalizeType(h.get(rec, "type"))

	if a.StartDate, err = parseTime(h.get(rec, "start_date")); err != nil {
		return a, fmt.Errorf("start_date: %w", err)
	}
	if a.MovingTime, err = parseSeconds(h.get(rec, "moving_time")); err != nil {
		return a, fmt.Errorf("moving_time: %w", err)
	}
	if a.ElapsedTime, err = parseSeconds(h.get(rec, "elapsed_time")); err != nil {
		return a, fmt.Errorf("elapsed_time: %w", err)
	}

	floats := []struct {
		col string
		dst *float64
	}{
		{"distance", &a.Distance},
		{"total_elevation_gain", &a.TotalElevationGain},
		{"average_speed", &a.AverageSpeed},
	}
	for _, f := range floats {
		if *f.dst, err = parseFloat(h.get(rec, f.col)); err != nil {
			return a, fmt.Errorf("%s: %w", f.col, err)
		}
	}

	if a.AverageHeartrate, err = parseOptionalFloat(h.get(rec, "average_heartrate")); err != nil {
		return a, fmt.Errorf("average_heartrate: %w", err)
	}
	if a.MaxHeartrate, err = parseOptionalFloat(h.get(rec, "max_heartrate")); err != nil {
		return a, fmt.Errorf("max_heartrate: %w", err)
	}

	return a, nil
}

// Activity returns the activity with the given ID; ok is false when unknown
func (c *Catalog) Activity(_ context.Context, id int64) (store.Activity, bool, error) {
	a, ok := c.activities[id]
	return a, ok, nil
}

// Activities returns all activities in file order
func (c *Catalog) Activities() []store.Activity {
	out := make([]store.Activity, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.activities[id])
	}
	return out
}

// Len returns the number of activities
func (c *Catalog) Len() int {
	return len(c.order)
}
