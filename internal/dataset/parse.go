package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// header maps lower-cased column names to their position
type header map[string]int

func newHeader(record []string) header {
	h := make(header, len(record))
	for i, name := range record {
		name = strings.TrimPrefix(name, "\ufeff")
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return h
}

// get returns the cell for column name, or "" when the column is absent
func (h header) get(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (h header) has(name string) bool {
	_, ok := h[name]
	return ok
}

// isNull reports whether a cell holds a missing value as written by pandas
func isNull(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "none", "null", "nat", "<na>":
		return true
	}
	return false
}

func parseOptionalFloat(s string) (*float64, error) {
	if isNull(s) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) {
		return nil, nil
	}
	return &v, nil
}

func parseFloat(s string) (float64, error) {
	v, err := parseOptionalFloat(s)
	if err != nil || v == nil {
		return 0, err
	}
	return *v, nil
}

// parseID accepts "123" as well as the "123.0" pandas writes for float columns
func parseID(s string) (int64, error) {
	if isNull(s) {
		return 0, errors.New("missing id")
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("id %q is not an integer", s)
	}
	return int64(f), nil
}

// parseSeconds accepts plain seconds ("3600", "3600.0"), clock durations
// ("1:00:00") and timedelta renderings ("0 days 01:00:00", "1 day, 2:03:04").
func parseSeconds(s string) (int, error) {
	if isNull(s) {
		return 0, nil
	}

	var days float64
	if i := strings.Index(s, "day"); i >= 0 {
		d, err := strconv.ParseFloat(strings.TrimSpace(s[:i]), 64)
		if err != nil {
			return 0, fmt.Errorf("parsing days in %q: %w", s, err)
		}
		days = d
		s = strings.TrimPrefix(s[i:], "days")
		s = strings.TrimPrefix(s, "day")
		s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), ","))
	}

	var secs float64
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		for i, unit := range []float64{3600, 60, 1} {
			v, err := strconv.ParseFloat(parts[i], 64)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", s, err)
			}
			secs += v * unit
		}
	} else if s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		secs = v
	}

	return int(math.Round(days*86400 + secs)), nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts RFC3339 and the space-separated form pandas writes.
// Timestamps without a zone are taken as UTC.
func parseTime(s string) (time.Time, error) {
	if isNull(s) {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// parseBool accepts Go and Python spellings as well as numeric flags
func parseBool(s string) (bool, error) {
	if isNull(s) {
		return false, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", s)
	}
	return f != 0, nil
}

// parseLatLng splits "[lat, lng]" into its two coordinates
func parseLatLng(s string) (lat, lng *float64, err error) {
	if isNull(s) {
		return nil, nil, nil
	}
	s = strings.Trim(s, "[]() ")
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("invalid latlng %q", s)
	}
	if lat, err = parseOptionalFloat(strings.TrimSpace(parts[0])); err != nil {
		return nil, nil, err
	}
	if lng, err = parseOptionalFloat(strings.TrimSpace(parts[1])); err != nil {
		return nil, nil, err
	}
	return lat, lng, nil
}

// normalizeType unwraps values such as "root='Run'" into "Run"
func normalizeType(s string) string {
	s = strings.TrimPrefix(s, "root=")
	return strings.Trim(s, `'"`)
}
