package table

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrmetrics/internal/store"
)

func floatPtr(f float64) *float64 {
	return &f
}

var start = time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)

func sampleMetrics() []store.ActivityMetrics {
	return []store.ActivityMetrics{
		{
			ActivityID:      1,
			Name:            "Tempo",
			Type:            "Run",
			StartDate:       start,
			IsLongRun:       true,
			CardiacDrift:    floatPtr(8),
			ZoneTime:        [store.NumZones]int{0, 0, 30, 30, 0},
			ZoneTransitions: 2,
			FirstHalf:       store.HalfMetrics{AvgEfficiencyFactor: floatPtr(3.94), HRStdDev: floatPtr(0)},
			SecondHalf:      store.HalfMetrics{AvgEfficiencyFactor: floatPtr(3.648148148148148), HRStdDev: floatPtr(0.5)},
		},
		{
			ActivityID:      2,
			Name:            "Stalled",
			Type:            "Run",
			StartDate:       start.Add(24 * time.Hour),
			ZoneTime:        [store.NumZones]int{0, 0, 60, 0, 0},
			ZoneTransitions: 1,
			FirstHalf:       store.HalfMetrics{AvgEfficiencyFactor: floatPtr(3.94)},
		},
	}
}

func TestNormalizeZeroFills(t *testing.T) {
	rows := Normalize(sampleMetrics())
	require.Len(t, rows, 2)

	want := Row{
		ActivityID:                   2,
		ActivityName:                 "Stalled",
		ActivityType:                 "Run",
		ActivityStartDate:            start.Add(24 * time.Hour),
		ZoneTime:                     [store.NumZones]int{0, 0, 60, 0, 0},
		ZoneTransitions:              1,
		FirstHalfAvgEfficiencyFactor: 3.94,
	}
	if diff := cmp.Diff(want, rows[1]); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	rows := Normalize(nil)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestRecordHasEveryColumn(t *testing.T) {
	for _, r := range Normalize(sampleMetrics()) {
		assert.Len(t, r.Record(), len(Columns))
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Normalize(sampleMetrics())))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(Columns, ","), lines[0])
	assert.Equal(t, "1,Tempo,Run,2024-06-01T07:00:00Z,true,8,2,0,0,30,30,0,3.94,0,3.648148148148148,0.5", lines[1])
	assert.Equal(t, "2,Stalled,Run,2024-06-02T07:00:00Z,false,0,1,0,0,60,0,0,3.94,0,0,0", lines[2])
}

func TestWriteCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "metrics.csv")
	rows := Normalize(sampleMetrics())

	require.NoError(t, WriteCSV(path, rows))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	if diff := cmp.Diff(rows, got); diff != "" {
		t.Errorf("ReadCSV() mismatch (-want +got):\n%s", diff)
	}

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteCSVEmptyReplacesStaleTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.csv")
	require.NoError(t, WriteCSV(path, Normalize(sampleMetrics())))
	require.NoError(t, WriteCSV(path, Normalize(nil)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(Columns, ",")+"\n", string(data))

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadCSVMissing(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "metrics.csv"))
	assert.ErrorIs(t, err, ErrNoMetricsTable)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		errPart string
	}{
		{"empty", "", "empty metrics table"},
		{"missing column", "activity_id,activity_name\n1,x\n", `missing column "activity_type"`},
		{
			"bad zone",
			strings.Join(Columns, ",") + "\n1,a,Run,,false,0,1,x,0,0,0,0,0,0,0,0\n",
			"line 2: zone_time_zone_1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}
