package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 23, cfg.Athlete.Age)
	assert.Equal(t, 197.0, cfg.Athlete.ReferenceHR)
	assert.Equal(t, 0.0, cfg.Athlete.MaxHR)
	assert.Equal(t, 3600, cfg.Analysis.LongRunSeconds)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Empty(t, cfg.Analysis.ActivityTypes)
	assert.Equal(t, SourceCSV, cfg.Data.Source)
	assert.Equal(t, filepath.Join("data", "activities.csv"), cfg.ActivitiesPath())
	assert.Equal(t, filepath.Join("data", "streams.csv"), cfg.StreamsPath())
	assert.Equal(t, filepath.Join("data", "metrics.csv"), cfg.MetricsPath())
	assert.False(t, cfg.Storage.SaveMetrics)

	require.NoError(t, cfg.Validate())
}

func TestMaxHR(t *testing.T) {
	tests := []struct {
		name     string
		athlete  AthleteConfig
		expected float64
	}{
		{"default age", AthleteConfig{Age: 23}, 197},
		{"older athlete", AthleteConfig{Age: 40}, 180},
		{"explicit override", AthleteConfig{Age: 40, MaxHR: 188}, 188},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Athlete: tt.athlete}
			assert.Equal(t, tt.expected, cfg.MaxHR())
		})
	}
}

func TestSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Athlete.Age = 30
	cfg.Athlete.ReferenceHR = 190
	cfg.Analysis.LongRunSeconds = 5400

	s := cfg.Settings()
	assert.Equal(t, 190.0, s.Zones.MaxHR)
	assert.Equal(t, 190.0, s.ReferenceHR)
	assert.Equal(t, 5400, s.LongRunSeconds)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(c *Config)
		errContains string
	}{
		{"valid config", func(c *Config) {}, ""},
		{"sqlite source", func(c *Config) { c.Data.Source = SourceSQLite }, ""},
		{"zero age", func(c *Config) { c.Athlete.Age = 0 }, "athlete.age"},
		{"implausible age", func(c *Config) { c.Athlete.Age = 150 }, "athlete.age"},
		{"negative max hr", func(c *Config) { c.Athlete.MaxHR = -1 }, "athlete.max_hr"},
		{"zero reference hr", func(c *Config) { c.Athlete.ReferenceHR = 0 }, "athlete.reference_hr"},
		{"zero long run", func(c *Config) { c.Analysis.LongRunSeconds = 0 }, "long_run_seconds"},
		{"no workers", func(c *Config) { c.Analysis.Workers = 0 }, "analysis.workers"},
		{"unknown source", func(c *Config) { c.Data.Source = "parquet" }, "data.source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"athlete": {"age": 35},
		"analysis": {"activity_types": ["Run", "TrailRun"]},
		"data": {"dir": "/tmp/hr"}
	}`), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 35, cfg.Athlete.Age)
	assert.Equal(t, 185.0, cfg.MaxHR())
	assert.Equal(t, 197.0, cfg.Athlete.ReferenceHR)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, []string{"Run", "TrailRun"}, cfg.Analysis.ActivityTypes)
	assert.Equal(t, SourceCSV, cfg.Data.Source)
	assert.Equal(t, filepath.Join("/tmp/hr", "metrics.csv"), cfg.MetricsPath())
}

func TestLoadFromMissing(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	assert.ErrorIs(t, err, ErrNoConfig)
}

func TestLoadFromInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Storage.SaveMetrics = true
	cfg.Storage.DatabasePath = "/var/lib/hr.db"

	require.NoError(t, SaveTo(path, &cfg))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, *loaded)

	db, err := loaded.DatabaseFile()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/hr.db", db)
}
