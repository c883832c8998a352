package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"hrmetrics/internal/analysis"
)

// Data sources for the catalog and streams
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

// Config represents the application configuration
type Config struct {
	Athlete  AthleteConfig  `json:"athlete"`
	Analysis AnalysisConfig `json:"analysis"`
	Data     DataConfig     `json:"data"`
	Storage  StorageConfig  `json:"storage"`
}

// AthleteConfig holds athlete-specific settings
type AthleteConfig struct {
	Age         int     `json:"age"`
	MaxHR       float64 `json:"max_hr"` // overrides 220 - age when > 0
	ReferenceHR float64 `json:"reference_hr"`
}

// AnalysisConfig tunes the metrics step
type AnalysisConfig struct {
	LongRunSeconds int      `json:"long_run_seconds"`
	Workers        int      `json:"workers"`
	ActivityTypes  []string `json:"activity_types,omitempty"` // empty means all
}

// DataConfig locates the input and output tables
type DataConfig struct {
	Source         string `json:"source"`
	Dir            string `json:"dir"`
	ActivitiesFile string `json:"activities_file"`
	StreamsFile    string `json:"streams_file"`
	MetricsFile    string `json:"metrics_file"`
}

// StorageConfig holds the SQLite settings
type StorageConfig struct {
	DatabasePath string `json:"database_path"` // defaults to ~/.hrmetrics/data.db
	SaveMetrics  bool   `json:"save_metrics"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Athlete: AthleteConfig{
			Age:         analysis.DefaultAge,
			ReferenceHR: analysis.DefaultReferenceHR,
		},
		Analysis: AnalysisConfig{
			LongRunSeconds: analysis.DefaultLongRunSeconds,
			Workers:        4,
		},
		Data: DataConfig{
			Source:         SourceCSV,
			Dir:            "data",
			ActivitiesFile: "activities.csv",
			StreamsFile:    "streams.csv",
			MetricsFile:    "metrics.csv",
		},
	}
}

// Load reads the configuration from ~/.hrmetrics/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration at path
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills missing values
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Athlete.Age == 0 {
		c.Athlete.Age = defaults.Athlete.Age
	}
	if c.Athlete.ReferenceHR == 0 {
		c.Athlete.ReferenceHR = defaults.Athlete.ReferenceHR
	}
	if c.Analysis.LongRunSeconds == 0 {
		c.Analysis.LongRunSeconds = defaults.Analysis.LongRunSeconds
	}
	if c.Analysis.Workers == 0 {
		c.Analysis.Workers = defaults.Analysis.Workers
	}
	if c.Data.Source == "" {
		c.Data.Source = defaults.Data.Source
	}
	if c.Data.Dir == "" {
		c.Data.Dir = defaults.Data.Dir
	}
	if c.Data.ActivitiesFile == "" {
		c.Data.ActivitiesFile = defaults.Data.ActivitiesFile
	}
	if c.Data.StreamsFile == "" {
		c.Data.StreamsFile = defaults.Data.StreamsFile
	}
	if c.Data.MetricsFile == "" {
		c.Data.MetricsFile = defaults.Data.MetricsFile
	}
}

// SaveTo writes the configuration to path
func SaveTo(path string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Analysis.ActivityTypes = []string{"Run"}

	return SaveTo(path, &example)
}

// Validate checks that the settings are usable
func (c *Config) Validate() error {
	if c.Athlete.Age <= 0 || c.Athlete.Age >= 120 {
		return fmt.Errorf("athlete.age must be between 1 and 119, got %d", c.Athlete.Age)
	}
	if c.Athlete.MaxHR < 0 {
		return fmt.Errorf("athlete.max_hr must not be negative, got %v", c.Athlete.MaxHR)
	}
	if c.Athlete.ReferenceHR <= 0 {
		return fmt.Errorf("athlete.reference_hr must be positive, got %v", c.Athlete.ReferenceHR)
	}
	if c.Analysis.LongRunSeconds <= 0 {
		return fmt.Errorf("analysis.long_run_seconds must be positive, got %d", c.Analysis.LongRunSeconds)
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be at least 1, got %d", c.Analysis.Workers)
	}
	if c.Data.Source != SourceCSV && c.Data.Source != SourceSQLite {
		return fmt.Errorf("data.source must be %q or %q, got %q", SourceCSV, SourceSQLite, c.Data.Source)
	}
	return nil
}

// MaxHR returns the configured maximum heart rate, or 220 - age
func (c *Config) MaxHR() float64 {
	if c.Athlete.MaxHR > 0 {
		return c.Athlete.MaxHR
	}
	return analysis.ZonesForAge(c.Athlete.Age).MaxHR
}

// Settings builds the calibration passed to the metrics computation
func (c *Config) Settings() analysis.Settings {
	return analysis.Settings{
		Zones:          analysis.HRZones{MaxHR: c.MaxHR()},
		ReferenceHR:    c.Athlete.ReferenceHR,
		LongRunSeconds: c.Analysis.LongRunSeconds,
	}
}

// ActivitiesPath returns the activity table location
func (c *Config) ActivitiesPath() string {
	return filepath.Join(c.Data.Dir, c.Data.ActivitiesFile)
}

// StreamsPath returns the stream table location
func (c *Config) StreamsPath() string {
	return filepath.Join(c.Data.Dir, c.Data.StreamsFile)
}

// MetricsPath returns the output table location
func (c *Config) MetricsPath() string {
	return filepath.Join(c.Data.Dir, c.Data.MetricsFile)
}

// DatabaseFile returns the SQLite database location
func (c *Config) DatabaseFile() (string, error) {
	if c.Storage.DatabasePath != "" {
		return c.Storage.DatabasePath, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data.db"), nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".hrmetrics"), nil
}
