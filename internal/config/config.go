// Package config loads the application configuration from environment
// variables.
package config

import (
	"os"
	"strconv"

	"lcsweep/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Search   SearchConfig
	Tuning   TuningConfig
	Paths    PathConfig
}

// DatabaseConfig holds broker database settings. The URL is only required
// when the distributed broker is selected.
type DatabaseConfig struct {
	URL string
}

// SearchConfig holds systematic search settings
type SearchConfig struct {
	Connector  string
	Job        string
	PassMethod string
	UnfoundLim int
	SaveCoords bool
	TimeoutSec int
	Broker     string
}

// TuningConfig holds parameter estimation settings
type TuningConfig struct {
	SplitRatio float64
	Shuffle    bool
	Seed       int64
	Parallel   int
}

// PathConfig holds file system paths
type PathConfig struct {
	StarsDir   string
	LedgerDir  string
	ReportFile string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Search: SearchConfig{
			Connector:  getEnvOrDefault("CONNECTOR", "FileManager"),
			Job:        getEnvOrDefault("JOB_ID", ""),
			PassMethod: getEnvOrDefault("PASS_METHOD", "mean"),
			UnfoundLim: getEnvIntOrDefault("UNFOUND_LIMIT", 150),
			SaveCoords: getEnvBoolOrDefault("SAVE_COORDS", false),
			TimeoutSec: getEnvIntOrDefault("WAIT_TIMEOUT_SEC", 3600),
			Broker:     getEnvOrDefault("BROKER", "memory"),
		},
		Tuning: TuningConfig{
			SplitRatio: getEnvFloatOrDefault("SPLIT_RATIO", 0.7),
			Shuffle:    getEnvBoolOrDefault("SHUFFLE", true),
			Seed:       int64(getEnvIntOrDefault("SEED", 0)),
			Parallel:   getEnvIntOrDefault("PARALLEL", 0),
		},
		Paths: PathConfig{
			StarsDir:   getEnvOrDefault("STARS_DIR", "./passed_stars"),
			LedgerDir:  getEnvOrDefault("LEDGER_DIR", "./ledgers"),
			ReportFile: getEnvOrDefault("REPORT_FILE", "./tuning_report.xlsx"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Search.Broker == "postgres" && config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required with BROKER=postgres")
	}
	if config.Tuning.SplitRatio <= 0 || config.Tuning.SplitRatio >= 1 {
		return errors.ConfigInvalid("SPLIT_RATIO must lie in (0, 1)")
	}
	switch config.Search.PassMethod {
	case "all", "mean", "one":
	default:
		return errors.ConfigInvalid("PASS_METHOD must be one of all, mean, one")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
