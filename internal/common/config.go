// Package common provides shared utilities for the solar dipole applications.
package common

import (
	"os"
	"path/filepath"
)

// Config holds common configuration for all applications.
type Config struct {
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	DataDir            string
	LogLevel           string
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ClickHouseHost:     getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort:     9000,
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "helio"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		DataDir:            getEnv("HELIO_DATA_DIR", "/var/lib/solar-dipole"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

// MagnetogramDir returns the magnetogram data directory path.
func (c *Config) MagnetogramDir() string {
	return filepath.Join(c.DataDir, "magnetograms")
}

// CalcDir returns the directory for computed dipole series exports.
func (c *Config) CalcDir() string {
	return filepath.Join(c.DataDir, "calcs")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
