package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/runnerr0/botstats/internal/storage"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "~/.config/botstats/config.yaml"

// Environment variables that override the config file.
const (
	EnvDBPath   = "BOTSTATS_DB_PATH"
	EnvPort     = "BOTSTATS_PORT"
	EnvLogLevel = "BOTSTATS_LOG_LEVEL"
	EnvTimezone = "BOTSTATS_TIMEZONE"
)

// Config holds all botstats configuration.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Schema     SchemaConfig     `yaml:"schema"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	TimeSeries TimeSeriesConfig `yaml:"timeseries"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type StorageConfig struct {
	Path          string `yaml:"path"`
	JournalMode   string `yaml:"journal_mode"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
}

// SchemaConfig lists extension columns in table order.
type SchemaConfig struct {
	Columns []ColumnConfig `yaml:"columns"`
}

type ColumnConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type DashboardConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	EventLimit int    `yaml:"event_limit"`
}

type TimeSeriesConfig struct {
	Timezone string `yaml:"timezone"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Environment string `yaml:"environment"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the process
// environment without overriding variables that are already set. A
// missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values from BOTSTATS_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvPort, v)
		}
		c.Dashboard.Port = port
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvTimezone); v != "" {
		c.TimeSeries.Timezone = v
	}
	return nil
}

// Validate checks values that would otherwise fail later at open time.
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port out of range: %d", c.Dashboard.Port)
	}
	if _, err := c.Columns(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// DBPath returns the storage path with ~ expanded.
func (c *Config) DBPath() (string, error) {
	return expandPath(c.Storage.Path)
}

// Columns converts the configured extension columns to storage columns.
func (c *Config) Columns() ([]storage.Column, error) {
	cols := make([]storage.Column, 0, len(c.Schema.Columns))
	for _, col := range c.Schema.Columns {
		t, err := storage.ParseColumnType(col.Type)
		if err != nil {
			return nil, fmt.Errorf("schema column %q: %w", col.Name, err)
		}
		cols = append(cols, storage.Column{Name: col.Name, Type: t})
	}
	return cols, nil
}

// Location resolves timeseries.timezone. Empty or "Local" is the process zone.
func (c *Config) Location() (*time.Location, error) {
	tz := c.TimeSeries.Timezone
	if tz == "" || tz == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timeseries.timezone: %w", err)
	}
	return loc, nil
}

// StoreOptions translates the storage-related config into storage options.
func (c *Config) StoreOptions() ([]storage.Option, error) {
	cols, err := c.Columns()
	if err != nil {
		return nil, err
	}
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return []storage.Option{
		storage.WithColumns(cols...),
		storage.WithLocation(loc),
		storage.WithJournalMode(c.Storage.JournalMode),
		storage.WithBusyTimeout(time.Duration(c.Storage.BusyTimeoutMS) * time.Millisecond),
	}, nil
}
