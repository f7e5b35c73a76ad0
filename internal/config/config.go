package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/runnerr0/nclock/internal/display"
)

// Default config file path.
const DefaultConfigPath = "~/.config/nclock/config.yaml"

// Config holds all nclock configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Clock     ClockConfig     `yaml:"clock"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Offline   OfflineConfig   `yaml:"offline"`
	History   HistoryConfig   `yaml:"history"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	KeyPrefix         string `yaml:"key_prefix"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

// ClockConfig seeds the display transform before any state has been persisted.
type ClockConfig struct {
	Transform     string `yaml:"transform"`
	OffsetMinutes int    `yaml:"offset_minutes"`
	HoursPerDay   int    `yaml:"hours_per_day"`
	ShowSeconds   bool   `yaml:"show_seconds"`
	Language      string `yaml:"language"`
}

type SchedulerConfig struct {
	TickIntervalMS  int `yaml:"tick_interval_ms"`
	FlushIntervalMS int `yaml:"flush_interval_ms"`
	GapWarningMS    int `yaml:"gap_warning_ms"`
}

type AlertsConfig struct {
	Terminal  bool `yaml:"terminal"`
	Sound     bool `yaml:"sound"`
	Desktop   bool `yaml:"desktop"`
	ToneCount int  `yaml:"tone_count"`
}

type OfflineConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	CacheVersion string `yaml:"cache_version"`
	Upstream     string `yaml:"upstream"`
}

type HistoryConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
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

	cfg.clamp()
	return cfg, nil
}

// clamp replaces out-of-range values with their defaults.
func (c *Config) clamp() {
	defaults := DefaultConfig()

	if c.Scheduler.TickIntervalMS <= 0 {
		c.Scheduler.TickIntervalMS = defaults.Scheduler.TickIntervalMS
	}
	if c.Scheduler.FlushIntervalMS <= 0 {
		c.Scheduler.FlushIntervalMS = defaults.Scheduler.FlushIntervalMS
	}
	if c.Scheduler.GapWarningMS <= 0 {
		c.Scheduler.GapWarningMS = defaults.Scheduler.GapWarningMS
	}
	if kind := display.Kind(c.Clock.Transform); kind != display.KindOffset && kind != display.KindDilation {
		c.Clock.Transform = defaults.Clock.Transform
	}
	c.Clock.HoursPerDay = display.ClampHours(c.Clock.HoursPerDay)
	if c.Alerts.ToneCount <= 0 {
		c.Alerts.ToneCount = defaults.Alerts.ToneCount
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = defaults.Storage.KeyPrefix
	}
	if c.Offline.CacheVersion == "" {
		c.Offline.CacheVersion = defaults.Offline.CacheVersion
	}
	if c.History.RetentionDays <= 0 {
		c.History.RetentionDays = defaults.History.RetentionDays
	}
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// DatabasePath returns the absolute path of the SQLite state file.
func (c *Config) DatabasePath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
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
