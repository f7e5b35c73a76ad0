package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:              "~/.config/nclock",
			SQLiteFile:        "nclock.db",
			KeyPrefix:         "nclock_",
			SQLiteJournalMode: "wal",
		},
		Clock: ClockConfig{
			Transform:     "offset",
			OffsetMinutes: 0,
			HoursPerDay:   24,
			ShowSeconds:   true,
			Language:      "ja",
		},
		Scheduler: SchedulerConfig{
			TickIntervalMS:  100,
			FlushIntervalMS: 2000,
			GapWarningMS:    5000,
		},
		Alerts: AlertsConfig{
			Terminal:  true,
			Sound:     true,
			Desktop:   true,
			ToneCount: 5,
		},
		Offline: OfflineConfig{
			Host:         "127.0.0.1",
			Port:         8722,
			CacheVersion: "nclock-cache-v2",
			Upstream:     "",
		},
		History: HistoryConfig{
			RetentionDays: 30,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "nclock.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
