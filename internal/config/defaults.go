package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Retention: RetentionConfig{
			RawDays:       7,
			MaxDaysPerRun: 3,
			Schedule:      "@every 30m",
		},
		Tracker: TrackerConfig{
			DebounceMillis: 500,
			TickSeconds:    60,
		},
		Storage: StorageConfig{
			Path:              "~/.config/dwell",
			SQLiteFile:        "dwell.db",
			SQLiteJournalMode: "wal",
		},
		Slot: SlotConfig{
			Backend:   "bolt",
			BoltFile:  "session.db",
			RedisAddr: "",
			RedisKey:  "dwell:session:active",
		},
		Daemon: DaemonConfig{
			Host:           "127.0.0.1",
			Port:           8721,
			AuthToken:      "",
			MaxRequestSize: 10485760,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			File:       "",
			MaxSize:    10,
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Blocklist: BlocklistConfig{
			SeedDefaults:  true,
			ReloadSeconds: 5,
		},
	}
}
