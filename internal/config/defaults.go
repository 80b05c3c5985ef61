package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:          "./bot-stats.db",
			JournalMode:   "wal",
			BusyTimeoutMS: 5000,
		},
		Schema: SchemaConfig{
			Columns: []ColumnConfig{},
		},
		Dashboard: DashboardConfig{
			Host:       "",
			Port:       3000,
			EventLimit: 0,
		},
		TimeSeries: TimeSeriesConfig{
			Timezone: "Local",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Environment: "development",
		},
	}
}
