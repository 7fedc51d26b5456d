package config

// Default returns the configuration used for any key the config files omit.
func Default() *Config {
	return &Config{
		Common: CommonConfig{
			Debug: Debug{
				LogLevel:      "info",
				MaxLogsToKeep: 10,
				MaxLogLines:   10000,
			},
			Storage: Storage{
				Backend: "file",
				DataDir: "data",
			},
			PostgreSQL: PostgreSQL{
				Host:         "localhost",
				Port:         5432,
				User:         "postgres",
				DBName:       "retract",
				MaxOpenConns: 10,
				MaxIdleConns: 5,
				MaxLifetime:  30,
				MaxIdleTime:  10,
			},
			SQLite: SQLite{Path: "data/retract.db"},
			Redis: Redis{
				Host: "localhost",
				Port: 6379,
			},
			Metrics: Metrics{
				Port:           9090,
				SampleInterval: 60000,
			},
		},
		Bot: BotConfig{
			RequestTimeout: 10000,
			CommandPrefix:  "!deletions",
			Approval:       Approval{TTL: 86400},
		},
		Moderation: ModerationConfig{
			Detection: Detection{
				RapidThreshold:    30000,
				BulkWindow:        600000,
				BulkMinCount:      2,
				FrequentThreshold: 5,
				ContextualMax:     3,
			},
			UserLimits:         Limits{Hourly: 3, Daily: 10, RapidHourly: 3},
			OwnerLimits:        Limits{Hourly: 10, Daily: 30},
			RetentionDays:      30,
			RelationshipMaxAge: 1440,
			CleanupInterval:    60,
			Review: Review{
				AuditMode:       "all",
				RetentionDays:   90,
				BulkDelay:       1000,
				BulkConcurrency: 1,
				BulkMaxCount:    50,
			},
			Extractor: Extractor{
				CacheSize: 1000,
				CacheTTL:  3600,
			},
		},
	}
}
