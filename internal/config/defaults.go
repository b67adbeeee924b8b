package config

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir:     "/var/lib/oodb",
			PageSize:    4096,
			CacheSize:   "8MB",
			Checksums:   true,
			SyncOnWrite: false,
			ReadOnly:    false,
			Mmap:        false,
			ReuseDelay:  1,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
