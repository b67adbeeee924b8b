package config

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/KilimcininKorOglu/oodb/internal/logging"
	"github.com/KilimcininKorOglu/oodb/internal/storage"
)

// Config holds the complete configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Logging LogConfig     `yaml:"logging"`
}

// StorageConfig holds storage engine configuration.
type StorageConfig struct {
	DataDir     string `yaml:"dataDir"`
	PageSize    int    `yaml:"pageSize"`
	CacheSize   string `yaml:"cacheSize"`
	Checksums   bool   `yaml:"checksums"`
	SyncOnWrite bool   `yaml:"syncOnWrite"`
	ReadOnly    bool   `yaml:"readOnly"`
	Mmap        bool   `yaml:"mmap"`
	ReuseDelay  uint64 `yaml:"reuseDelay"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Options converts the storage section into channel options.
func (c StorageConfig) Options() (storage.Options, error) {
	opts := storage.DefaultOptions().
		WithChecksums(c.Checksums).
		WithSyncOnWrite(c.SyncOnWrite).
		WithReadOnly(c.ReadOnly).
		WithMmap(c.Mmap)

	if c.PageSize != 0 {
		opts = opts.WithPageSize(c.PageSize)
	}
	if c.ReuseDelay != 0 {
		opts = opts.WithReuseDelay(c.ReuseDelay)
	}
	if c.CacheSize != "" {
		size, err := parseSize(c.CacheSize)
		if err != nil {
			return storage.Options{}, err
		}
		opts = opts.WithCacheSize(size)
	}

	if err := opts.Validate(); err != nil {
		return storage.Options{}, err
	}
	return opts, nil
}

// NewLogger creates the logger the logging section describes.
func (c LogConfig) NewLogger() logging.Logger {
	return logging.New(logging.Config{
		Level:  c.Level,
		Format: c.Format,
		Output: c.Output,
	})
}

// parseSize parses a size such as "8MB", "512 KiB" or "1048576".
func parseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("invalid size %q: too large", s)
	}
	return int64(n), nil
}
