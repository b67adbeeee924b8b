package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/oodb/internal/storage"
)

// =============================================================================
// Parser Tests
// =============================================================================

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Empty(t, ValidateConfig(cfg))
}

func TestParseConfigOverrides(t *testing.T) {
	data := []byte(`
storage:
  dataDir: /srv/oodb
  pageSize: 512
  cacheSize: 64MiB
  checksums: false
  syncOnWrite: true
  reuseDelay: 3

logging:
  level: debug
  format: json
`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, "/srv/oodb", cfg.Storage.DataDir)
	assert.Equal(t, 512, cfg.Storage.PageSize)
	assert.Equal(t, "64MiB", cfg.Storage.CacheSize)
	assert.False(t, cfg.Storage.Checksums)
	assert.True(t, cfg.Storage.SyncOnWrite)
	assert.Equal(t, uint64(3), cfg.Storage.ReuseDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output, "unset keys keep their defaults")
}

func TestParseConfigRejectsUnknownKeys(t *testing.T) {
	_, err := ParseConfig([]byte("storage:\n  pagesize: 512\n"))
	assert.ErrorIs(t, err, ErrInvalidYAML)

	_, err = ParseConfig([]byte("storage: [1, 2"))
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("OODB_TEST_DIR", "/data/objects")

	tests := []struct {
		in   string
		want string
	}{
		{"dir: ${OODB_TEST_DIR}", "dir: /data/objects"},
		{"dir: ${OODB_TEST_DIR:-/tmp}", "dir: /data/objects"},
		{"dir: ${OODB_TEST_UNSET:-/tmp}", "dir: /tmp"},
		{"dir: ${OODB_TEST_UNSET}", "dir: "},
		{"dir: plain", "dir: plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(substituteEnvVars([]byte(tt.in))), tt.in)
	}
}

func TestLoadConfig(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrFileNotFound)

	t.Setenv("OODB_TEST_PAGE", "1024")
	path := filepath.Join(t.TempDir(), "oodb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  pageSize: ${OODB_TEST_PAGE}\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Storage.PageSize)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.PageSize = 2048

	data, err := cfg.Marshal()
	require.NoError(t, err)

	back, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }, "storage.dataDir"},
		{"relative data dir", func(c *Config) { c.Storage.DataDir = "data" }, "storage.dataDir"},
		{"page too small", func(c *Config) { c.Storage.PageSize = storage.MinPageSize - 1 }, "storage.pageSize"},
		{"page too large", func(c *Config) { c.Storage.PageSize = storage.MaxPageSize + 1 }, "storage.pageSize"},
		{"bad cache size", func(c *Config) { c.Storage.CacheSize = "lots" }, "storage.cacheSize"},
		{"mmap without read-only", func(c *Config) { c.Storage.Mmap = true }, "storage.mmap"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"relative log file", func(c *Config) { c.Logging.Output = "oodb.log" }, "logging.output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			errs := ValidateConfig(cfg)
			require.Len(t, errs, 1)
			var verr ValidationError
			require.ErrorAs(t, errs[0], &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

// =============================================================================
// Conversion Tests
// =============================================================================

func TestStorageOptions(t *testing.T) {
	cfg := DefaultConfig().Storage
	cfg.PageSize = 512
	cfg.CacheSize = "1MiB"
	cfg.ReadOnly = true
	cfg.Mmap = true
	cfg.ReuseDelay = 2

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, 512, opts.PageSize)
	assert.Equal(t, int64(1<<20), opts.CacheSize)
	assert.True(t, opts.Checksums)
	assert.True(t, opts.ReadOnly)
	assert.True(t, opts.Mmap)
	assert.Equal(t, uint64(2), opts.ReuseDelay)

	cfg = DefaultConfig().Storage
	opts, err = cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, int64(8_000_000), opts.CacheSize)

	cfg.PageSize = 16
	_, err = cfg.Options()
	assert.ErrorIs(t, err, storage.ErrCapacityExceeded)

	cfg = DefaultConfig().Storage
	cfg.CacheSize = "-"
	_, err = cfg.Options()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := LogConfig{Level: "warn", Format: "json", Output: "stdout"}
	assert.NotNil(t, cfg.NewLogger())
}
