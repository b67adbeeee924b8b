package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/oodb/internal/config"
	"github.com/KilimcininKorOglu/oodb/internal/storage/engine"
	"github.com/KilimcininKorOglu/oodb/internal/storage/index"
)

// =============================================================================
// Dispatch Tests
// =============================================================================

func TestRun_NoArgs(t *testing.T) {
	assert.Equal(t, 1, run([]string{"oodb"}))
}

func TestRun_Help(t *testing.T) {
	for _, arg := range []string{"help", "-h", "--help"} {
		assert.Equal(t, 0, run([]string{"oodb", arg}), arg)
	}
	for _, cmd := range []string{"init", "stats", "verify", "version"} {
		assert.Equal(t, 0, run([]string{"oodb", cmd, "-h"}), cmd)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	assert.Equal(t, 1, run([]string{"oodb", "unknown"}))
	assert.Equal(t, 1, run([]string{"oodb", "stats", "-bogus"}))
}

func TestRun_Version(t *testing.T) {
	assert.Equal(t, 0, run([]string{"oodb", "version"}))
	assert.Equal(t, 0, run([]string{"oodb", "version", "-short"}))
}

// =============================================================================
// Store Command Tests
// =============================================================================

func storeArgs(cmd, dir string) []string {
	return []string{"oodb", cmd, "-data-dir", dir, "-page-size", "512", "-log-level", "error"}
}

func TestInitStatsVerify(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")

	assert.Equal(t, 1, run(storeArgs("stats", dir)), "missing store")
	require.Equal(t, 0, run(storeArgs("init", dir)))
	assert.Equal(t, 0, run(storeArgs("stats", dir)))
	assert.Equal(t, 0, run(storeArgs("verify", dir)))

	opts := engine.DefaultOptions()
	opts.Storage = opts.Storage.WithPageSize(512)
	s, err := engine.Open(dir, opts)
	require.NoError(t, err)
	names, err := s.CreateFieldIndex(1, index.KindString)
	require.NoError(t, err)
	for oid := int64(1); oid <= 500; oid++ {
		require.NoError(t, s.OIDIndex().Insert(oid, index.Location{Page: uint32(oid)}))
		require.NoError(t, names.Insert(index.StringKey("n"), oid))
	}
	_, err = s.Commit()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Equal(t, 0, run(storeArgs("stats", dir)))
	assert.Equal(t, 0, run(storeArgs("verify", dir)))

	wrongPage := []string{"oodb", "verify", "-data-dir", dir, "-page-size", "1024", "-log-level", "error"}
	assert.Equal(t, 1, run(wrongPage))
}

func TestStoreFlagsRejectInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, 1, run([]string{"oodb", "init", "-data-dir", dir, "-page-size", "16"}))
	assert.Equal(t, 1, run([]string{"oodb", "init", "-config", filepath.Join(dir, "missing.yaml")}))
}

// =============================================================================
// Config Command Tests
// =============================================================================

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oodb.yaml")

	assert.Equal(t, 0, run([]string{"oodb", "config"}))
	assert.Equal(t, 1, run([]string{"oodb", "config", "bogus"}))
	assert.Equal(t, 1, run([]string{"oodb", "config", "validate"}))

	require.Equal(t, 0, run([]string{"oodb", "config", "init", "-output", path}))
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)

	assert.Equal(t, 0, run([]string{"oodb", "config", "validate", "-config", path}))
	assert.Equal(t, 0, run([]string{"oodb", "config", "show", "-config", path, "-page-size", "1024"}))

	require.NoError(t, os.WriteFile(path, []byte("storage:\n  dataDir: relative\n"), 0644))
	assert.Equal(t, 1, run([]string{"oodb", "config", "validate", "-config", path}))
}
