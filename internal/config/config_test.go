package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "LOCAL_BOOKSHELF", cfg.Storage.Key)
	assert.True(t, cfg.Storage.Lazy)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingOptional(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	assert.Error(t, err)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookshelf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: bolt
  path: /tmp/shelf/books.db
log:
  level: debug
render:
  color: false
`), 0o644))

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, DriverBolt, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/shelf/books.db", cfg.Storage.Path)
	assert.Equal(t, "LOCAL_BOOKSHELF", cfg.Storage.Key, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.False(t, cfg.Render.Color)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookshelf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [oops"), 0o644))

	_, err := Load(path, false)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = "redis"
	assert.ErrorContains(t, cfg.Validate(), "unknown storage driver")

	cfg = Default()
	cfg.Storage.Path = " "
	assert.Error(t, cfg.Validate())

	cfg.Storage.Driver = DriverMem
	assert.NoError(t, cfg.Validate())

	cfg.Storage.Key = ""
	assert.Error(t, cfg.Validate())
}

func TestLocation(t *testing.T) {
	cfg := Default()
	cfg.Storage.Path = "/data"

	assert.Equal(t, "/data", cfg.Location())

	cfg.Storage.Driver = DriverBolt
	assert.Equal(t, filepath.Join("/data", "bookshelf.db"), cfg.Location())

	cfg.Storage.Driver = DriverStorm
	assert.Equal(t, filepath.Join("/data", "bookshelf.storm"), cfg.Location())

	cfg.Storage.Driver = DriverSQLite
	assert.Equal(t, filepath.Join("/data", "bookshelf.sqlite"), cfg.Location())

	cfg.Storage.Path = "/data/mine.sqlite"
	assert.Equal(t, "/data/mine.sqlite", cfg.Location())
}
