package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMem    = "mem"
	DriverFile   = "file"
	DriverBolt   = "bolt"
	DriverStorm  = "storm"
	DriverSQLite = "sqlite"
)

// Drivers lists every supported storage driver.
var Drivers = []string{DriverMem, DriverFile, DriverBolt, DriverStorm, DriverSQLite}

// DefaultFile is looked up in the data directory when no --config is given.
const DefaultFile = "bookshelf.yaml"

// Config holds all bookshelf configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Render  RenderConfig  `yaml:"render"`
}

// StorageConfig selects where the bookshelf is persisted.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	// Path is a directory for the file driver and a database file otherwise.
	Path string `yaml:"path"`
	Key  string `yaml:"key"`
	// Lazy skips writes that would not change the stored bytes.
	Lazy bool `yaml:"lazy"`
}

// LogConfig configures diagnostics written to stderr.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RenderConfig configures terminal output.
type RenderConfig struct {
	Color bool `yaml:"color"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Driver: DriverFile,
			Path:   DataDir(),
			Key:    "LOCAL_BOOKSHELF",
			Lazy:   true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Render: RenderConfig{
			Color: true,
		},
	}
}

// DataDir is the directory bookshelf data lives in by default.
func DataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "bookshelf")
	}
	return filepath.Join(dir, "bookshelf")
}

// DefaultPath is the default location of the config file.
func DefaultPath() string {
	return filepath.Join(DataDir(), DefaultFile)
}

// Load reads the YAML file at path over the defaults.
// A missing file is not an error when optional is set.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that the configuration can be used.
func (c Config) Validate() error {
	known := false
	for _, d := range Drivers {
		if c.Storage.Driver == d {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown storage driver %q (want one of %s)",
			c.Storage.Driver, strings.Join(Drivers, ", "))
	}
	if c.Storage.Driver != DriverMem && strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage path required for driver %q", c.Storage.Driver)
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return fmt.Errorf("storage key required")
	}
	return nil
}

// Location is the file or directory the configured driver writes to.
func (c Config) Location() string {
	switch c.Storage.Driver {
	case DriverBolt:
		return databaseFile(c.Storage.Path, "bookshelf.db")
	case DriverStorm:
		return databaseFile(c.Storage.Path, "bookshelf.storm")
	case DriverSQLite:
		return databaseFile(c.Storage.Path, "bookshelf.sqlite")
	}
	return c.Storage.Path
}

// databaseFile treats path as a directory unless it names a file.
func databaseFile(path, name string) string {
	if filepath.Ext(path) != "" {
		return path
	}
	return filepath.Join(path, name)
}
