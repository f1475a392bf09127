// Package config loads peerline's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/peerline/internal/db"
)

// Environment overrides, applied after the file is read.
const (
	EnvActor    = "PEERLINE_ACTOR"
	EnvStoreDSN = "PEERLINE_STORE_DSN"
)

// Config is the peerline configuration file.
type Config struct {
	Actor    string      `yaml:"actor,omitempty"`     // default acting moderator
	LogLevel string      `yaml:"log_level,omitempty"` // debug, info, warn, error
	Store    StoreConfig `yaml:"store"`

	path string
}

// StoreConfig selects the escalation store.
type StoreConfig struct {
	Driver string `yaml:"driver,omitempty"` // sqlite or postgres
	DSN    string `yaml:"dsn,omitempty"`    // file path for sqlite, connection string for postgres
}

// Path returns the file the config was read from, or "" when only defaults apply.
func (c *Config) Path() string {
	return c.path
}

// Load reads .peerline/config.yaml from dir, falling back to the home directory.
// A missing file is not an error; defaults and environment overrides still apply.
func Load(dir string) (*Config, error) {
	candidates := []string{filepath.Join(dir, ".peerline", "config.yaml")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".peerline", "config.yaml"))
	}

	for _, path := range candidates {
		cfg, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return cfg, err
	}

	cfg := &Config{}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads the config at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.path = path

	if err := cfg.finish(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to dir/.peerline/config.yaml.
func SaveConfig(dir string, cfg *Config) error {
	peerlineDir := filepath.Join(dir, ".peerline")
	if err := os.MkdirAll(peerlineDir, 0755); err != nil {
		return fmt.Errorf("failed to create .peerline dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(peerlineDir, "config.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) finish() error {
	if v := os.Getenv(EnvActor); v != "" {
		c.Actor = v
	}
	if v := os.Getenv(EnvStoreDSN); v != "" {
		c.Store.DSN = v
	}

	c.Actor = strings.TrimSpace(c.Actor)
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = db.DriverSQLite
	}

	switch c.Store.Driver {
	case db.DriverSQLite:
	case db.DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	return nil
}
