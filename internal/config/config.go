// Package config loads notegraph settings from a YAML file, the environment
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by Load.
const (
	EnvDSN      = "NOTEGRAPH_DSN"
	EnvOwner    = "NOTEGRAPH_OWNER"
	EnvLogLevel = "NOTEGRAPH_LOG_LEVEL"
)

// Config holds the resolved application configuration.
type Config struct {
	DSN      string `yaml:"dsn"`
	Owner    int64  `yaml:"owner"`
	LogLevel string `yaml:"log_level"`
}

// CLIFlags holds parsed CLI flags. Zero values mean "not given".
type CLIFlags struct {
	ConfigPath string
	DSN        string
	Owner      int64
	LogLevel   string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DSN:      "notegraph.db",
		Owner:    1,
		LogLevel: "info",
	}
}

// Load resolves configuration with priority: CLI flags > env vars > config file > default.
// A config file named by flags.ConfigPath must exist; the default one is optional.
func Load(flags CLIFlags) (*Config, error) {
	cfg := Default()

	path := flags.ConfigPath
	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}

	if path != "" {
		fileConfig, err := loadConfigFile(expandPath(path))
		switch {
		case err == nil:
			cfg.merge(fileConfig)
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			// the default file is optional
		default:
			return nil, err
		}
	}

	// Environment variables override the config file
	if v := os.Getenv(EnvDSN); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv(EnvOwner); v != "" {
		owner, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvOwner, v, err)
		}
		cfg.Owner = owner
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	// CLI flags override everything
	cfg.merge(&Config{DSN: flags.DSN, Owner: flags.Owner, LogLevel: flags.LogLevel})

	cfg.DSN = expandPath(cfg.DSN)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved values.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return errors.New("dsn must not be empty")
	}
	if c.Owner <= 0 {
		return fmt.Errorf("owner must be positive, got %d", c.Owner)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel into a slog level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// merge copies the non-zero fields of other into c.
func (c *Config) merge(other *Config) {
	if other.DSN != "" {
		c.DSN = other.DSN
	}
	if other.Owner != 0 {
		c.Owner = other.Owner
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// DefaultPath returns the path of the per-user configuration file.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "notegraph", "config.yaml"), nil
}

func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
