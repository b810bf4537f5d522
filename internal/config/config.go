// Package config loads Manifold's YAML configuration: a Config struct
// of sections, a DefaultConfig constructor, and MANIFOLD_*-prefixed
// environment overrides layered on top of whatever the file contains.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all Manifold configuration.
type Config struct {
	// Data directory everything else is rooted under by default
	// ("db/manifold.db", "sync/", etc).
	DataDir string `yaml:"data_dir"`

	Store   StoreConfig   `yaml:"store"`
	Schema  SchemaConfig  `yaml:"schema"`
	Sync    SyncConfig    `yaml:"sync"`
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
}

// StoreConfig holds the settings for this component.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// SchemaConfig holds the settings for this component.
type SchemaConfig struct {
	// Path names a schema file. It is loaded and saved with the rest of the
	// config; the validator always uses its embedded schema and does not
	// read this path.
	Path string `yaml:"path"`
	// StrictDefault is a strictness setting for embedders of the engine.
	// The CLI's --strict flag and the MCP spec.validate tool take their
	// own default (false) and do not read it.
	StrictDefault bool `yaml:"strict_default"`
}

// SyncConfig holds the settings for this component.
type SyncConfig struct {
	Root         string `yaml:"root"`
	Remote       string `yaml:"remote"`
	Branch       string `yaml:"branch"`
	AuthorName   string `yaml:"author_name"`
	AuthorEmail  string `yaml:"author_email"`
	WatchEnabled bool   `yaml:"watch_enabled"`
}

// LoggingConfig holds logging settings. The CLI builds its zap logger from
// the --verbose flag alone and does not read this section.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // empty logs to stderr
}

// ServerConfig configures the MCP stdio server surface.
type ServerConfig struct {
	// Name and Version are advertised in the MCP initialize response.
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// DefaultConfig returns Manifold's default configuration, rooted at
// ".manifold" in the current working directory.
func DefaultConfig() *Config {
	return &Config{
		DataDir: ".manifold",

		Store: StoreConfig{
			Path: filepath.Join(".manifold", "db", "manifold.db"),
		},

		Schema: SchemaConfig{
			Path:          "",
			StrictDefault: false,
		},

		Sync: SyncConfig{
			Root:         filepath.Join(".manifold", "sync"),
			Remote:       "",
			Branch:       "main",
			AuthorName:   "manifold",
			AuthorEmail:  "manifold@localhost",
			WatchEnabled: true,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   "",
		},

		Server: ServerConfig{
			Name:    "manifold",
			Version: "0.1.0",
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults
// when the file does not exist. Environment overrides are applied last
// regardless of whether the file was found.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file, creating its parent
// directory if necessary.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnvOverrides layers MANIFOLD_* environment variables over
// whatever the YAML file (or defaults) already set.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MANIFOLD_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("MANIFOLD_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("MANIFOLD_SCHEMA_PATH"); v != "" {
		c.Schema.Path = v
	}
	if v := os.Getenv("MANIFOLD_SYNC_ROOT"); v != "" {
		c.Sync.Root = v
	}
	if v := os.Getenv("MANIFOLD_SYNC_REMOTE"); v != "" {
		c.Sync.Remote = v
	}
	if v := os.Getenv("MANIFOLD_SYNC_BRANCH"); v != "" {
		c.Sync.Branch = v
	}
	if v := os.Getenv("MANIFOLD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MANIFOLD_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}
