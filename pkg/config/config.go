// Package config provides configuration loading and management for voxelmod.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Reduction parameters
	Reduction struct {
		// MapFile is the material substitution map used by "reduce"
		MapFile string `yaml:"mapFile"`

		// Seed drives the placeholder colours of reduced materials; 0 is random
		Seed uint64 `yaml:"seed"`
	} `yaml:"reduction"`

	// Output parameters
	Output struct {
		// Dir is where reduced models are written. Empty means the working
		// directory at the time of the write.
		Dir string `yaml:"dir"`

		// Compression of the label file: "none" or "zstd"
		Compression string `yaml:"compression"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`

		// Format is "text" or "json"
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Reduction.Seed = 0

	cfg.Output.Dir = ""
	cfg.Output.Compression = "none"
	cfg.Output.Verbose = false

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks enumerated fields
func (c *Config) Validate() error {
	switch c.Output.Compression {
	case "", "none", "raw", "zstd":
	default:
		return fmt.Errorf("unknown compression %q", c.Output.Compression)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// LogLevel parses Logging.Level. Output.Verbose forces debug.
func (c *Config) LogLevel() (slog.Level, error) {
	if c.Output.Verbose {
		return slog.LevelDebug, nil
	}
	var level slog.Level
	if c.Logging.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return level, nil
}

// ResolveOutputDir returns Output.Dir, or the current working directory
// when it is empty. The working directory is read on every call.
func (c *Config) ResolveOutputDir() (string, error) {
	if c.Output.Dir != "" {
		return c.Output.Dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("error resolving output directory: %w", err)
	}
	return wd, nil
}
