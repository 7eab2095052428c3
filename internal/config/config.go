// Package config loads the optional reconstructor configuration file. Every
// value has a working default; a missing file is not an error. Command-line
// flags override anything set here.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all reconstructor configuration.
type Config struct {
	// Reference database settings
	Database DatabaseConfig `yaml:"database"`

	// Similarity search settings
	Search SearchConfig `yaml:"search"`

	// Gap-filling settings
	GapFill GapFillConfig `yaml:"gapfill"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DatabaseConfig locates the reference database.
type DatabaseConfig struct {
	// Dir is the directory holding universal.json and genes.db.
	Dir string `yaml:"dir"`
}

// SearchConfig configures the DIAMOND similarity search.
type SearchConfig struct {
	Executable string `yaml:"executable"`
	ProteinDB  string `yaml:"protein_db"`
	Processors int    `yaml:"processors"`
}

// GapFillConfig sets the pFBA gap-filling parameters.
type GapFillConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Medium      string  `yaml:"medium"` // rich, complete, or minimal
	MinFraction float64 `yaml:"min_fraction"`
	MaxFraction float64 `yaml:"max_fraction"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Dir: defaultDBDir(),
		},
		Search: SearchConfig{
			Executable: "diamond",
		},
		GapFill: GapFillConfig{
			Enabled:     true,
			Medium:      "rich",
			MinFraction: 0.01,
			MaxFraction: 0.5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "reconstructor.yaml"
	}
	return filepath.Join(home, ".reconstructor", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; a file that parses but fails validation is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("RECONSTRUCTOR_DB"); dir != "" {
		c.Database.Dir = dir
	}
	if exe := os.Getenv("RECONSTRUCTOR_DIAMOND"); exe != "" {
		c.Search.Executable = exe
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Dir == "" {
		return fmt.Errorf("reference database directory not configured (set database.dir or RECONSTRUCTOR_DB)")
	}
	if c.GapFill.MinFraction <= 0 || c.GapFill.MinFraction > 1 {
		return fmt.Errorf("invalid gapfill.min_fraction: %v (want 0 < f <= 1)", c.GapFill.MinFraction)
	}
	if c.GapFill.MaxFraction <= 0 || c.GapFill.MaxFraction > 1 {
		return fmt.Errorf("invalid gapfill.max_fraction: %v (want 0 < f <= 1)", c.GapFill.MaxFraction)
	}
	return nil
}

func defaultDBDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "refdb"
	}
	return filepath.Join(home, ".reconstructor", "refdb")
}
