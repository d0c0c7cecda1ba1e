package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"orderline/internal/timesheet"
)

// Config models orderline.yml.
type Config struct {
	Registration struct {
		DefaultStart         string `yaml:"default_start"`
		DefaultBreakMinutes  int    `yaml:"default_break_minutes"`
		DefaultTravelMinutes int    `yaml:"default_travel_minutes"`
	} `yaml:"registration"`
	Aggregation struct {
		// Pushdown lets the store compute per-worker totals for period
		// queries. Either way the result is identical; this only moves
		// the SUM into SQLite.
		Pushdown bool `yaml:"pushdown"`
	} `yaml:"aggregation"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Registration.DefaultStart != "" {
		if _, err := timesheet.ParseClock(c.Registration.DefaultStart); err != nil {
			return fmt.Errorf("config.registration.default_start: %w", err)
		}
	}
	if c.Registration.DefaultBreakMinutes < 0 {
		return fmt.Errorf("config.registration.default_break_minutes must be >= 0")
	}
	if c.Registration.DefaultTravelMinutes < 0 {
		return fmt.Errorf("config.registration.default_travel_minutes must be >= 0")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "orderline.yml")
}

// Load reads and validates config from the workspace, falling back to
// defaults when no file exists.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct. The registration defaults
// mirror a normal shift: start at 08:00 with a one hour break.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `registration:
  default_start: "08:00"
  default_break_minutes: 60
  default_travel_minutes: 0

aggregation:
  pushdown: false

server:
  addr: 127.0.0.1:8080
  base_path: /v0
`
