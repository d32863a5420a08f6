package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults mirror the historical constants: a 9 minute interval sampled in 3
// checks, i.e. one tick every 3 minutes.
const (
	DefaultIntervalMinutes = 9.0
	DefaultChecks          = 3
)

// Config is the top-level configuration document.
type Config struct {
	IntervalMinutes       float64           `yaml:"intervalMinutes"`
	Checks                int               `yaml:"checks"`
	Conditions            []ConditionConfig `yaml:"conditions"`
	SuppressNotifications bool              `yaml:"suppressNotifications"`
	RedactTitles          bool              `yaml:"redactTitles"`
}

// ConditionConfig describes one trigger condition. All keys are optional;
// present keys are ANDed together during evaluation.
type ConditionConfig struct {
	Class      string   `yaml:"class"`
	Fullscreen *bool    `yaml:"fullscreen"`
	CPU        *float64 `yaml:"cpu"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = DefaultIntervalMinutes
	}
	if c.Checks == 0 {
		c.Checks = DefaultChecks
	}
}

// Validate performs basic sanity checks.
func (c *Config) Validate() error {
	if c.IntervalMinutes <= 0 {
		return fmt.Errorf("intervalMinutes must be positive, got %v", c.IntervalMinutes)
	}
	if c.Checks < 1 {
		return fmt.Errorf("checks must be a positive integer, got %d", c.Checks)
	}
	if len(c.Conditions) == 0 {
		return fmt.Errorf("config must define at least one condition")
	}
	for i, cond := range c.Conditions {
		if err := cond.Validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i+1, err)
		}
	}
	return nil
}

// Validate ensures the condition carries at least one selection criteria.
func (c ConditionConfig) Validate() error {
	if c.Class == "" && c.Fullscreen == nil && c.CPU == nil {
		return fmt.Errorf("must define class, fullscreen, or cpu")
	}
	if c.CPU != nil && *c.CPU < 0 {
		return fmt.Errorf("cpu threshold cannot be negative, got %v", *c.CPU)
	}
	return nil
}

// TickPeriod returns the polling period: the interval split across the
// configured number of checks.
func (c *Config) TickPeriod() time.Duration {
	return time.Duration(c.IntervalMinutes / float64(c.Checks) * float64(time.Minute))
}
