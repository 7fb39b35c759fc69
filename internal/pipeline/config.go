package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"whale-index-lab/internal/activity"
	"whale-index-lab/internal/analysis"
	"whale-index-lab/internal/backtest"
	"whale-index-lab/internal/intent"
	"whale-index-lab/internal/signals"
)

// Config gathers every engine parameter. The zero value is not usable;
// start from Default.
type Config struct {
	Activity   activity.Config       `yaml:"activity"`
	ActivityV1 activity.StaticConfig `yaml:"activity_v1"`
	Intent     intent.Config         `yaml:"intent"`
	Signals    signals.Config        `yaml:"signals"`
	Backtest   backtest.Config       `yaml:"backtest"`
	Analysis   analysis.Config       `yaml:"analysis"`
}

// Default returns the engine defaults.
func Default() Config {
	return Config{
		Activity:   activity.DefaultConfig(),
		ActivityV1: activity.DefaultStaticConfig(),
		Intent:     intent.DefaultConfig(),
		Signals:    signals.DefaultConfig(),
		Backtest:   backtest.DefaultConfig(),
		Analysis:   analysis.DefaultConfig(),
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	checks := []func() error{
		c.Activity.Validate,
		c.ActivityV1.Validate,
		c.Intent.Validate,
		c.Signals.Validate,
		c.Backtest.Validate,
		c.Analysis.Validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return fmt.Errorf("engine config: %w", err)
		}
	}
	return nil
}

// ParseYAML overlays data onto Default and validates the result.
// Keys absent from data keep their default values.
func ParseYAML(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse engine config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadYAML reads an engine config file. An empty path returns Default.
func LoadYAML(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read engine config: %w", err)
	}
	return ParseYAML(data)
}

// YAML renders c in the format ParseYAML reads.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
