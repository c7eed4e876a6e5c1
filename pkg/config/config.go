// Package config provides configuration loading and management for
// modalityscan. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"modalityscan/pkg/classify"
	"modalityscan/pkg/raster"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// MaxDimension bounds the raster size fed to feature extraction.
		// Larger inputs are downscaled so the longest side matches it.
		MaxDimension int `yaml:"maxDimension"`
	} `yaml:"processing"`

	// Classifier parameters
	Classifier struct {
		// WeightsFile points at a YAML weights file overriding the
		// built-in model. Empty means use the defaults.
		WeightsFile string `yaml:"weightsFile"`

		// Weights overrides the model inline; it wins over WeightsFile
		// when both are set.
		Weights *classify.Weights `yaml:"weights"`
	} `yaml:"classifier"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.MaxDimension = raster.DefaultMaxDimension
	cfg.Output.Verbose = false

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

// ResolveWeights picks the classifier weights the configuration asks
// for: inline weights first, then a weights file, then the built-in
// model.
func (cfg *Config) ResolveWeights() (classify.Weights, error) {
	if cfg.Classifier.Weights != nil {
		w := *cfg.Classifier.Weights
		if err := w.Validate(); err != nil {
			return w, err
		}
		return w, nil
	}
	if cfg.Classifier.WeightsFile != "" {
		return classify.LoadWeights(cfg.Classifier.WeightsFile)
	}
	return classify.DefaultWeights(), nil
}
