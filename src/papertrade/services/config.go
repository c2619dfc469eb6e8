package services

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads engine settings from a YAML file. Missing or non-positive
// values fall back to the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	contents, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("LoadConfig: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return cfg, fmt.Errorf("LoadConfig: failed to unmarshal %s: %w", path, err)
	}

	defaults := DefaultConfig()

	if cfg.InitialBalance <= 0 {
		cfg.InitialBalance = defaults.InitialBalance
	}

	if cfg.Volatility <= 0 {
		cfg.Volatility = defaults.Volatility
	}

	if cfg.RiskFreeRate <= 0 {
		cfg.RiskFreeRate = defaults.RiskFreeRate
	}

	if cfg.ChainWidth <= 0 {
		cfg.ChainWidth = defaults.ChainWidth
	}

	if cfg.ChainExpirations <= 0 {
		cfg.ChainExpirations = defaults.ChainExpirations
	}

	return cfg, nil
}
