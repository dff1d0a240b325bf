package config

import (
	"fmt"
	"os"

	"price-stream/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills optional fields that may be omitted from the YAML.
func (c *Config) applyDefaults() {
	if c.Stream.Mock.IntervalMs == 0 {
		c.Stream.Mock.IntervalMs = 800
	}
	if c.Stream.Mock.Volatility == 0 {
		c.Stream.Mock.Volatility = 0.0018 // 0.18%
	}
	if c.Stream.Mock.BasePrice == 0 {
		c.Stream.Mock.BasePrice = 100
	}
	if c.History.Interval == "" {
		c.History.Interval = "1day"
	}
	if c.History.Window == 0 {
		c.History.Window = 100
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate Stream configuration
	switch c.Stream.Backend {
	case "mock", "live":
	default:
		return fmt.Errorf("unknown stream backend: '%s' (must be 'mock' or 'live')", c.Stream.Backend)
	}
	if c.Stream.Backend == "live" && c.Stream.Live.URL == "" {
		return fmt.Errorf("live stream requires a websocket url")
	}
	if c.Stream.Mock.IntervalMs <= 0 {
		return fmt.Errorf("mock interval must be greater than 0")
	}
	if c.Stream.Mock.Volatility <= 0 || c.Stream.Mock.Volatility >= 1 {
		return fmt.Errorf("mock volatility must be in (0, 1), got %f", c.Stream.Mock.Volatility)
	}
	for sym, price := range c.Stream.Seed {
		if price <= 0 {
			return fmt.Errorf("seed price for '%s' must be positive, got %f", sym, price)
		}
	}

	// Validate History configuration
	if c.History.Endpoint == "" {
		return fmt.Errorf("history endpoint cannot be empty")
	}
	if c.History.Window <= 0 {
		return fmt.Errorf("history window must be greater than 0")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
