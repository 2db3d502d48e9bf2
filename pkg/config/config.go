// Package config loads flowops service configuration from YAML.
package config

import (
	"fmt"
	"os"

	"github.com/dukex/flowops/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config is the service configuration. File values are applied over Default
// and command line flags are applied over the file.
type Config struct {
	DatabaseURL     string `yaml:"database_url"      validate:"required"`
	EventBus        string `yaml:"event_bus"         validate:"oneof=none gochannel kafka"`
	KafkaBrokers    string `yaml:"kafka_brokers"     validate:"required_if=EventBus kafka"`
	Port            int    `yaml:"port"              validate:"min=1,max=65535"`
	LogLevel        string `yaml:"log_level"         validate:"oneof=debug info warn error"`
	MaxApplyRetries int    `yaml:"max_apply_retries" validate:"min=0,max=20"`
	Tracing         bool   `yaml:"tracing"`
	ServiceName     string `yaml:"service_name"      validate:"required"`
}

func Default() Config {
	return Config{
		DatabaseURL:     "file://./data",
		EventBus:        "none",
		Port:            9091,
		LogLevel:        "info",
		MaxApplyRetries: 3,
		ServiceName:     "flowops-api",
	}
}

// Load reads the YAML file at filepath over the defaults. An empty path
// returns the defaults.
func Load(filepath string) (Config, error) {
	config := Default()

	if filepath == "" {
		return config, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return config, nil
}

func (c Config) Validate() error {
	if err := models.Validator().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}
