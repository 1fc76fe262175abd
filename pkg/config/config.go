package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration file.
type Config struct {
	Module  ModuleConfig  `yaml:"module"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Device  Device        `yaml:"device"`
	Catalog CatalogConfig `yaml:"catalog"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ModuleConfig identifies this acquisition module on the message bus.
type ModuleConfig struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

// MQTTConfig contains broker connection parameters.
type MQTTConfig struct {
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"client_id"` // Generated when empty
	QoS            byte          `yaml:"qos"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// CatalogConfig points at an optional local sensor catalog.
type CatalogConfig struct {
	Dir string `yaml:"dir"` // Directory of *.yaml sensor definitions, empty = wait for the bus
}

// MetricsConfig contains the prometheus endpoint configuration.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // Listen address, empty = disabled
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Module: ModuleConfig{
			ID:   1,
			Name: "mcp3208",
		},
		MQTT: MQTTConfig{
			Broker:         "tcp://localhost:1883",
			QoS:            0,
			ConnectTimeout: 10 * time.Second,
		},
		Device: DefaultDevice(),
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Module.Name == "" {
		c.Module.Name = def.Module.Name
	}

	if c.MQTT.Broker == "" {
		c.MQTT.Broker = def.MQTT.Broker
	}
	if c.MQTT.ConnectTimeout == 0 {
		c.MQTT.ConnectTimeout = def.MQTT.ConnectTimeout
	}
	if c.MQTT.QoS > 2 {
		c.MQTT.QoS = def.MQTT.QoS
	}

	c.Device.ensureDefaults()
}
