package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Discord    DiscordConfig    `yaml:"discord"`
	Storage    StorageConfig    `yaml:"storage"`
	Reminder   ReminderConfig   `yaml:"reminder"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Admin      AdminConfig      `yaml:"admin"`
}

// DiscordConfig contains Discord connection settings
type DiscordConfig struct {
	Token        string `yaml:"token"`
	CategoryName string `yaml:"category_name"`
}

// StorageConfig contains snapshot persistence settings
type StorageConfig struct {
	SaveFile string `yaml:"save_file"`
	// RerenderOnLoad re-renders every reconstructed representation during
	// reload, forcing drift correction at the cost of a visible edit on
	// every restart.
	RerenderOnLoad bool `yaml:"rerender_on_load"`
}

// ReminderConfig contains daily tour reminder settings
type ReminderConfig struct {
	Enabled bool `yaml:"enabled"`
	// Time is the daily run time in HH:MM, interpreted in UTC.
	Time string `yaml:"time"`
}

// EnrichmentConfig contains expose page scraping settings
type EnrichmentConfig struct {
	Enabled        bool   `yaml:"enabled"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent"`
}

// AdminConfig contains the operator HTTP API settings
type AdminConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			CategoryName: "listings",
		},
		Storage: StorageConfig{
			SaveFile:       "listings.json",
			RerenderOnLoad: true,
		},
		Reminder: ReminderConfig{
			Enabled: true,
			Time:    "20:00",
		},
		Enrichment: EnrichmentConfig{
			Enabled:        false,
			TimeoutSeconds: 30,
			UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		},
		Admin: AdminConfig{
			Enabled:    false,
			ListenAddr: ":8090",
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	// Read file
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// GetTimeout returns the enrichment timeout as a duration
func (c *EnrichmentConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
