package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig points at one of the external collaborator services.
type ClientConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type Config struct {
	Clients struct {
		Booking ClientConfig `yaml:"booking"`
		Roster  ClientConfig `yaml:"roster"`
		Push    ClientConfig `yaml:"push"`
	} `yaml:"clients"`

	Reminder struct {
		TickInterval  string `yaml:"tick_interval"`
		Window        string `yaml:"window"`
		MaxFanOut     int    `yaml:"max_fan_out"`
		QueueEntryTTL string `yaml:"queue_entry_ttl"`
	} `yaml:"reminder"`

	Bridge struct {
		PollInterval string `yaml:"poll_interval"`
	} `yaml:"bridge"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML config file. A missing file is not an
// error; everything has a default and env overrides.
func loadConfig(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// parseDuration applies def when the config field was left empty.
func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", s, err)
	}
	return d, nil
}
