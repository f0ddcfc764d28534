// Package config reads the yaml configuration shared by the server and client binaries.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// SeedFile is a json document the server starts from. Empty starts from no document.
	SeedFile     string `yaml:"seed_file"`
	RenderOnExit bool   `yaml:"render_on_exit"`
}

type ClientConfig struct {
	URL            string `yaml:"url"`
	BufferTimeMs   int    `yaml:"buffer_time_ms"`
	EditIntervalMs int    `yaml:"edit_interval_ms"`
}

func (c *ClientConfig) BufferTime() time.Duration {
	return time.Duration(c.BufferTimeMs) * time.Millisecond
}

func (c *ClientConfig) EditInterval() time.Duration {
	return time.Duration(c.EditIntervalMs) * time.Millisecond
}

type LogConfig struct {
	Format string `yaml:"format"`
}

// Read loads path, fills in defaults and validates the result.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.PopulateDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
