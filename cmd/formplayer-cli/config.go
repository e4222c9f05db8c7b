package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the optional YAML config file. Flags override anything set
// here.
type Config struct {
	Server      string            `yaml:"server"`
	Form        string            `yaml:"form"`
	Lang        string            `yaml:"lang"`
	DebounceMs  int               `yaml:"debounce_ms"`
	SessionData map[string]string `yaml:"session_data"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
