package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk CLI configuration. Flags override file values.
type fileConfig struct {
	Server    string `yaml:"server"`
	Datastack string `yaml:"datastack"`
	Token     string `yaml:"token"`
	Redis     string `yaml:"redis"`
	Jobs      int    `yaml:"jobs"`
	Progress  bool   `yaml:"progress"`
}

// loadConfig reads a YAML config file. A missing file at the default path
// is not an error; an explicitly given path must exist.
func loadConfig(path string, explicit bool) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &fileConfig{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// defaultConfigPath is ~/.config/grotto/config.yaml, or empty when no home
// directory is known.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.config/grotto/config.yaml"
}
