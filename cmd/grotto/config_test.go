package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server: https://global.example.org
datastack: minnie65
token: secret
redis: redis.internal:6379
jobs: 8
progress: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path, true)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Server != "https://global.example.org" {
		t.Errorf("Server = %q", cfg.Server)
	}
	if cfg.Datastack != "minnie65" {
		t.Errorf("Datastack = %q", cfg.Datastack)
	}
	if cfg.Jobs != 8 || !cfg.Progress {
		t.Errorf("Jobs = %d, Progress = %v", cfg.Jobs, cfg.Progress)
	}
}

func TestLoadConfig_MissingDefault(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false)
	if err != nil {
		t.Fatalf("loadConfig() error = %v, want empty config for missing default path", err)
	}
	if cfg.Server != "" {
		t.Errorf("Server = %q, want empty", cfg.Server)
	}
}

func TestLoadConfig_MissingExplicit(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"), true); err == nil {
		t.Error("loadConfig() should fail for a missing explicit path")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := loadConfig(path, true); err == nil {
		t.Error("loadConfig() should fail on malformed yaml")
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1", "864691135"})
	if err != nil {
		t.Fatalf("parseIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[1] != 864691135 {
		t.Errorf("parseIDs() = %v", ids)
	}

	if _, err := parseIDs([]string{"abc"}); err == nil {
		t.Error("parseIDs() should reject non-numeric ids")
	}
}
