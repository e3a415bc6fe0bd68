package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.Classify.Threshold != 1.0 {
		t.Errorf("Classify.Threshold = %v, want 1.0", cfg.Classify.Threshold)
	}
	if cfg.Handlers.Mode != "stub" {
		t.Errorf("Handlers.Mode = %q, want stub", cfg.Handlers.Mode)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled should default to true")
	}
	if cfg.Events.BufferSize != 64 {
		t.Errorf("Events.BufferSize = %d, want 64", cfg.Events.BufferSize)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `classify:
  threshold: 1.5
  rules_file: /tmp/rules.yaml
handlers:
  mode: claude
  model: test-model
  use_bedrock: true
  aws_region: us-west-2
history:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Classify.Threshold != 1.5 {
		t.Errorf("Classify.Threshold = %v, want 1.5", cfg.Classify.Threshold)
	}
	if cfg.Classify.RulesFile != "/tmp/rules.yaml" {
		t.Errorf("Classify.RulesFile = %q", cfg.Classify.RulesFile)
	}
	if cfg.Handlers.Mode != "claude" {
		t.Errorf("Handlers.Mode = %q, want claude", cfg.Handlers.Mode)
	}
	if !cfg.Handlers.UseBedrock {
		t.Error("Handlers.UseBedrock should be true")
	}
	if cfg.Handlers.AWSRegion != "us-west-2" {
		t.Errorf("Handlers.AWSRegion = %q", cfg.Handlers.AWSRegion)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled should be false")
	}
	// Unset values keep their defaults.
	if cfg.Events.BufferSize != 64 {
		t.Errorf("Events.BufferSize = %d, want default 64", cfg.Events.BufferSize)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("STAGEHAND_TEST_KEY", "secret")
	if got := expandEnv("${STAGEHAND_TEST_KEY}"); got != "secret" {
		t.Errorf("expandEnv = %q, want secret", got)
	}
}
