package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Workflow.MaxIterations != 3 {
		t.Errorf("expected default max_iterations 3, got %d", cfg.Workflow.MaxIterations)
	}
	if cfg.Workflow.MaxWorkers != 3 {
		t.Errorf("expected default max_workers 3, got %d", cfg.Workflow.MaxWorkers)
	}
	if cfg.Dispatch.Timeout != 2*time.Minute {
		t.Errorf("expected dispatch timeout 2m, got %v", cfg.Dispatch.Timeout)
	}
	if cfg.Dispatch.MaxRetries != 2 {
		t.Errorf("expected dispatch max_retries 2, got %d", cfg.Dispatch.MaxRetries)
	}
	if cfg.Dispatch.Backoff != 500*time.Millisecond {
		t.Errorf("expected dispatch backoff 500ms, got %v", cfg.Dispatch.Backoff)
	}
	if cfg.Backend.Kind != "filesystem" {
		t.Errorf("expected backend kind filesystem, got %q", cfg.Backend.Kind)
	}
	if !cfg.History.Enabled {
		t.Error("expected history enabled by default")
	}
}

func TestLoadFromPath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
anthropic:
  api_key: test-key
  model: claude-sonnet-4-20250514
workflow:
  max_iterations: 5
  max_workers: 8
dispatch:
  timeout: 90s
  max_retries: 4
backend:
  kind: sandbox
  root: /tmp/weft-work
history:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("api_key = %q, want test-key", cfg.Anthropic.APIKey)
	}
	if cfg.Anthropic.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q", cfg.Anthropic.Model)
	}
	if cfg.Workflow.MaxIterations != 5 {
		t.Errorf("max_iterations = %d, want 5", cfg.Workflow.MaxIterations)
	}
	if cfg.Workflow.MaxWorkers != 8 {
		t.Errorf("max_workers = %d, want 8", cfg.Workflow.MaxWorkers)
	}
	if cfg.Dispatch.Timeout != 90*time.Second {
		t.Errorf("dispatch timeout = %v, want 90s", cfg.Dispatch.Timeout)
	}
	if cfg.Dispatch.MaxRetries != 4 {
		t.Errorf("dispatch max_retries = %d, want 4", cfg.Dispatch.MaxRetries)
	}
	if cfg.Backend.Kind != "sandbox" {
		t.Errorf("backend kind = %q, want sandbox", cfg.Backend.Kind)
	}
	if cfg.Backend.Root != "/tmp/weft-work" {
		t.Errorf("backend root = %q", cfg.Backend.Root)
	}
	if cfg.History.Enabled {
		t.Error("history should be disabled")
	}
}

func TestLoadFromPath_PartialConfigKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
workflow:
  max_iterations: 1
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Workflow.MaxIterations != 1 {
		t.Errorf("max_iterations = %d, want 1", cfg.Workflow.MaxIterations)
	}
	if cfg.Workflow.MaxWorkers != 3 {
		t.Errorf("max_workers = %d, want untouched default 3", cfg.Workflow.MaxWorkers)
	}
	if cfg.Backend.Kind != "filesystem" {
		t.Errorf("backend kind = %q, want untouched default", cfg.Backend.Kind)
	}
}

func TestLoadFromPath_ExpandsEnvInAPIKey(t *testing.T) {
	original := os.Getenv("WEFT_TEST_KEY")
	defer os.Setenv("WEFT_TEST_KEY", original)
	os.Setenv("WEFT_TEST_KEY", "sk-ant-expanded")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `
anthropic:
  api_key: ${WEFT_TEST_KEY}
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "sk-ant-expanded" {
		t.Errorf("api_key = %q, want expanded value", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadFromPath should fail for a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"memory backend", func(c *Config) { c.Backend.Kind = "memory" }, false},
		{"unknown backend", func(c *Config) { c.Backend.Kind = "s3" }, true},
		{"negative iterations", func(c *Config) { c.Workflow.MaxIterations = -1 }, true},
		{"zero iterations legal", func(c *Config) { c.Workflow.MaxIterations = 0 }, false},
		{"zero workers", func(c *Config) { c.Workflow.MaxWorkers = 0 }, true},
		{"negative retries", func(c *Config) { c.Dispatch.MaxRetries = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	original := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", original)
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Workflow.MaxIterations = 7
	cfg.Backend.Kind = "memory"

	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Workflow.MaxIterations != 7 {
		t.Errorf("max_iterations = %d, want 7", loaded.Workflow.MaxIterations)
	}
	if loaded.Backend.Kind != "memory" {
		t.Errorf("backend kind = %q, want memory", loaded.Backend.Kind)
	}
}
