// Package config handles configuration loading for weft. It supports XDG
// config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for weft.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Backend   BackendConfig   `mapstructure:"backend"`
	History   HistoryConfig   `mapstructure:"history"`
	Workers   WorkersConfig   `mapstructure:"workers"`
}

// AnthropicConfig holds provider settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// WorkflowConfig holds run-loop settings.
type WorkflowConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
	MaxWorkers    int `mapstructure:"max_workers"`
}

// DispatchConfig holds per-invocation dispatch settings.
type DispatchConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	Backoff    time.Duration `mapstructure:"backoff"`
}

// BackendConfig selects and roots the workspace backend.
type BackendConfig struct {
	// Kind is one of "memory", "filesystem", "sandbox".
	Kind string `mapstructure:"kind"`
	// Root is the host directory for filesystem and sandbox backends.
	Root string `mapstructure:"root"`
}

// HistoryConfig holds run-history store settings.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

// WorkersConfig points at an optional registry override file.
type WorkersConfig struct {
	RegistryPath string `mapstructure:"registry_path"`
}

// Load loads configuration with the following precedence, highest first:
//  1. Environment variables (WEFT_* and ANTHROPIC_API_KEY)
//  2. Project config (.weft.yaml in the current directory or a parent)
//  3. User config (~/.config/weft/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("WEFT")
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.model", "WEFT_MODEL")
	v.BindEnv("workflow.max_iterations", "WEFT_MAX_ITERATIONS")
	v.BindEnv("workflow.max_workers", "WEFT_MAX_WORKERS")
	v.BindEnv("backend.kind", "WEFT_BACKEND")
	v.BindEnv("backend.root", "WEFT_BACKEND_ROOT")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("workflow.max_iterations", cfg.Workflow.MaxIterations)
	v.Set("workflow.max_workers", cfg.Workflow.MaxWorkers)
	v.Set("dispatch.timeout", cfg.Dispatch.Timeout.String())
	v.Set("dispatch.max_retries", cfg.Dispatch.MaxRetries)
	v.Set("dispatch.backoff", cfg.Dispatch.Backoff.String())
	v.Set("backend.kind", cfg.Backend.Kind)
	v.Set("backend.root", cfg.Backend.Root)
	v.Set("history.enabled", cfg.History.Enabled)
	v.Set("history.db_path", cfg.History.DBPath)
	v.Set("workers.registry_path", cfg.Workers.RegistryPath)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it
// exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("workflow.max_iterations", 3)
	v.SetDefault("workflow.max_workers", 3)

	v.SetDefault("dispatch.timeout", "2m")
	v.SetDefault("dispatch.max_retries", 2)
	v.SetDefault("dispatch.backoff", "500ms")

	v.SetDefault("backend.kind", "filesystem")
	v.SetDefault("backend.root", "")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.db_path", "")

	v.SetDefault("workers.registry_path", "")
}

// getUserConfigDir returns the XDG config directory for weft.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "weft")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "weft")
	}
	return filepath.Join(home, ".config", "weft")
}

// findProjectConfig searches for .weft.yaml in the current directory and
// parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".weft.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Workflow: WorkflowConfig{
			MaxIterations: 3,
			MaxWorkers:    3,
		},
		Dispatch: DispatchConfig{
			Timeout:    2 * time.Minute,
			MaxRetries: 2,
			Backoff:    500 * time.Millisecond,
		},
		Backend: BackendConfig{
			Kind: "filesystem",
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// Validate checks cross-field constraints the unmarshal step cannot.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case "memory", "filesystem", "sandbox":
	default:
		return fmt.Errorf("unknown backend kind %q", c.Backend.Kind)
	}
	if c.Workflow.MaxIterations < 0 {
		return fmt.Errorf("workflow.max_iterations must not be negative")
	}
	if c.Workflow.MaxWorkers < 1 {
		return fmt.Errorf("workflow.max_workers must be at least 1")
	}
	if c.Dispatch.MaxRetries < 0 {
		return fmt.Errorf("dispatch.max_retries must not be negative")
	}
	return nil
}
