package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify weft configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/weft/config.yaml
Project-specific overrides can be placed in .weft.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", orNotSet(cfg.Anthropic.Model))
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("workflow.max_iterations: %d\n", cfg.Workflow.MaxIterations)
	fmt.Printf("workflow.max_workers: %d\n", cfg.Workflow.MaxWorkers)
	fmt.Printf("dispatch.timeout: %s\n", cfg.Dispatch.Timeout)
	fmt.Printf("dispatch.max_retries: %d\n", cfg.Dispatch.MaxRetries)
	fmt.Printf("dispatch.backoff: %s\n", cfg.Dispatch.Backoff)
	fmt.Printf("backend.kind: %s\n", cfg.Backend.Kind)
	fmt.Printf("backend.root: %s\n", orNotSet(cfg.Backend.Root))
	fmt.Printf("history.enabled: %t\n", cfg.History.Enabled)
	fmt.Printf("history.db_path: %s\n", orNotSet(cfg.History.DBPath))
	fmt.Printf("workers.registry_path: %s\n", orNotSet(cfg.Workers.RegistryPath))
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return orNotSet(cfg.Anthropic.Model), nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "workflow.max_iterations":
		return strconv.Itoa(cfg.Workflow.MaxIterations), nil
	case "workflow.max_workers":
		return strconv.Itoa(cfg.Workflow.MaxWorkers), nil
	case "dispatch.timeout":
		return cfg.Dispatch.Timeout.String(), nil
	case "dispatch.max_retries":
		return strconv.Itoa(cfg.Dispatch.MaxRetries), nil
	case "dispatch.backoff":
		return cfg.Dispatch.Backoff.String(), nil
	case "backend.kind":
		return cfg.Backend.Kind, nil
	case "backend.root":
		return orNotSet(cfg.Backend.Root), nil
	case "history.enabled":
		return strconv.FormatBool(cfg.History.Enabled), nil
	case "history.db_path":
		return orNotSet(cfg.History.DBPath), nil
	case "workers.registry_path":
		return orNotSet(cfg.Workers.RegistryPath), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_bedrock: %w", err)
		}
		cfg.Anthropic.UseBedrock = b
	case "workflow.max_iterations":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_iterations: %w", err)
		}
		cfg.Workflow.MaxIterations = n
	case "workflow.max_workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_workers: %w", err)
		}
		cfg.Workflow.MaxWorkers = n
	case "dispatch.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for dispatch.timeout: %w", err)
		}
		cfg.Dispatch.Timeout = d
	case "dispatch.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_retries: %w", err)
		}
		cfg.Dispatch.MaxRetries = n
	case "dispatch.backoff":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for dispatch.backoff: %w", err)
		}
		cfg.Dispatch.Backoff = d
	case "backend.kind":
		cfg.Backend.Kind = value
	case "backend.root":
		cfg.Backend.Root = value
	case "history.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for history.enabled: %w", err)
		}
		cfg.History.Enabled = b
	case "history.db_path":
		cfg.History.DBPath = value
	case "workers.registry_path":
		cfg.Workers.RegistryPath = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return cfg.Validate()
}
