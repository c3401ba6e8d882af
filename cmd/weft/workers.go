package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/worker"
)

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List the configured workers",
	Long: `List the workers the dispatcher can invoke, with their output
shape. The default registry is used unless workers.registry_path points
at a YAML override file.`,
	RunE: runWorkers,
}

func runWorkers(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	registry := worker.DefaultRegistry()
	source := "built-in"
	if cfg.Workers.RegistryPath != "" {
		registry, err = worker.LoadRegistry(cfg.Workers.RegistryPath)
		if err != nil {
			return fmt.Errorf("load worker registry: %w", err)
		}
		source = cfg.Workers.RegistryPath
	}

	fmt.Printf("Workers (%s):\n", source)
	for _, name := range registry.Names() {
		spec, err := registry.Resolve(name)
		if err != nil {
			return err
		}
		fmt.Printf("  %s %-16s %-8s %s\n",
			color.CyanString("•"), spec.Name, spec.Output, spec.Description)
	}
	return nil
}
