package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/state"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show recent runs and their outcomes",
	Long: `Display run history from the history database.

With no arguments, lists the most recent runs. With a run identifier,
shows that run's tasks and generated artifacts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of recent runs to list")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbPath := cfg.History.DBPath
	if dbPath == "" {
		dbPath = state.DefaultDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No run history. Start one with 'weft run <request>'.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open history db: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate history db: %w", err)
	}

	ctx := context.Background()
	if len(args) == 1 {
		return showRun(ctx, db, args[0])
	}
	return listRuns(ctx, db)
}

func listRuns(ctx context.Context, db *state.DB) error {
	runs, err := db.ListRuns(ctx, statusLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No run history. Start one with 'weft run <request>'.")
		return nil
	}

	fmt.Println("Recent Runs:")
	for _, r := range runs {
		fmt.Printf("  %s  %s  %s (%s ago)\n",
			r.ID, terminalLabel(r.Terminal), truncate(r.Request, 48),
			formatDuration(time.Since(r.StartedAt)))
	}
	return nil
}

func showRun(ctx context.Context, db *state.DB, runID string) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s\n", run.ID)
	fmt.Printf("  Request: %s\n", run.Request)
	fmt.Printf("  Started: %s ago\n", formatDuration(time.Since(run.StartedAt)))
	if run.Finished() {
		fmt.Printf("  Outcome: %s after %d/%d iterations, %d files\n",
			terminalLabel(run.Terminal), run.Iterations, run.MaxIterations, run.FilesGenerated)
	} else {
		fmt.Printf("  Outcome: %s\n", color.CyanString("in progress"))
	}

	tasks, err := db.ListRunTasks(ctx, runID)
	if err != nil {
		return fmt.Errorf("list run tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	fmt.Println("  Tasks:")
	for _, task := range tasks {
		fmt.Printf("    %s  %-12s %s\n", task.TaskID, task.Status, truncate(task.Description, 56))
		for _, a := range task.Artifacts {
			fmt.Printf("      -> %s\n", a)
		}
	}
	return nil
}

func terminalLabel(terminal string) string {
	switch terminal {
	case "finalized-ready":
		return color.GreenString("%-20s", terminal)
	case "finalized-exhausted":
		return color.YellowString("%-20s", terminal)
	case "aborted":
		return color.RedString("%-20s", terminal)
	default:
		return color.CyanString("%-20s", "running")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dd", int(d.Hours())/24)
}
