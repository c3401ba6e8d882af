package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/backend"
	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/llm"
	"github.com/weftlabs/weft/internal/signal"
	"github.com/weftlabs/weft/internal/state"
	"github.com/weftlabs/weft/internal/worker"
	"github.com/weftlabs/weft/internal/workflow"
	"github.com/weftlabs/weft/pkg/models"
)

var (
	runMaxIterations int
	runMaxWorkers    int
	runBackendKind   string
	runBackendRoot   string
	runModel         string
	runBedrock       bool
	runNoHistory     bool
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Run a code-generation workflow",
	Long: `Run the full workflow for one request.

The request is decomposed into tasks, tasks are implemented concurrently
(overlapping targets serialize), the result is reviewed, and flagged
tasks are redispatched until the review is satisfied or the iteration
budget runs out.

Backend selection (--backend):
  - filesystem: workspace rooted at a host directory (default)
  - sandbox:    filesystem plus serialized command execution
  - memory:     in-process only, nothing touches disk

Signals: 'weft cancel' (or creating .weft/signals/cancel) aborts the
run, 'weft pause' holds new task dispatches until 'weft resume', and
'weft run' also stops on SIGINT/SIGTERM.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWorkflow,
}

func init() {
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", -1, "Iteration budget (0 = single pass, -1 = config value)")
	runCmd.Flags().IntVar(&runMaxWorkers, "workers", 0, "Max concurrent task dispatches (0 = config value)")
	runCmd.Flags().StringVar(&runBackendKind, "backend", "", "Workspace backend: memory, filesystem, sandbox")
	runCmd.Flags().StringVar(&runBackendRoot, "root", "", "Workspace root directory for filesystem/sandbox backends")
	runCmd.Flags().StringVar(&runModel, "model", "", "Model to use for worker completions")
	runCmd.Flags().BoolVar(&runBedrock, "bedrock", false, "Route completions through AWS Bedrock")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "Skip recording this run in the history database")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	request := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyRunFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	b, err := buildBackend(cfg)
	if err != nil {
		return fmt.Errorf("build backend: %w", err)
	}

	registry := worker.DefaultRegistry()
	if cfg.Workers.RegistryPath != "" {
		registry, err = worker.LoadRegistry(cfg.Workers.RegistryPath)
		if err != nil {
			return fmt.Errorf("load worker registry: %w", err)
		}
	}

	apiKey, _ := config.GetAPIKey(cfg)
	client, err := llm.NewClient(llm.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return fmt.Errorf("create provider client: %w", err)
	}

	dispatcher := worker.NewDispatcher(registry, client,
		worker.WithTimeout(cfg.Dispatch.Timeout),
		worker.WithMaxRetries(cfg.Dispatch.MaxRetries),
		worker.WithBackoff(cfg.Dispatch.Backoff),
	)

	opts := []workflow.Option{
		workflow.WithMaxIterations(cfg.Workflow.MaxIterations),
		workflow.WithMaxWorkers(cfg.Workflow.MaxWorkers),
	}

	var store *state.DB
	if cfg.History.Enabled && !runNoHistory {
		dbPath := cfg.History.DBPath
		if dbPath == "" {
			dbPath = state.DefaultDBPath()
		}
		store, err = state.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open history db: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("migrate history db: %w", err)
		}
		opts = append(opts, workflow.WithStore(store))
	}

	ctx, cancel, watcher := runContext()
	defer cancel()
	if watcher != nil {
		opts = append(opts, workflow.WithPauseGate(watcher.Paused))
	}

	result := workflow.New(b, dispatcher, opts...).Run(ctx, request)

	printResult(result, client.Tracker())
	if result.Err != nil {
		return result.Err
	}
	return nil
}

// runContext derives the run context from OS signals and the project's
// signal directory. The watcher, when available, also backs the pause
// gate; it is nil only when the project directory cannot be watched.
func runContext() (context.Context, context.CancelFunc, *signal.Watcher) {
	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cwd, err := os.Getwd()
	if err != nil {
		return ctx, cancel, nil
	}
	watcher, err := signal.New(cwd)
	if err != nil {
		return ctx, cancel, nil
	}

	bound, boundCancel := watcher.Bind(ctx)
	return bound, func() {
		boundCancel()
		cancel()
		watcher.Close()
	}, watcher
}

func applyRunFlags(cfg *config.Config) {
	if runMaxIterations >= 0 {
		cfg.Workflow.MaxIterations = runMaxIterations
	}
	if runMaxWorkers > 0 {
		cfg.Workflow.MaxWorkers = runMaxWorkers
	}
	if runBackendKind != "" {
		cfg.Backend.Kind = runBackendKind
	}
	if runBackendRoot != "" {
		cfg.Backend.Root = runBackendRoot
	}
	if runModel != "" {
		cfg.Anthropic.Model = runModel
	}
	if runBedrock {
		cfg.Anthropic.UseBedrock = true
	}
}

func buildBackend(cfg *config.Config) (backend.Backend, error) {
	switch cfg.Backend.Kind {
	case "memory":
		return backend.NewMemory(), nil
	case "sandbox":
		return backend.NewSandbox(cfg.Backend.Root)
	default:
		root := cfg.Backend.Root
		if root == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			root = cwd
		}
		return backend.NewFilesystem(root)
	}
}

func printResult(result *workflow.Result, tracker *llm.TokenTracker) {
	fmt.Println()
	switch result.Terminal {
	case workflow.TerminalReady:
		fmt.Printf("%s Run %s finished: review ready\n", color.GreenString("✓"), result.RunID)
	case workflow.TerminalExhausted:
		fmt.Printf("%s Run %s stopped: iteration budget exhausted\n", color.YellowString("⚠"), result.RunID)
	default:
		fmt.Printf("%s Run %s aborted: %v\n", color.RedString("✗"), result.RunID, result.Err)
	}

	st := result.State
	fmt.Printf("  Iterations: %d/%d\n", st.IterationCount, st.MaxIterations)
	fmt.Printf("  Tasks: %d (%s)\n", len(st.Tasks), summarizeStatuses(st.ImplementationStatus))
	fmt.Printf("  Files generated: %d\n", len(st.FilesGenerated))

	if result.Review != nil {
		fmt.Printf("  Review: score %d/10, %d findings\n",
			result.Review.OverallScore, result.Review.FindingCount())
	}
	if tracker != nil && tracker.Calls() > 0 {
		in, out := tracker.Total()
		fmt.Printf("  Tokens: %d in / %d out across %d calls ($%.4f)\n",
			in, out, tracker.Calls(), tracker.Cost())
	}
}

func summarizeStatuses(statuses map[string]models.TaskStatus) string {
	counts := map[models.TaskStatus]int{}
	for _, s := range statuses {
		counts[s]++
	}

	var parts []string
	for _, s := range []models.TaskStatus{models.TaskStatusDone, models.TaskStatusFailed, models.TaskStatusInProgress, models.TaskStatusPending} {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
