package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/weftlabs/weft/internal/backend"
	"github.com/weftlabs/weft/pkg/models"
)

// Request is the payload handed to a Runner for one completion.
type Request struct {
	// System is the worker's instruction set.
	System string
	// Prompt is the caller-provided payload.
	Prompt string
	// Context is the rendered conversation transcript, possibly empty.
	Context string
}

// Runner is the opaque capability that turns a request into text. The
// production implementation calls a language-model provider; tests use
// fakes.
type Runner interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Output is the result of one worker invocation. Exactly one of Text or
// Review is populated, matching the worker's declared output kind.
type Output struct {
	// Text is the free-form output for OutputText workers.
	Text string
	// Review is the structured verdict for OutputReview workers.
	Review *models.ReviewResult
	// Files lists workspace paths written to the backend while applying
	// the worker's file blocks, in emission order.
	Files []string
	// Runs holds the results of the worker's RUN lines, in emission
	// order. Empty when the backend cannot execute commands.
	Runs []CommandRun
}

// CommandRun pairs one executed RUN line with its captured result.
type CommandRun struct {
	Command string
	Result  backend.RunResult
}

// Dispatcher invokes named workers against a shared backend with per-call
// timeouts and bounded retry on transient failures.
type Dispatcher struct {
	registry   *Registry
	runner     Runner
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout sets the per-invocation timeout. Default 2 minutes.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) { dp.timeout = d }
}

// WithMaxRetries sets how many times a transient failure is retried.
// Default 2.
func WithMaxRetries(n int) DispatcherOption {
	return func(dp *Dispatcher) { dp.maxRetries = n }
}

// WithBackoff sets the base backoff between retries; each retry doubles
// it. Default 500ms.
func WithBackoff(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) { dp.backoff = d }
}

// NewDispatcher creates a Dispatcher over the given registry and runner.
func NewDispatcher(registry *Registry, runner Runner, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:   registry,
		runner:     runner,
		timeout:    2 * time.Minute,
		maxRetries: 2,
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Invoke runs the named worker with the payload. The transcript, when
// non-nil, is rendered into the request and the exchange is appended to it
// afterward. Text workers may emit FILE blocks which are written through
// the backend, and RUN lines which are executed when the backend supports
// command execution, their results fed back into the transcript so the
// worker sees them on redispatch. Review workers must return a JSON
// object matching ReviewResult or the invocation fails with a
// ContractError.
func (d *Dispatcher) Invoke(ctx context.Context, name, payload string, b backend.Backend, tr *Transcript) (*Output, error) {
	spec, err := d.registry.Resolve(name)
	if err != nil {
		return nil, err
	}

	req := Request{System: spec.Instructions, Prompt: payload}
	if tr != nil {
		req.Context = tr.Render()
	}

	raw, err := d.complete(ctx, name, req)
	if err != nil {
		return nil, err
	}

	if tr != nil {
		tr.Append("user", payload)
		tr.Append("assistant", raw)
	}

	out := &Output{}
	switch spec.Output {
	case OutputReview:
		review, err := ParseReview(raw)
		if err != nil {
			return nil, &ContractError{Worker: name, Err: err}
		}
		out.Review = review
	default:
		out.Text = raw
		if b != nil {
			files, err := applyFileBlocks(ctx, b, raw)
			if err != nil {
				// Write failures surface immediately: blind retry risks
				// duplicate side effects.
				return nil, err
			}
			out.Files = files

			if runner, ok := backend.AsRunner(b); ok {
				runs, err := applyRunLines(ctx, runner, raw)
				if err != nil {
					return nil, err
				}
				out.Runs = runs
				if tr != nil && len(runs) > 0 {
					tr.Append("user", renderRunResults(runs))
				}
			}
		}
	}
	return out, nil
}

// complete calls the runner with a per-attempt timeout, retrying transient
// failures with exponential backoff up to the retry budget.
func (d *Dispatcher) complete(ctx context.Context, name string, req Request) (string, error) {
	var lastErr error
	backoff := d.backoff

	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[dispatch] worker %s: retry %d/%d after %v", name, attempt, d.maxRetries, lastErr)
			select {
			case <-ctx.Done():
				return "", &TransientError{Worker: name, Err: ctx.Err()}
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
		raw, err := d.runner.Complete(attemptCtx, req)
		cancel()

		if err == nil {
			return raw, nil
		}
		lastErr = err

		// A cancelled parent context is not retryable; a per-attempt
		// deadline is treated like any other transient provider failure.
		if ctx.Err() != nil {
			return "", &TransientError{Worker: name, Err: ctx.Err()}
		}
	}
	return "", &TransientError{Worker: name, Err: lastErr}
}

// ParseReview extracts the first JSON object from raw and decodes it as a
// ReviewResult, clamping the score into range.
func ParseReview(raw string) (*models.ReviewResult, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found in review output (%d chars)", len(raw))
	}

	var review models.ReviewResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &review); err != nil {
		return nil, fmt.Errorf("unmarshal review JSON: %w", err)
	}
	review.ClampScore()
	return &review, nil
}

// fileMarker opens a file block in text worker output; endFileMarker
// closes it. runMarker requests command execution in the workspace.
const (
	fileMarker    = "FILE:"
	endFileMarker = "END FILE"
	runMarker     = "RUN:"
)

// applyFileBlocks scans text output for FILE blocks and writes each one
// through the backend. Returns the written paths in emission order.
func applyFileBlocks(ctx context.Context, b backend.Backend, raw string) ([]string, error) {
	var files []string
	lines := strings.Split(raw, "\n")

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, fileMarker) {
			continue
		}
		path := strings.TrimSpace(strings.TrimPrefix(trimmed, fileMarker))
		if path == "" {
			continue
		}

		var content []string
		j := i + 1
		for ; j < len(lines); j++ {
			inner := strings.TrimSpace(lines[j])
			if inner == endFileMarker || strings.HasPrefix(inner, fileMarker) {
				break
			}
			content = append(content, lines[j])
		}

		if err := b.Write(ctx, path, strings.Join(content, "\n")); err != nil {
			return files, fmt.Errorf("apply file block %s: %w", path, err)
		}
		files = append(files, path)

		if j < len(lines) && strings.TrimSpace(lines[j]) == endFileMarker {
			i = j
		} else {
			i = j - 1
		}
	}
	return files, nil
}

// applyRunLines executes each RUN line in emission order. Lines inside
// FILE blocks are file content, not commands. A non-zero exit code is a
// result, not an error; only a runner failure aborts the invocation.
func applyRunLines(ctx context.Context, runner backend.Runner, raw string) ([]CommandRun, error) {
	var runs []CommandRun
	inFile := false

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, fileMarker):
			inFile = true
		case trimmed == endFileMarker:
			inFile = false
		case !inFile && strings.HasPrefix(trimmed, runMarker):
			command := strings.TrimSpace(strings.TrimPrefix(trimmed, runMarker))
			if command == "" {
				continue
			}
			result, err := runner.Run(ctx, command)
			if err != nil {
				return runs, fmt.Errorf("run %q: %w", command, err)
			}
			log.Printf("[dispatch] ran %q: exit %d", command, result.ExitCode)
			runs = append(runs, CommandRun{Command: command, Result: *result})
		}
	}
	return runs, nil
}

// renderRunResults formats executed commands for the transcript so a
// redispatched worker sees what its verification runs produced.
func renderRunResults(runs []CommandRun) string {
	var b strings.Builder
	b.WriteString("Command results:")
	for _, r := range runs {
		fmt.Fprintf(&b, "\n$ %s (exit %d)", r.Command, r.Result.ExitCode)
		if out := strings.TrimRight(r.Result.Stdout, "\n"); out != "" {
			fmt.Fprintf(&b, "\n%s", out)
		}
		if errOut := strings.TrimRight(r.Result.Stderr, "\n"); errOut != "" {
			fmt.Fprintf(&b, "\nstderr: %s", errOut)
		}
	}
	return b.String()
}
