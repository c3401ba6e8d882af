package backend

import (
	"context"
	"fmt"
	"os"
	"sync"

	iexec "github.com/weftlabs/weft/internal/exec"
)

// Sandbox is an isolated backend that combines a private filesystem
// workspace with command execution. File operations delegate to a
// Filesystem rooted at a dedicated directory; Run executes shell commands
// inside that directory. A single sandbox cannot safely interleave
// commands from unrelated tasks, so Run calls are serialized per instance.
type Sandbox struct {
	*Filesystem

	runner iexec.CommandRunner
	env    []string

	// runMu serializes command execution on this sandbox.
	runMu sync.Mutex
}

// SandboxOption configures a Sandbox.
type SandboxOption func(*Sandbox)

// WithEnv sets additional environment variables (KEY=VALUE) for commands
// executed in the sandbox. Entries are passed to the runner as-is, on top
// of the inherited environment.
func WithEnv(env []string) SandboxOption {
	return func(s *Sandbox) { s.env = env }
}

// WithCommandRunner sets the command runner. The default runs commands on
// the host through sh -c.
func WithCommandRunner(r iexec.CommandRunner) SandboxOption {
	return func(s *Sandbox) { s.runner = r }
}

// NewSandbox creates a sandbox rooted at dir. If dir is empty a temporary
// directory is created and owned by the sandbox.
func NewSandbox(dir string, opts ...SandboxOption) (*Sandbox, error) {
	owned := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "weft-sandbox-")
		if err != nil {
			return nil, fmt.Errorf("create sandbox dir: %w", err)
		}
		dir = tmp
		owned = true
	}

	fsb, err := NewFilesystem(dir)
	if err != nil {
		if owned {
			_ = os.RemoveAll(dir)
		}
		return nil, err
	}

	s := &Sandbox{
		Filesystem: fsb,
		runner:     iexec.NewRunner(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run executes a shell command inside the sandbox root. Executions are
// serialized: a second Run blocks until the first completes.
func (s *Sandbox) Run(ctx context.Context, command string) (*RunResult, error) {
	if command == "" {
		return nil, fmt.Errorf("empty command")
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	stdout, stderr, exitCode, err := s.runner.RunShell(ctx, s.Root(), s.env, command)
	if err != nil {
		return nil, fmt.Errorf("run command in sandbox: %w", err)
	}
	return &RunResult{
		Stdout:   string(stdout),
		Stderr:   string(stderr),
		ExitCode: exitCode,
	}, nil
}

// Verify Sandbox implements both capabilities at compile time.
var (
	_ Backend = (*Sandbox)(nil)
	_ Runner  = (*Sandbox)(nil)
)
