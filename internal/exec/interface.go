// Package exec provides an interface for command execution.
package exec

import (
	"context"
)

// CommandRunner defines the interface for running external commands.
// This abstraction allows the sandbox backend to be tested without
// spawning real processes.
type CommandRunner interface {
	// Run executes a command and returns stdout, stderr, and the exit code.
	// The working directory is set to workDir if non-empty. Entries in env
	// (KEY=VALUE) are appended to the inherited environment, so values may
	// contain spaces or shell metacharacters safely.
	Run(ctx context.Context, workDir string, env []string, name string, args ...string) (stdout, stderr []byte, exitCode int, err error)

	// RunShell executes a shell command through "sh -c".
	// This is a convenience method for running complex shell commands.
	RunShell(ctx context.Context, workDir string, env []string, command string) (stdout, stderr []byte, exitCode int, err error)
}
