// Package backend provides the workspace storage surface that workflow
// workers read from and write to. Three variants exist: an ephemeral
// in-memory store, a host-filesystem store, and an isolated sandbox that
// additionally executes commands.
package backend

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound indicates the requested path does not exist in the backend.
var ErrNotFound = errors.New("path not found")

// Error wraps a backend operation failure with the operation and path.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Entry describes one path returned by List.
type Entry struct {
	// Path is the normalized workspace path.
	Path string `json:"path"`
	// IsDir indicates whether the entry is a directory.
	IsDir bool `json:"is_dir"`
	// Size is the content size in bytes. Zero for directories.
	Size int64 `json:"size"`
}

// Backend is the key-path store the workflow writes artifacts through.
// Paths are hierarchical strings with "/" separators. Writes are
// whole-content replacements; a Write followed by a Read of the same path
// within a run observes the written content.
type Backend interface {
	// Write stores content at path, replacing any previous content.
	Write(ctx context.Context, path, content string) error
	// Read returns the content at path, or ErrNotFound.
	Read(ctx context.Context, path string) (string, error)
	// List returns the entries under prefix, sorted by path.
	List(ctx context.Context, prefix string) ([]Entry, error)
	// Remove deletes the content at path, or returns ErrNotFound.
	Remove(ctx context.Context, path string) error
}

// RunResult holds the outcome of one sandbox command execution.
type RunResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Runner is the optional command execution capability. Only the sandbox
// backend supports it; callers must query for it rather than assume it.
type Runner interface {
	// Run executes a shell command inside the backend's isolated
	// environment. Executions on the same sandbox are serialized.
	Run(ctx context.Context, command string) (*RunResult, error)
}

// AsRunner reports whether the backend supports command execution and
// returns the Runner if so.
func AsRunner(b Backend) (Runner, bool) {
	r, ok := b.(Runner)
	return r, ok
}

// normalizePath canonicalizes a workspace path: forces a leading slash,
// collapses duplicate separators, and resolves "." and "..". Cleaning a
// rooted path cannot escape the workspace root.
func normalizePath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p), nil
}
