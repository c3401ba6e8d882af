package backend

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an ephemeral in-memory backend. It is safe for concurrent use
// and is the default for tests and dry runs.
type Memory struct {
	mu    sync.RWMutex
	files map[string]string
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]string)}
}

// Write stores content at path, replacing any previous content.
func (m *Memory) Write(ctx context.Context, p, content string) error {
	clean, err := normalizePath(p)
	if err != nil {
		return &Error{Op: "write", Path: p, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &Error{Op: "write", Path: clean, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[clean] = content
	return nil
}

// Read returns the content at path, or ErrNotFound.
func (m *Memory) Read(ctx context.Context, p string) (string, error) {
	clean, err := normalizePath(p)
	if err != nil {
		return "", &Error{Op: "read", Path: p, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", &Error{Op: "read", Path: clean, Err: err}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[clean]
	if !ok {
		return "", &Error{Op: "read", Path: clean, Err: ErrNotFound}
	}
	return content, nil
}

// List returns the entries under prefix, sorted by path. Intermediate
// directories implied by stored files are reported once with IsDir set.
func (m *Memory) List(ctx context.Context, prefix string) ([]Entry, error) {
	clean, err := normalizePath(prefix)
	if err != nil {
		return nil, &Error{Op: "list", Path: prefix, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "list", Path: clean, Err: err}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	dirSeen := make(map[string]bool)
	var entries []Entry
	for p, content := range m.files {
		if !underPrefix(p, clean) {
			continue
		}
		entries = append(entries, Entry{Path: p, Size: int64(len(content))})
		for dir := parentDir(p); underPrefix(dir, clean) && dir != clean && !dirSeen[dir]; dir = parentDir(dir) {
			dirSeen[dir] = true
			entries = append(entries, Entry{Path: dir, IsDir: true})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Remove deletes the content at path, or returns ErrNotFound.
func (m *Memory) Remove(ctx context.Context, p string) error {
	clean, err := normalizePath(p)
	if err != nil {
		return &Error{Op: "remove", Path: p, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &Error{Op: "remove", Path: clean, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[clean]; !ok {
		return &Error{Op: "remove", Path: clean, Err: ErrNotFound}
	}
	delete(m.files, clean)
	return nil
}

func underPrefix(p, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func parentDir(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}

// Verify Memory implements Backend at compile time.
var _ Backend = (*Memory)(nil)
