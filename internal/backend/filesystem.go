package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Filesystem is a host-filesystem backend rooted at a directory. Workspace
// paths map to files under the root; the root itself is never escaped.
type Filesystem struct {
	root string
}

// NewFilesystem creates a filesystem backend rooted at dir, creating the
// directory if needed.
func NewFilesystem(dir string) (*Filesystem, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create root %s: %w", abs, err)
	}
	return &Filesystem{root: abs}, nil
}

// Root returns the host directory backing this workspace.
func (f *Filesystem) Root() string {
	return f.root
}

// hostPath maps a workspace path to a host path under the root.
func (f *Filesystem) hostPath(p string) (string, error) {
	clean, err := normalizePath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(clean)), nil
}

// Write stores content at path, creating parent directories as needed.
func (f *Filesystem) Write(ctx context.Context, p, content string) error {
	host, err := f.hostPath(p)
	if err != nil {
		return &Error{Op: "write", Path: p, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &Error{Op: "write", Path: p, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(host), 0755); err != nil {
		return &Error{Op: "write", Path: p, Err: err}
	}
	if err := os.WriteFile(host, []byte(content), 0644); err != nil {
		return &Error{Op: "write", Path: p, Err: err}
	}
	return nil
}

// Read returns the content at path, or ErrNotFound.
func (f *Filesystem) Read(ctx context.Context, p string) (string, error) {
	host, err := f.hostPath(p)
	if err != nil {
		return "", &Error{Op: "read", Path: p, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", &Error{Op: "read", Path: p, Err: err}
	}

	data, err := os.ReadFile(host)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &Error{Op: "read", Path: p, Err: ErrNotFound}
		}
		return "", &Error{Op: "read", Path: p, Err: err}
	}
	return string(data), nil
}

// List walks the tree under prefix and returns entries sorted by path.
func (f *Filesystem) List(ctx context.Context, prefix string) ([]Entry, error) {
	clean, err := normalizePath(prefix)
	if err != nil {
		return nil, &Error{Op: "list", Path: prefix, Err: err}
	}
	host := filepath.Join(f.root, filepath.FromSlash(clean))

	info, err := os.Stat(host)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &Error{Op: "list", Path: prefix, Err: err}
	}
	if !info.IsDir() {
		return []Entry{{Path: clean, Size: info.Size()}}, nil
	}

	var entries []Entry
	walkErr := filepath.WalkDir(host, func(hp string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if hp == host {
			return nil
		}

		rel, err := filepath.Rel(f.root, hp)
		if err != nil {
			return err
		}
		wp := "/" + filepath.ToSlash(rel)

		if d.IsDir() {
			entries = append(entries, Entry{Path: wp, IsDir: true})
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Path: wp, Size: fi.Size()})
		return nil
	})
	if walkErr != nil {
		return nil, &Error{Op: "list", Path: prefix, Err: walkErr}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Remove deletes the file at path, or returns ErrNotFound.
func (f *Filesystem) Remove(ctx context.Context, p string) error {
	host, err := f.hostPath(p)
	if err != nil {
		return &Error{Op: "remove", Path: p, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &Error{Op: "remove", Path: p, Err: err}
	}

	// Refuse to remove the workspace root itself.
	if strings.TrimSuffix(host, string(filepath.Separator)) == f.root {
		return &Error{Op: "remove", Path: p, Err: fmt.Errorf("refusing to remove workspace root")}
	}

	if err := os.Remove(host); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Error{Op: "remove", Path: p, Err: ErrNotFound}
		}
		return &Error{Op: "remove", Path: p, Err: err}
	}
	return nil
}

// Verify Filesystem implements Backend at compile time.
var _ Backend = (*Filesystem)(nil)
