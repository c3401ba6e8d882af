package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestFS(t *testing.T) *Filesystem {
	t.Helper()
	f, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem failed: %v", err)
	}
	return f
}

func TestFilesystemWriteRead(t *testing.T) {
	f := newTestFS(t)
	ctx := context.Background()

	if err := f.Write(ctx, "/src/main.py", "import os"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := f.Read(ctx, "/src/main.py")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != "import os" {
		t.Errorf("Read = %q, want %q", got, "import os")
	}

	// The file lands under the root on the host.
	if _, err := os.Stat(filepath.Join(f.Root(), "src", "main.py")); err != nil {
		t.Errorf("expected file under root: %v", err)
	}
}

func TestFilesystemReadNotFound(t *testing.T) {
	f := newTestFS(t)

	_, err := f.Read(context.Background(), "/nope.txt")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read missing path: got %v, want ErrNotFound", err)
	}
}

func TestFilesystemTraversalContained(t *testing.T) {
	f := newTestFS(t)
	ctx := context.Background()

	// Dot-dot segments resolve against the workspace root, never above it.
	if err := f.Write(ctx, "/../escape.txt", "x"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.Root(), "escape.txt")); err != nil {
		t.Errorf("expected traversal write contained in root: %v", err)
	}
	parent := filepath.Dir(f.Root())
	if _, err := os.Stat(filepath.Join(parent, "escape.txt")); err == nil {
		t.Error("write escaped the workspace root")
	}
}

func TestFilesystemList(t *testing.T) {
	f := newTestFS(t)
	ctx := context.Background()

	for _, p := range []string{"/a/one.txt", "/a/b/two.txt", "/three.txt"} {
		if err := f.Write(ctx, p, "content"); err != nil {
			t.Fatalf("Write %s failed: %v", p, err)
		}
	}

	entries, err := f.List(ctx, "/a")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	wantPaths := map[string]bool{"/a/b": true, "/a/b/two.txt": false, "/a/one.txt": false}
	if len(entries) != len(wantPaths) {
		t.Fatalf("List returned %d entries, want %d: %+v", len(entries), len(wantPaths), entries)
	}
	for _, e := range entries {
		isDir, ok := wantPaths[e.Path]
		if !ok {
			t.Errorf("unexpected entry %q", e.Path)
			continue
		}
		if e.IsDir != isDir {
			t.Errorf("entry %q IsDir = %v, want %v", e.Path, e.IsDir, isDir)
		}
		if !e.IsDir && e.Size != int64(len("content")) {
			t.Errorf("entry %q Size = %d, want %d", e.Path, e.Size, len("content"))
		}
	}
}

func TestFilesystemListMissingPrefix(t *testing.T) {
	f := newTestFS(t)

	entries, err := f.List(context.Background(), "/does/not/exist")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("List missing prefix = %d entries, want 0", len(entries))
	}
}

func TestFilesystemRemove(t *testing.T) {
	f := newTestFS(t)
	ctx := context.Background()

	if err := f.Write(ctx, "/a.txt", "x"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := f.Remove(ctx, "/a.txt"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := f.Remove(ctx, "/a.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove twice: got %v, want ErrNotFound", err)
	}
}
