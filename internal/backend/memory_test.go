package backend

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryWriteRead(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Write(ctx, "/src/app.py", "print('hi')"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := m.Read(ctx, "/src/app.py")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != "print('hi')" {
		t.Errorf("Read = %q, want %q", got, "print('hi')")
	}
}

func TestMemoryWriteReplaces(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Write(ctx, "/a.txt", "first"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := m.Write(ctx, "/a.txt", "second"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := m.Read(ctx, "/a.txt")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != "second" {
		t.Errorf("Read = %q, want whole-content replacement", got)
	}
}

func TestMemoryReadNotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.Read(context.Background(), "/missing.txt")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read missing path: got %v, want ErrNotFound", err)
	}
}

func TestMemoryPathNormalization(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	// Writes without a leading slash resolve to the same path.
	if err := m.Write(ctx, "notes.txt", "n"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := m.Read(ctx, "/notes.txt"); err != nil {
		t.Errorf("Read normalized path failed: %v", err)
	}
}

func TestMemoryList(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	files := map[string]string{
		"/src/app.py":        "a",
		"/src/util/paths.py": "bb",
		"/README.md":         "ccc",
	}
	for p, content := range files {
		if err := m.Write(ctx, p, content); err != nil {
			t.Fatalf("Write %s failed: %v", p, err)
		}
	}

	entries, err := m.List(ctx, "/src")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	// Expect 2 files plus the implied /src/util directory.
	var filesSeen, dirsSeen int
	for _, e := range entries {
		if e.IsDir {
			dirsSeen++
			if e.Path != "/src/util" {
				t.Errorf("unexpected dir entry %q", e.Path)
			}
		} else {
			filesSeen++
		}
	}
	if filesSeen != 2 || dirsSeen != 1 {
		t.Errorf("List = %d files, %d dirs, want 2 files, 1 dir", filesSeen, dirsSeen)
	}

	// Entries are sorted.
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Path > entries[i].Path {
			t.Errorf("entries not sorted: %q before %q", entries[i-1].Path, entries[i].Path)
		}
	}

	// Size reflects content length.
	for _, e := range entries {
		if e.Path == "/src/util/paths.py" && e.Size != 2 {
			t.Errorf("Size = %d, want 2", e.Size)
		}
	}
}

func TestMemoryRemove(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Write(ctx, "/a.txt", "x"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := m.Remove(ctx, "/a.txt"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := m.Read(ctx, "/a.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read after Remove: got %v, want ErrNotFound", err)
	}
	if err := m.Remove(ctx, "/a.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove twice: got %v, want ErrNotFound", err)
	}
}

func TestMemoryCancelledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Write(ctx, "/a.txt", "x"); err == nil {
		t.Error("expected error writing with cancelled context")
	}
}

func TestAsRunner(t *testing.T) {
	if _, ok := AsRunner(NewMemory()); ok {
		t.Error("memory backend should not expose the run capability")
	}
}
