package signal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(w.Close)
	return w
}

func TestNew_CreatesSignalsDir(t *testing.T) {
	root := t.TempDir()
	w, err := New(root)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	info, err := os.Stat(filepath.Join(root, ".weft", "signals"))
	if err != nil {
		t.Fatalf("signals dir missing: %v", err)
	}
	if !info.IsDir() {
		t.Error("signals path is not a directory")
	}
}

func TestCancelledViaFile(t *testing.T) {
	w := newTestWatcher(t)

	if w.Cancelled() {
		t.Fatal("Cancelled() before any signal")
	}

	if err := w.SendCancel(); err != nil {
		t.Fatalf("SendCancel failed: %v", err)
	}
	if !w.Cancelled() {
		t.Error("Cancelled() = false after SendCancel")
	}
}

func TestPaused(t *testing.T) {
	w := newTestWatcher(t)

	if w.Paused() {
		t.Fatal("Paused() before any signal")
	}
	if err := w.SendPause(); err != nil {
		t.Fatalf("SendPause failed: %v", err)
	}
	if !w.Paused() {
		t.Error("Paused() = false after SendPause")
	}
}

func TestClearPause(t *testing.T) {
	w := newTestWatcher(t)

	if err := w.SendPause(); err != nil {
		t.Fatalf("SendPause failed: %v", err)
	}
	if !w.Paused() {
		t.Fatal("Paused() = false after SendPause")
	}

	if err := w.ClearPause(); err != nil {
		t.Fatalf("ClearPause failed: %v", err)
	}
	if w.Paused() {
		t.Error("Paused() = true after ClearPause")
	}

	// Clearing with no pause file present is not an error.
	if err := w.ClearPause(); err != nil {
		t.Errorf("ClearPause on cleared state failed: %v", err)
	}
}

func TestClear(t *testing.T) {
	w := newTestWatcher(t)

	if err := w.SendCancel(); err != nil {
		t.Fatalf("SendCancel failed: %v", err)
	}
	if err := w.SendPause(); err != nil {
		t.Fatalf("SendPause failed: %v", err)
	}
	if !w.Cancelled() || !w.Paused() {
		t.Fatal("signals not registered before Clear")
	}

	w.Clear()

	if w.Cancelled() {
		t.Error("Cancelled() = true after Clear")
	}
	if w.Paused() {
		t.Error("Paused() = true after Clear")
	}
}

func TestBindCancelsContext(t *testing.T) {
	w := newTestWatcher(t)

	ctx, cancel := w.Bind(context.Background())
	defer cancel()

	if err := w.SendCancel(); err != nil {
		t.Fatalf("SendCancel failed: %v", err)
	}

	// The watcher may deliver the event asynchronously; the stat
	// fallback guarantees detection either way.
	deadline := time.After(2 * time.Second)
	for {
		w.Cancelled()
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			t.Fatal("context not cancelled after cancel signal")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestBindAfterCancel(t *testing.T) {
	w := newTestWatcher(t)

	if err := w.SendCancel(); err != nil {
		t.Fatalf("SendCancel failed: %v", err)
	}
	w.Cancelled()

	ctx, cancel := w.Bind(context.Background())
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context bound after cancel signal was not cancelled")
	}
}
