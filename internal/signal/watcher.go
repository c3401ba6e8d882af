// Package signal watches the .weft/signals directory for out-of-band
// run control: a cancel file aborts the run, a pause file holds new
// dispatches until cleared.
package signal

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	cancelFile = "cancel"
	pauseFile  = "pause"
)

// Watcher monitors the signals directory. Detection is event-driven
// through fsnotify with a direct stat fallback, so a signal dropped while
// the watcher was down is still seen.
type Watcher struct {
	weftDir string

	mu          sync.RWMutex
	cancelSeen  bool
	pauseSeen   bool
	cancelFuncs []context.CancelFunc

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New creates a Watcher rooted at the project's .weft directory. The
// signals directory is created if missing. A failed fsnotify setup is not
// fatal; stat fallback still works.
func New(projectRoot string) (*Watcher, error) {
	weftDir := filepath.Join(projectRoot, ".weft")
	if err := os.MkdirAll(filepath.Join(weftDir, "signals"), 0755); err != nil {
		return nil, err
	}

	w := &Watcher{
		weftDir: weftDir,
		done:    make(chan struct{}),
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return w, nil
	}
	if err := fsw.Add(filepath.Join(weftDir, "signals")); err != nil {
		fsw.Close()
		return w, nil
	}
	w.watcher = fsw
	go w.watch()

	return w, nil
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			switch filepath.Base(event.Name) {
			case cancelFile:
				w.markCancelled()
			case pauseFile:
				w.mu.Lock()
				w.pauseSeen = true
				w.mu.Unlock()
			}
		case <-w.watcher.Errors:
			// Keep watching; the stat fallback covers missed events.
		}
	}
}

func (w *Watcher) markCancelled() {
	w.mu.Lock()
	w.cancelSeen = true
	funcs := w.cancelFuncs
	w.cancelFuncs = nil
	w.mu.Unlock()

	for _, cancel := range funcs {
		cancel()
	}
}

// Bind derives a context that is cancelled when the cancel signal
// arrives. If the signal was already seen, the returned context is
// cancelled immediately.
func (w *Watcher) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	w.mu.Lock()
	already := w.cancelSeen
	if !already {
		w.cancelFuncs = append(w.cancelFuncs, cancel)
	}
	w.mu.Unlock()

	if already {
		cancel()
	}
	return ctx, cancel
}

// Cancelled reports whether the cancel signal has been received, checking
// the file directly in case the watcher missed the event.
func (w *Watcher) Cancelled() bool {
	if _, err := os.Stat(w.signalPath(cancelFile)); err == nil {
		w.markCancelled()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cancelSeen
}

// Paused reports whether the pause signal is present.
func (w *Watcher) Paused() bool {
	if _, err := os.Stat(w.signalPath(pauseFile)); err == nil {
		w.mu.Lock()
		w.pauseSeen = true
		w.mu.Unlock()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pauseSeen
}

// SendCancel creates the cancel signal file.
func (w *Watcher) SendCancel() error {
	return os.WriteFile(w.signalPath(cancelFile), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendPause creates the pause signal file.
func (w *Watcher) SendPause() error {
	return os.WriteFile(w.signalPath(pauseFile), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// ClearPause removes the pause signal so held dispatches resume.
func (w *Watcher) ClearPause() error {
	w.mu.Lock()
	w.pauseSeen = false
	w.mu.Unlock()

	err := os.Remove(w.signalPath(pauseFile))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes all signal files and resets signal state. Contexts
// already cancelled stay cancelled.
func (w *Watcher) Clear() {
	w.mu.Lock()
	w.cancelSeen = false
	w.pauseSeen = false
	w.mu.Unlock()

	os.Remove(w.signalPath(cancelFile))
	os.Remove(w.signalPath(pauseFile))
}

// WeftDir returns the path to the .weft directory.
func (w *Watcher) WeftDir() string {
	return w.weftDir
}

// Close shuts down the watcher.
func (w *Watcher) Close() {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *Watcher) signalPath(name string) string {
	return filepath.Join(w.weftDir, "signals", name)
}
