package worker

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultTranscriptCap is the default maximum number of retained entries.
const DefaultTranscriptCap = 40

// elisionMarker is inserted where older entries were evicted.
const elisionMarker = "[earlier conversation elided]"

// Entry is one turn in a worker conversation.
type Entry struct {
	// Role is "user" or "assistant".
	Role string
	// Content is the turn's text.
	Content string
}

// Transcript is an appendable, size-bounded conversation log that callers
// thread across invocations for multi-turn continuity. The dispatcher
// appends to it but never interprets its contents. When the entry cap is
// exceeded the oldest entries are evicted and replaced by a single elision
// marker, so growth stays bounded across iterations.
type Transcript struct {
	mu         sync.Mutex
	entries    []Entry
	maxEntries int
	elided     int
}

// NewTranscript creates a transcript bounded to maxEntries. Values below 2
// fall back to DefaultTranscriptCap.
func NewTranscript(maxEntries int) *Transcript {
	if maxEntries < 2 {
		maxEntries = DefaultTranscriptCap
	}
	return &Transcript{maxEntries: maxEntries}
}

// Append adds one turn, evicting the oldest turns past the cap.
func (t *Transcript) Append(role, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, Entry{Role: role, Content: content})
	if over := len(t.entries) - t.maxEntries; over > 0 {
		t.elided += over
		t.entries = append(t.entries[:0:0], t.entries[over:]...)
	}
}

// Entries returns a copy of the retained turns.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Elided returns how many turns have been evicted so far.
func (t *Transcript) Elided() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elided
}

// Render produces the transcript as prompt context. Evicted history is
// represented by a marker noting how many turns were dropped.
func (t *Transcript) Render() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) == 0 {
		return ""
	}

	var b strings.Builder
	if t.elided > 0 {
		fmt.Fprintf(&b, "%s (%d turns)\n", elisionMarker, t.elided)
	}
	for _, e := range t.entries {
		fmt.Fprintf(&b, "%s: %s\n", e.Role, e.Content)
	}
	return b.String()
}

// Len returns the number of retained turns.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
