package worker

import (
	"strings"
	"testing"
)

func TestTranscriptAppendAndRender(t *testing.T) {
	tr := NewTranscript(10)
	tr.Append("user", "build a parser")
	tr.Append("assistant", "done")

	if tr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tr.Len())
	}

	rendered := tr.Render()
	if !strings.Contains(rendered, "user: build a parser") {
		t.Errorf("Render() missing user turn: %q", rendered)
	}
	if !strings.Contains(rendered, "assistant: done") {
		t.Errorf("Render() missing assistant turn: %q", rendered)
	}
	if strings.Contains(rendered, "elided") {
		t.Errorf("Render() mentions elision with no evictions: %q", rendered)
	}
}

func TestTranscriptEvictsOldest(t *testing.T) {
	tr := NewTranscript(4)
	for i := 0; i < 10; i++ {
		tr.Append("user", strings.Repeat("x", i+1))
	}

	if tr.Len() != 4 {
		t.Fatalf("Len() = %d, want cap of 4", tr.Len())
	}
	if tr.Elided() != 6 {
		t.Errorf("Elided() = %d, want 6", tr.Elided())
	}

	entries := tr.Entries()
	// The newest entries survive.
	if entries[len(entries)-1].Content != strings.Repeat("x", 10) {
		t.Errorf("newest entry lost: %q", entries[len(entries)-1].Content)
	}
	if entries[0].Content != strings.Repeat("x", 7) {
		t.Errorf("eviction kept wrong entries: %q", entries[0].Content)
	}

	rendered := tr.Render()
	if !strings.Contains(rendered, "elided") {
		t.Errorf("Render() should note elided history: %q", rendered)
	}
}

func TestTranscriptEmptyRender(t *testing.T) {
	tr := NewTranscript(0)
	if got := tr.Render(); got != "" {
		t.Errorf("Render() on empty transcript = %q, want empty", got)
	}
}
