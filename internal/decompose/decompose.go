package decompose

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/weftlabs/weft/internal/backend"
	"github.com/weftlabs/weft/internal/worker"
	"github.com/weftlabs/weft/pkg/models"
)

// ManifestPath is the well-known workspace path the rendered task manifest
// is persisted to for external inspection.
const ManifestPath = "/workflow/tasks.txt"

// Decomposer invokes the decomposition worker and parses its output into
// task records.
type Decomposer struct {
	dispatcher *worker.Dispatcher
}

// New creates a Decomposer over the given dispatcher.
func New(dispatcher *worker.Dispatcher) *Decomposer {
	return &Decomposer{dispatcher: dispatcher}
}

// Decompose turns a request into an ordered task list. An empty request is
// a caller error. Zero extracted tasks is not an error. After parsing, the
// rendered manifest is persisted through the backend; a failed manifest
// write is reported in the log but does not invalidate the task list.
//
// The namespace prefixes task identifiers; pass "" for the first round and
// a fresh value (r2, r3, ...) when re-decomposing so earlier identifiers
// are never renumbered.
func (d *Decomposer) Decompose(ctx context.Context, request, namespace string, b backend.Backend) ([]*models.Task, error) {
	if strings.TrimSpace(request) == "" {
		return nil, fmt.Errorf("empty request")
	}

	out, err := d.dispatcher.Invoke(ctx, worker.NameDecomposer, request, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("invoke decomposer: %w", err)
	}

	tasks := Parse(out.Text, namespace)
	if len(tasks) == 0 {
		log.Printf("[decompose] no task blocks extracted from %d chars of output", len(out.Text))
		return tasks, nil
	}

	if b != nil {
		if err := b.Write(ctx, ManifestPath, RenderManifest(tasks)); err != nil {
			log.Printf("[decompose] warning: failed to persist task manifest: %v", err)
		}
	}
	return tasks, nil
}

// RenderManifest produces the human-readable concatenation of all tasks,
// one block per task, blocks separated by a blank line.
func RenderManifest(tasks []*models.Task) string {
	blocks := make([]string, 0, len(tasks))
	for _, t := range tasks {
		var b strings.Builder
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(t.ID), firstLine(t.Description))
		for _, line := range restLines(t.Description) {
			fmt.Fprintf(&b, "%s\n", line)
		}
		for _, p := range t.TargetPaths {
			fmt.Fprintf(&b, "FILE: %s\n", p)
		}
		for _, r := range t.Requirements {
			fmt.Fprintf(&b, "REQUIRE: %s\n", r)
		}
		if t.AcceptanceCriteria != "" {
			fmt.Fprintf(&b, "ACCEPT: %s\n", t.AcceptanceCriteria)
		}
		blocks = append(blocks, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}

func restLines(s string) []string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return strings.Split(s[idx+1:], "\n")
	}
	return nil
}
