// Package track maintains per-task lifecycle status and generated
// artifacts for one workflow run.
package track

import (
	"fmt"
	"sync"

	"github.com/weftlabs/weft/pkg/models"
)

// Tracker maps task identifiers to lifecycle status and records the files
// each task produced. Transitions follow a fixed graph:
//
//	pending -> in_progress -> {done, failed}
//	failed  -> in_progress   (retry)
//
// done is terminal within an iteration; re-opening a done task requires a
// new iteration, which resets it through Reopen.
type Tracker struct {
	mu        sync.RWMutex
	status    map[string]models.TaskStatus
	artifacts map[string][]string
	order     []string
}

// New creates an empty Tracker. Initialize must be called before any
// transition.
func New() *Tracker {
	return &Tracker{
		status:    make(map[string]models.TaskStatus),
		artifacts: make(map[string][]string),
	}
}

// Initialize registers the task identifiers and sets every task to
// pending. Identifiers registered here are the only ones the tracker will
// ever accept; keys are never removed.
func (t *Tracker) Initialize(ids []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		if _, ok := t.status[id]; ok {
			continue
		}
		t.status[id] = models.TaskStatusPending
		t.order = append(t.order, id)
	}
}

// Transition moves a task to a new status, enforcing the legal transition
// graph. Transitioning an unknown task identifier is a programming error
// and panics. Repeating the current terminal status is a no-op so that
// marking a task done twice cannot double-count work.
func (t *Tracker) Transition(id string, next models.TaskStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.status[id]
	if !ok {
		panic(fmt.Sprintf("track: transition of unknown task %q", id))
	}
	if current == next {
		return nil
	}
	if !legalTransition(current, next) {
		return fmt.Errorf("illegal transition for task %s: %s -> %s", id, current, next)
	}

	t.status[id] = next
	return nil
}

func legalTransition(from, to models.TaskStatus) bool {
	switch from {
	case models.TaskStatusPending:
		return to == models.TaskStatusInProgress
	case models.TaskStatusInProgress:
		return to == models.TaskStatusDone || to == models.TaskStatusFailed
	case models.TaskStatusFailed:
		return to == models.TaskStatusInProgress
	case models.TaskStatusDone:
		// A completed task cannot be un-done within the same iteration.
		return false
	default:
		return false
	}
}

// Reopen forces a task back to in_progress at an iteration boundary.
// It is the orchestrator's edge for redispatching done-but-flagged and
// failed tasks; it still panics on unknown identifiers.
func (t *Tracker) Reopen(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.status[id]; !ok {
		panic(fmt.Sprintf("track: reopen of unknown task %q", id))
	}
	t.status[id] = models.TaskStatusInProgress
}

// Status returns the current status of a task. Unknown identifiers panic.
func (t *Tracker) Status(id string) models.TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.status[id]
	if !ok {
		panic(fmt.Sprintf("track: status of unknown task %q", id))
	}
	return s
}

// Statuses returns a copy of the full status map.
func (t *Tracker) Statuses() map[string]models.TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]models.TaskStatus, len(t.status))
	for id, s := range t.status {
		out[id] = s
	}
	return out
}

// AllSettled returns true once every task is done or failed.
func (t *Tracker) AllSettled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, s := range t.status {
		if !s.Terminal() {
			return false
		}
	}
	return len(t.status) > 0
}

// Failed returns the identifiers of failed tasks in registration order.
func (t *Tracker) Failed() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	for _, id := range t.order {
		if t.status[id] == models.TaskStatusFailed {
			out = append(out, id)
		}
	}
	return out
}

// RecordArtifacts stores the files the dispatcher reported as generated
// for a task. Repeated paths are deduplicated per task so a retried task
// does not report its artifact once per attempt.
func (t *Tracker) RecordArtifacts(id string, paths []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.status[id]; !ok {
		panic(fmt.Sprintf("track: artifacts for unknown task %q", id))
	}

	seen := make(map[string]bool, len(t.artifacts[id]))
	for _, p := range t.artifacts[id] {
		seen[p] = true
	}
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		t.artifacts[id] = append(t.artifacts[id], p)
	}
}

// Artifacts returns the recorded files for a task, in first-report order.
func (t *Tracker) Artifacts(id string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, len(t.artifacts[id]))
	copy(out, t.artifacts[id])
	return out
}

// Len returns the number of tracked tasks.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.status)
}
