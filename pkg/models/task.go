package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusDone indicates the task completed successfully.
	TaskStatusDone TaskStatus = "done"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status ends the task's lifecycle for the
// current iteration. A failed task may be reopened; a done task may not.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusFailed
}

// Task represents one decomposed unit of work within a workflow run.
type Task struct {
	// ID is the unique identifier for this task, assigned positionally
	// at decomposition time (task_1, task_2, ...). IDs are stable for
	// the life of the run.
	ID string `json:"id"`
	// Description is the human-readable goal of the task.
	Description string `json:"description"`
	// TargetPaths lists the workspace paths this task is expected to
	// create or modify.
	TargetPaths []string `json:"target_paths,omitempty"`
	// Requirements is the ordered list of implementation constraints.
	Requirements []string `json:"requirements,omitempty"`
	// AcceptanceCriteria defines the condition for "done".
	AcceptanceCriteria string `json:"acceptance_criteria,omitempty"`
	// Status is the current lifecycle state of the task.
	Status TaskStatus `json:"status"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task was completed, if applicable.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Error contains the error message if the task failed.
	Error string `json:"error,omitempty"`
	// RetryCount is the number of times this task has been retried.
	RetryCount int `json:"retry_count,omitempty"`
}

// OverlapsWith returns true if the two tasks declare a common target path.
// Overlapping tasks must not be dispatched concurrently.
func (t *Task) OverlapsWith(other *Task) bool {
	if other == nil {
		return false
	}
	for _, p := range t.TargetPaths {
		for _, q := range other.TargetPaths {
			if p == q {
				return true
			}
		}
	}
	return false
}
