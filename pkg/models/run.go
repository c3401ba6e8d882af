package models

import "time"

// RunRecord is one persisted workflow run, as stored in the run-history
// database and rendered by the status command.
type RunRecord struct {
	ID             string     `json:"id"`
	Request        string     `json:"request"`
	MaxIterations  int        `json:"max_iterations"`
	Iterations     int        `json:"iterations"`
	Terminal       string     `json:"terminal,omitempty"`
	FilesGenerated int        `json:"files_generated"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// Finished reports whether the run reached a terminal state.
func (r *RunRecord) Finished() bool {
	return r.FinishedAt != nil
}

// RunTaskRecord is the persisted status of one task within a run.
type RunTaskRecord struct {
	RunID       string   `json:"run_id"`
	TaskID      string   `json:"task_id"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Artifacts   []string `json:"artifacts,omitempty"`
}
