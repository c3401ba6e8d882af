package workflow

import (
	"testing"

	"github.com/weftlabs/weft/pkg/models"
)

func TestDecide(t *testing.T) {
	c := NewController()

	tests := []struct {
		name          string
		ready         bool
		score         int
		iterations    int
		maxIterations int
		want          Decision
	}{
		{"ready finalizes", true, 4, 0, 3, DecideFinalizeReady},
		{"ready wins even at budget", true, 2, 3, 3, DecideFinalizeReady},
		{"not ready below budget iterates", false, 9, 1, 3, DecideIterate},
		{"high score never gates", false, 10, 0, 3, DecideIterate},
		{"budget reached exhausts", false, 5, 3, 3, DecideFinalizeExhausted},
		{"zero budget exhausts immediately", false, 8, 0, 0, DecideFinalizeExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			review := &models.ReviewResult{Ready: tt.ready, OverallScore: tt.score}
			got := c.Decide(review, tt.iterations, tt.maxIterations)
			if got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecideNilReview(t *testing.T) {
	c := NewController()
	if got := c.Decide(nil, 0, 3); got != DecideIterate {
		t.Errorf("Decide(nil) = %v, want DecideIterate", got)
	}
	if got := c.Decide(nil, 3, 3); got != DecideFinalizeExhausted {
		t.Errorf("Decide(nil) at budget = %v, want DecideFinalizeExhausted", got)
	}
}

func TestFlagged(t *testing.T) {
	c := NewController()

	tasks := []*models.Task{
		{ID: "task_1", TargetPaths: []string{"/src/auth.py"}},
		{ID: "task_2", TargetPaths: []string{"/src/db.py"}},
		{ID: "task_3", TargetPaths: []string{"/src/api.py"}},
	}
	statuses := map[string]models.TaskStatus{
		"task_1": models.TaskStatusDone,
		"task_2": models.TaskStatusFailed,
		"task_3": models.TaskStatusDone,
	}
	artifacts := func(id string) []string {
		if id == "task_1" {
			return []string{"/src/auth.py"}
		}
		return nil
	}
	review := &models.ReviewResult{
		SecurityIssues: []string{"src/auth.py stores the password in plain text"},
	}

	got := c.Flagged(tasks, statuses, artifacts, review)

	want := []string{"task_1", "task_2"}
	if len(got) != len(want) {
		t.Fatalf("Flagged() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Flagged()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFlaggedCleanTasksUntouched(t *testing.T) {
	c := NewController()

	tasks := []*models.Task{
		{ID: "task_1", TargetPaths: []string{"/src/a.py"}},
	}
	statuses := map[string]models.TaskStatus{"task_1": models.TaskStatusDone}
	review := &models.ReviewResult{Recommendations: []string{"consider more logging"}}

	got := c.Flagged(tasks, statuses, func(string) []string { return nil }, review)
	if len(got) != 0 {
		t.Errorf("Flagged() = %v, want none", got)
	}
}
