package decompose

import (
	"testing"

	"github.com/weftlabs/weft/pkg/models"
)

func TestParseTwoTasks(t *testing.T) {
	output := "TASK_1: A\nFILE: a.py\nTASK_2: B\nFILE: b.py"

	tasks := Parse(output, "")
	if len(tasks) != 2 {
		t.Fatalf("Parse returned %d tasks, want 2", len(tasks))
	}

	if tasks[0].ID != "task_1" || tasks[1].ID != "task_2" {
		t.Errorf("IDs = %s, %s, want task_1, task_2", tasks[0].ID, tasks[1].ID)
	}
	if tasks[0].Description != "A" {
		t.Errorf("task_1 description = %q, want %q", tasks[0].Description, "A")
	}
	if len(tasks[0].TargetPaths) != 1 || tasks[0].TargetPaths[0] != "a.py" {
		t.Errorf("task_1 paths = %v, want [a.py]", tasks[0].TargetPaths)
	}
	if len(tasks[1].TargetPaths) != 1 || tasks[1].TargetPaths[0] != "b.py" {
		t.Errorf("task_2 paths = %v, want [b.py]", tasks[1].TargetPaths)
	}
	// No cross-contamination between blocks.
	for _, p := range tasks[0].TargetPaths {
		if p == "b.py" {
			t.Error("task_1 contains task_2's file")
		}
	}
}

func TestParseZeroTasks(t *testing.T) {
	tasks := Parse("nothing resembling a marker here\njust prose", "")
	if len(tasks) != 0 {
		t.Errorf("Parse = %d tasks, want 0", len(tasks))
	}
	// Zero tasks is a valid outcome, not an error: the slice is usable.
	if tasks == nil {
		// An empty non-nil slice is what Parse promises.
		t.Log("Parse returned nil slice; callers treat it as empty")
	}
}

func TestParseMarkerVariants(t *testing.T) {
	output := "task 1: lowercase spaced\nTASK_2. dot terminated\nTask_3:   extra space"

	tasks := Parse(output, "")
	if len(tasks) != 3 {
		t.Fatalf("Parse = %d tasks, want 3", len(tasks))
	}
	if tasks[0].Description != "lowercase spaced" {
		t.Errorf("description = %q", tasks[0].Description)
	}
	if tasks[1].Description != "dot terminated" {
		t.Errorf("description = %q", tasks[1].Description)
	}
}

func TestParsePositionalIDsIgnoreMarkerNumbers(t *testing.T) {
	// Marker numbers are cosmetic; IDs stay dense and positional.
	output := "TASK_7: first\nTASK_3: second"

	tasks := Parse(output, "")
	if len(tasks) != 2 {
		t.Fatalf("Parse = %d tasks, want 2", len(tasks))
	}
	if tasks[0].ID != "task_1" || tasks[1].ID != "task_2" {
		t.Errorf("IDs = %s, %s, want positional task_1, task_2", tasks[0].ID, tasks[1].ID)
	}
}

func TestParseNamespace(t *testing.T) {
	tasks := Parse("TASK_1: again", "r2")
	if len(tasks) != 1 {
		t.Fatalf("Parse = %d tasks, want 1", len(tasks))
	}
	if tasks[0].ID != "r2.task_1" {
		t.Errorf("ID = %s, want r2.task_1", tasks[0].ID)
	}
}

func TestParseStructuredFields(t *testing.T) {
	output := `TASK_1: Build the validators module
Create a module with a User model.

Validate emails and ages.
FILE: src/validators.py
FILE: tests/test_validators.py
REQUIRE: use type hints
REQUIRE: collect all validation errors
ACCEPT: all listed validations implemented and tested`

	tasks := Parse(output, "")
	if len(tasks) != 1 {
		t.Fatalf("Parse = %d tasks, want 1", len(tasks))
	}

	task := tasks[0]
	if len(task.TargetPaths) != 2 {
		t.Errorf("TargetPaths = %v, want 2", task.TargetPaths)
	}
	if len(task.Requirements) != 2 || task.Requirements[0] != "use type hints" {
		t.Errorf("Requirements = %v", task.Requirements)
	}
	if task.AcceptanceCriteria != "all listed validations implemented and tested" {
		t.Errorf("AcceptanceCriteria = %q", task.AcceptanceCriteria)
	}
	// Interior blank line between content survives as a separator.
	want := "Build the validators module\nCreate a module with a User model.\n\nValidate emails and ages."
	if task.Description != want {
		t.Errorf("Description = %q, want %q", task.Description, want)
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("Status = %s, want pending", task.Status)
	}
}

func TestParseTrimsBlankEdges(t *testing.T) {
	output := "TASK_1: edges\n\n\ncontent line\n\n\nTASK_2: next\nbody"

	tasks := Parse(output, "")
	if len(tasks) != 2 {
		t.Fatalf("Parse = %d tasks, want 2", len(tasks))
	}
	if tasks[0].Description != "edges\ncontent line" {
		t.Errorf("Description = %q, leading/trailing blanks should be trimmed", tasks[0].Description)
	}
}

func TestRenderManifestRoundTrip(t *testing.T) {
	original := Parse("TASK_1: first thing\nFILE: a.py\nREQUIRE: be fast\nACCEPT: works\nTASK_2: second thing\nFILE: b.py", "")

	manifest := RenderManifest(original)
	reparsed := Parse(manifest, "")

	if len(reparsed) != len(original) {
		t.Fatalf("round trip lost tasks: %d != %d", len(reparsed), len(original))
	}
	for i := range original {
		if reparsed[i].Description != original[i].Description {
			t.Errorf("task %d description = %q, want %q", i, reparsed[i].Description, original[i].Description)
		}
		if len(reparsed[i].TargetPaths) != len(original[i].TargetPaths) {
			t.Errorf("task %d paths = %v, want %v", i, reparsed[i].TargetPaths, original[i].TargetPaths)
		}
	}
}
