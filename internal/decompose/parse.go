// Package decompose turns one natural-language request into an ordered
// list of structured subtask records.
package decompose

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/weftlabs/weft/pkg/models"
)

// taskMarker matches a task block opener: TASK_1:, TASK 2:, task_3. etc.
// The remainder of the marker line seeds the description.
var taskMarker = regexp.MustCompile(`(?i)^TASK[_ ]?(\d+)\s*[:.]\s*(.*)$`)

// Field prefixes recognized inside a task block.
const (
	filePrefix    = "FILE:"
	requirePrefix = "REQUIRE:"
	acceptPrefix  = "ACCEPT:"
)

// Parse splits decomposition output into task records. Each block begins
// with a marker line and runs until the next marker or end of input. Zero
// parseable blocks yields an empty slice, not an error: a degenerate but
// valid outcome the caller must handle.
//
// Identifiers are positional (task_1, task_2, ...) regardless of the
// numbers in the markers, so IDs stay dense and stable. The namespace
// argument, when non-empty, prefixes IDs (r2.task_1) so re-decomposition
// never collides with an earlier round.
func Parse(output, namespace string) []*models.Task {
	var blocks [][]string
	var current []string

	for _, line := range strings.Split(output, "\n") {
		if taskMarker.MatchString(strings.TrimSpace(line)) {
			if current != nil {
				blocks = append(blocks, current)
			}
			current = []string{strings.TrimSpace(line)}
			continue
		}
		if current != nil {
			current = append(current, line)
		}
	}
	if current != nil {
		blocks = append(blocks, current)
	}

	now := time.Now()
	tasks := make([]*models.Task, 0, len(blocks))
	for i, block := range blocks {
		task := parseBlock(block)
		task.ID = taskID(namespace, i+1)
		task.Status = models.TaskStatusPending
		task.CreatedAt = now
		tasks = append(tasks, task)
	}
	return tasks
}

func taskID(namespace string, position int) string {
	id := fmt.Sprintf("task_%d", position)
	if namespace != "" {
		return namespace + "." + id
	}
	return id
}

// parseBlock builds one Task from a marker line plus its body. FILE:,
// REQUIRE: and ACCEPT: lines fill the structured fields; everything else
// joins the description. Leading and trailing blank lines are trimmed;
// blank lines between non-empty content are preserved as separators.
func parseBlock(block []string) *models.Task {
	task := &models.Task{}

	m := taskMarker.FindStringSubmatch(strings.TrimSpace(block[0]))
	var descLines []string
	if m != nil && m[2] != "" {
		descLines = append(descLines, m[2])
	}

	for _, line := range trimBlankEdges(block[1:]) {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, filePrefix):
			if p := strings.TrimSpace(strings.TrimPrefix(trimmed, filePrefix)); p != "" {
				task.TargetPaths = append(task.TargetPaths, p)
			}
		case strings.HasPrefix(trimmed, requirePrefix):
			if r := strings.TrimSpace(strings.TrimPrefix(trimmed, requirePrefix)); r != "" {
				task.Requirements = append(task.Requirements, r)
			}
		case strings.HasPrefix(trimmed, acceptPrefix):
			if a := strings.TrimSpace(strings.TrimPrefix(trimmed, acceptPrefix)); a != "" {
				if task.AcceptanceCriteria != "" {
					task.AcceptanceCriteria += " " + a
				} else {
					task.AcceptanceCriteria = a
				}
			}
		default:
			descLines = append(descLines, trimmed)
		}
	}

	task.Description = strings.TrimSpace(strings.Join(collapseInteriorBlanks(descLines), "\n"))
	return task
}

// trimBlankEdges drops leading and trailing blank lines from a block body.
func trimBlankEdges(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

// collapseInteriorBlanks keeps single blank lines between non-empty
// content and drops runs of them.
func collapseInteriorBlanks(lines []string) []string {
	var out []string
	blankPending := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blankPending = len(out) > 0
			continue
		}
		if blankPending {
			out = append(out, "")
			blankPending = false
		}
		out = append(out, line)
	}
	return out
}
