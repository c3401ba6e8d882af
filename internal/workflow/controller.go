package workflow

import (
	"strings"

	"github.com/weftlabs/weft/pkg/models"
)

// Phase is one state of the workflow state machine.
type Phase string

const (
	PhaseDecomposing  Phase = "decomposing"
	PhaseImplementing Phase = "implementing"
	PhaseReviewing    Phase = "reviewing"
	PhaseIterating    Phase = "iterating"
	PhaseFinalizing   Phase = "finalizing"
	PhaseAborted      Phase = "aborted"
)

// Decision is the controller's verdict after a review pass.
type Decision int

const (
	// DecideIterate means the run should traverse the Iterating edge and
	// implement again.
	DecideIterate Decision = iota
	// DecideFinalizeReady means the review is satisfied.
	DecideFinalizeReady
	// DecideFinalizeExhausted means the iteration budget ran out before
	// the review was satisfied.
	DecideFinalizeExhausted
)

// Controller owns the iterate-or-stop decision. ReviewResult.Ready is the
// authoritative gate; OverallScore is advisory context and never gates
// termination on its own.
type Controller struct{}

// NewController creates a Controller.
func NewController() *Controller {
	return &Controller{}
}

// Decide evaluates one review against the iteration budget.
// iterationCount is the number of Iterating edges already traversed.
func (c *Controller) Decide(review *models.ReviewResult, iterationCount, maxIterations int) Decision {
	if review != nil && review.Ready {
		return DecideFinalizeReady
	}
	if iterationCount >= maxIterations {
		return DecideFinalizeExhausted
	}
	return DecideIterate
}

// Flagged returns the identifiers of tasks eligible for redispatch in the
// next iteration: tasks whose status is failed, plus tasks whose target
// paths or recorded artifacts are named in a review finding. Tasks with
// no associated findings stay done and are not redispatched.
func (c *Controller) Flagged(tasks []*models.Task, statuses map[string]models.TaskStatus, artifacts func(id string) []string, review *models.ReviewResult) []string {
	var findings []string
	if review != nil {
		findings = review.Findings()
	}

	var out []string
	for _, t := range tasks {
		if statuses[t.ID] == models.TaskStatusFailed {
			out = append(out, t.ID)
			continue
		}
		if taskNamedInFindings(t, artifacts(t.ID), findings) {
			out = append(out, t.ID)
		}
	}
	return out
}

// taskNamedInFindings reports whether any finding mentions one of the
// task's target paths or generated files.
func taskNamedInFindings(t *models.Task, generated, findings []string) bool {
	paths := make([]string, 0, len(t.TargetPaths)+len(generated))
	paths = append(paths, t.TargetPaths...)
	paths = append(paths, generated...)

	for _, f := range findings {
		for _, p := range paths {
			if p == "" {
				continue
			}
			if strings.Contains(f, p) || strings.Contains(f, strings.TrimPrefix(p, "/")) {
				return true
			}
		}
	}
	return false
}
