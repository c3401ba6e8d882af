// Package workflow implements the orchestration engine: the workflow
// state, the phase controller, and the orchestrator that sequences
// decomposition, implementation, review, and iteration.
package workflow

import (
	"github.com/weftlabs/weft/pkg/models"
)

// DefaultMaxIterations is the iteration ceiling applied when none is
// configured.
const DefaultMaxIterations = 3

// State is the single source of truth for one workflow run. It is
// exclusively owned by the Orchestrator: every other component receives
// parameters or read-only copies and returns values the orchestrator
// folds back in.
type State struct {
	// UserRequest is the original free-text specification. Immutable
	// after creation.
	UserRequest string `json:"user_request"`
	// Tasks is the ordered task list. Set once by decomposition;
	// append-only thereafter if re-decomposition is triggered.
	Tasks []*models.Task `json:"tasks"`
	// ImplementationStatus maps task identifiers to lifecycle status.
	// Keys are exactly the identifiers produced at decomposition time;
	// no key is ever removed.
	ImplementationStatus map[string]models.TaskStatus `json:"implementation_status"`
	// FilesGenerated is the ordered, append-only list of workspace paths
	// produced. A path may appear more than once if regenerated.
	FilesGenerated []string `json:"files_generated"`
	// ReviewFeedback holds one summarized entry per review pass.
	ReviewFeedback []string `json:"review_feedback"`
	// IterationCount is incremented exactly once per completed iteration
	// of the control loop.
	IterationCount int `json:"iteration_count"`
	// MaxIterations is the iteration ceiling, fixed at creation.
	MaxIterations int `json:"max_iterations"`
}

// NewState creates the state for one run. A negative maxIterations falls
// back to the default; zero is legal and means no iteration budget.
func NewState(request string, maxIterations int) *State {
	if maxIterations < 0 {
		maxIterations = DefaultMaxIterations
	}
	return &State{
		UserRequest:          request,
		ImplementationStatus: make(map[string]models.TaskStatus),
		MaxIterations:        maxIterations,
	}
}

// TaskByID returns the task with the given identifier, or nil.
func (s *State) TaskByID(id string) *models.Task {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Terminal names the way a run ended.
type Terminal string

const (
	// TerminalReady means the review declared the work ready.
	TerminalReady Terminal = "finalized-ready"
	// TerminalExhausted means the iteration budget ran out before the
	// review was satisfied. Best effort, stop; not a success signal.
	TerminalExhausted Terminal = "finalized-exhausted"
	// TerminalAborted means a non-retryable error stopped the run.
	TerminalAborted Terminal = "aborted"
)

// Result is what a run returns to the caller: the full state, how the run
// ended, the terminal review if one was produced, and the triggering
// error when aborted. The state is always inspectable, even on abort.
type Result struct {
	RunID    string
	State    *State
	Terminal Terminal
	Review   *models.ReviewResult
	Err      error
}
