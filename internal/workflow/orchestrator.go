package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/weftlabs/weft/internal/backend"
	"github.com/weftlabs/weft/internal/decompose"
	"github.com/weftlabs/weft/internal/track"
	"github.com/weftlabs/weft/internal/worker"
	"github.com/weftlabs/weft/pkg/models"
)

// DefaultMaxWorkers bounds concurrent task dispatch when no limit is
// configured.
const DefaultMaxWorkers = 3

// pausePollInterval is how often a paused run re-checks its pause gate.
const pausePollInterval = 100 * time.Millisecond

// Store persists run history. Implementations must tolerate being called
// from a single goroutine per run; persistence failures are logged by the
// orchestrator, never fatal to the run.
type Store interface {
	RecordRunStart(ctx context.Context, runID, request string, maxIterations int) error
	RecordTask(ctx context.Context, runID string, task *models.Task, status models.TaskStatus, artifacts []string) error
	RecordRunFinish(ctx context.Context, runID string, terminal string, iterations, filesGenerated int) error
}

// Event is one observable moment in a run. Events are delivered best
// effort: a full channel drops the event and bumps the dropped counter
// rather than blocking the run.
type Event struct {
	Phase  Phase
	TaskID string
	Msg    string
	Time   time.Time
}

// Orchestrator owns the run loop: decompose, implement, review, iterate.
// It is the only writer of the workflow State.
type Orchestrator struct {
	backend    backend.Backend
	dispatcher *worker.Dispatcher
	decomposer *decompose.Decomposer
	controller *Controller

	maxIterations int
	maxWorkers    int
	store         Store
	pauseGate     func() bool

	events        chan Event
	eventsDropped int

	mu          sync.Mutex
	transcripts map[string]*worker.Transcript
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxIterations sets the iteration ceiling for runs. Zero means one
// implement+review pass and no iteration; negative falls back to the
// default.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) { o.maxIterations = n }
}

// WithMaxWorkers bounds concurrent task dispatch.
func WithMaxWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxWorkers = n
		}
	}
}

// WithStore attaches a run-history store.
func WithStore(s Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithPauseGate attaches a pause check. While the gate reports true, no
// new task dispatch starts; tasks already in flight run to completion.
func WithPauseGate(gate func() bool) Option {
	return func(o *Orchestrator) { o.pauseGate = gate }
}

// WithEvents attaches a buffered event stream of the given capacity.
func WithEvents(capacity int) Option {
	return func(o *Orchestrator) {
		if capacity > 0 {
			o.events = make(chan Event, capacity)
		}
	}
}

// New creates an Orchestrator over the given backend and dispatcher.
func New(b backend.Backend, d *worker.Dispatcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:       b,
		dispatcher:    d,
		decomposer:    decompose.New(d),
		controller:    NewController(),
		maxIterations: DefaultMaxIterations,
		maxWorkers:    DefaultMaxWorkers,
		transcripts:   make(map[string]*worker.Transcript),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Events returns the event stream, or nil when none was configured.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// Run executes one workflow end to end and always returns a Result whose
// State is inspectable, including on abort.
func (o *Orchestrator) Run(ctx context.Context, request string) *Result {
	runID := uuid.New().String()[:8]
	state := NewState(request, o.maxIterations)

	// Transcripts are scoped to one run. A reused Orchestrator must not
	// feed a previous run's exchanges into same-named tasks.
	o.mu.Lock()
	o.transcripts = make(map[string]*worker.Transcript)
	o.mu.Unlock()

	if strings.TrimSpace(request) == "" {
		return &Result{
			RunID:    runID,
			State:    state,
			Terminal: TerminalAborted,
			Err:      &ValidationError{Reason: "empty request"},
		}
	}

	log.Printf("[orchestrator] run %s starting (max_iterations=%d max_workers=%d)", runID, state.MaxIterations, o.maxWorkers)
	if o.store != nil {
		if err := o.store.RecordRunStart(ctx, runID, request, state.MaxIterations); err != nil {
			log.Printf("[orchestrator] run %s: record start: %v", runID, err)
		}
	}

	o.emit(PhaseDecomposing, "", "decomposing request")
	tasks, err := o.decomposer.Decompose(ctx, request, "", o.backend)
	if err != nil {
		return o.finish(ctx, runID, state, nil, TerminalAborted, fmt.Errorf("decompose: %w", err))
	}
	if len(tasks) == 0 {
		// Degenerate but valid: nothing to implement, nothing reviewed,
		// so no ready signal can exist. Stop as exhausted, best effort.
		log.Printf("[orchestrator] run %s: decomposition produced no tasks", runID)
		return o.finish(ctx, runID, state, nil, TerminalExhausted, nil)
	}

	state.Tasks = tasks
	tracker := track.New()
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	tracker.Initialize(ids)
	o.syncStatus(state, tracker)
	log.Printf("[orchestrator] run %s: %d tasks", runID, len(tasks))

	redispatch := ids
	for {
		o.emit(PhaseImplementing, "", fmt.Sprintf("implementing %d tasks", len(redispatch)))
		if err := o.implement(ctx, state, tracker, redispatch); err != nil {
			o.syncStatus(state, tracker)
			return o.finish(ctx, runID, state, nil, TerminalAborted, err)
		}
		o.syncStatus(state, tracker)
		o.persistTasks(ctx, runID, state, tracker)

		o.emit(PhaseReviewing, "", "reviewing generated files")
		review, err := o.review(ctx, state, tracker)
		if err != nil {
			return o.finish(ctx, runID, state, nil, TerminalAborted, fmt.Errorf("review: %w", err))
		}
		state.ReviewFeedback = append(state.ReviewFeedback, review.Summary())

		switch o.controller.Decide(review, state.IterationCount, state.MaxIterations) {
		case DecideFinalizeReady:
			o.emit(PhaseFinalizing, "", "review ready")
			return o.finish(ctx, runID, state, review, TerminalReady, nil)
		case DecideFinalizeExhausted:
			o.emit(PhaseFinalizing, "", "iteration budget exhausted")
			return o.finish(ctx, runID, state, review, TerminalExhausted, nil)
		default:
			state.IterationCount++
			flagged := o.controller.Flagged(state.Tasks, tracker.Statuses(), tracker.Artifacts, review)
			if len(flagged) == 0 {
				// Not ready, but no finding names a specific task: the
				// feedback is global, so every task goes around again.
				flagged = ids
			}
			for _, id := range flagged {
				tracker.Reopen(id)
			}
			o.syncStatus(state, tracker)
			redispatch = flagged
			o.emit(PhaseIterating, "", fmt.Sprintf("iteration %d/%d: redispatching %d tasks", state.IterationCount, state.MaxIterations, len(flagged)))
			log.Printf("[orchestrator] run %s: iteration %d/%d, %d tasks flagged", runID, state.IterationCount, state.MaxIterations, len(flagged))
		}
	}
}

// implement dispatches the identified tasks. Tasks with overlapping target
// paths share a serial lane; disjoint lanes run concurrently on a bounded
// pool. Returns an error only when the run context is cancelled; a task
// that fails after the dispatcher's retry budget is marked failed and the
// run proceeds.
func (o *Orchestrator) implement(ctx context.Context, state *State, tracker *track.Tracker, ids []string) error {
	tasks := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		if t := state.TaskByID(id); t != nil {
			tasks = append(tasks, t)
		}
	}

	lanes := PlanLanes(tasks)
	files := make([][]string, len(tasks))
	position := make(map[string]int, len(tasks))
	for i, t := range tasks {
		position[t.ID] = i
	}

	sem := make(chan struct{}, o.maxWorkers)
	var wg sync.WaitGroup
	for _, lane := range lanes {
		wg.Add(1)
		go func(lane []*models.Task) {
			defer wg.Done()
			for _, task := range lane {
				if err := o.waitUnpaused(ctx); err != nil {
					return
				}
				select {
				case <-ctx.Done():
					return
				case sem <- struct{}{}:
				}
				o.runTask(ctx, state, tracker, task, files, position)
				<-sem
			}
		}(lane)
	}
	wg.Wait()

	// Fold artifacts in task order so concurrent dispatch and sequential
	// dispatch observe the same FilesGenerated sequence. This happens
	// before the cancellation check so tasks that completed ahead of a
	// cancel stay visible in the partial state.
	for _, fs := range files {
		state.FilesGenerated = append(state.FilesGenerated, fs...)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("implementation cancelled: %w", err)
	}
	return nil
}

// waitUnpaused blocks while the pause gate holds, polling until the gate
// clears or the context is cancelled.
func (o *Orchestrator) waitUnpaused(ctx context.Context) error {
	if o.pauseGate == nil || !o.pauseGate() {
		return nil
	}

	o.emit(PhaseImplementing, "", "paused, waiting for resume")
	log.Printf("[orchestrator] paused, holding new dispatches")
	ticker := time.NewTicker(pausePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !o.pauseGate() {
				log.Printf("[orchestrator] resumed")
				return nil
			}
		}
	}
}

// runTask dispatches one task and settles its status. Each task keeps its
// own transcript so a redispatched task sees its earlier exchange.
func (o *Orchestrator) runTask(ctx context.Context, state *State, tracker *track.Tracker, task *models.Task, files [][]string, position map[string]int) {
	if err := tracker.Transition(task.ID, models.TaskStatusInProgress); err != nil {
		log.Printf("[orchestrator] task %s: %v", task.ID, err)
		return
	}

	name := workerFor(task)
	o.emit(PhaseImplementing, task.ID, "dispatching to "+name)

	out, err := o.dispatcher.Invoke(ctx, name, implementPayload(state, task), o.backend, o.transcript(task.ID))
	if err != nil {
		task.Error = err.Error()
		task.RetryCount++
		if terr := tracker.Transition(task.ID, models.TaskStatusFailed); terr != nil {
			log.Printf("[orchestrator] task %s: %v", task.ID, terr)
		}
		log.Printf("[orchestrator] task %s failed: %v", task.ID, err)
		return
	}

	tracker.RecordArtifacts(task.ID, out.Files)
	files[position[task.ID]] = out.Files
	now := time.Now()
	task.CompletedAt = &now
	task.Error = ""
	if terr := tracker.Transition(task.ID, models.TaskStatusDone); terr != nil {
		log.Printf("[orchestrator] task %s: %v", task.ID, terr)
		return
	}
	o.emit(PhaseImplementing, task.ID, fmt.Sprintf("done, %d files", len(out.Files)))
}

// review reads back the generated files and asks the review worker for a
// structured verdict. Failed tasks are declared to the reviewer as known
// gaps rather than hidden.
func (o *Orchestrator) review(ctx context.Context, state *State, tracker *track.Tracker) (*models.ReviewResult, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Original request:\n%s\n", state.UserRequest)

	if failed := tracker.Failed(); len(failed) > 0 {
		b.WriteString("\nKnown gaps (tasks that failed implementation):\n")
		for _, id := range failed {
			t := state.TaskByID(id)
			fmt.Fprintf(&b, "- %s: %s (%s)\n", id, firstLine(t.Description), t.Error)
		}
	}

	seen := make(map[string]bool, len(state.FilesGenerated))
	for _, path := range state.FilesGenerated {
		if seen[path] {
			continue
		}
		seen[path] = true

		content, err := o.readWithRetry(ctx, path)
		if err != nil {
			if errors.Is(err, backend.ErrNotFound) {
				fmt.Fprintf(&b, "\n=== %s ===\n(missing from workspace)\n", path)
				continue
			}
			return nil, fmt.Errorf("read %s for review: %w", path, err)
		}
		fmt.Fprintf(&b, "\n=== %s ===\n%s\n", path, content)
	}

	out, err := o.dispatcher.Invoke(ctx, worker.NameCodeReviewer, b.String(), nil, nil)
	if err != nil {
		return nil, err
	}
	return out.Review, nil
}

// readWithRetry retries a failed backend read once. Not-found is not
// retried, the path genuinely is not there.
func (o *Orchestrator) readWithRetry(ctx context.Context, path string) (string, error) {
	content, err := o.backend.Read(ctx, path)
	if err == nil || errors.Is(err, backend.ErrNotFound) {
		return content, err
	}
	return o.backend.Read(ctx, path)
}

func (o *Orchestrator) transcript(taskID string) *worker.Transcript {
	o.mu.Lock()
	defer o.mu.Unlock()
	tr, ok := o.transcripts[taskID]
	if !ok {
		tr = worker.NewTranscript(worker.DefaultTranscriptCap)
		o.transcripts[taskID] = tr
	}
	return tr
}

func (o *Orchestrator) syncStatus(state *State, tracker *track.Tracker) {
	for id, s := range tracker.Statuses() {
		state.ImplementationStatus[id] = s
	}
}

func (o *Orchestrator) persistTasks(ctx context.Context, runID string, state *State, tracker *track.Tracker) {
	if o.store == nil {
		return
	}
	for _, t := range state.Tasks {
		if err := o.store.RecordTask(ctx, runID, t, tracker.Status(t.ID), tracker.Artifacts(t.ID)); err != nil {
			log.Printf("[orchestrator] run %s: record task %s: %v", runID, t.ID, err)
		}
	}
}

func (o *Orchestrator) finish(ctx context.Context, runID string, state *State, review *models.ReviewResult, terminal Terminal, err error) *Result {
	if o.store != nil {
		if serr := o.store.RecordRunFinish(ctx, runID, string(terminal), state.IterationCount, len(state.FilesGenerated)); serr != nil {
			log.Printf("[orchestrator] run %s: record finish: %v", runID, serr)
		}
	}
	if err != nil {
		log.Printf("[orchestrator] run %s aborted: %v", runID, err)
		o.emit(PhaseAborted, "", err.Error())
	} else {
		log.Printf("[orchestrator] run %s finished: %s (%d iterations, %d files)", runID, terminal, state.IterationCount, len(state.FilesGenerated))
	}
	return &Result{RunID: runID, State: state, Terminal: terminal, Review: review, Err: err}
}

func (o *Orchestrator) emit(phase Phase, taskID, msg string) {
	if o.events == nil {
		return
	}
	select {
	case o.events <- Event{Phase: phase, TaskID: taskID, Msg: msg, Time: time.Now()}:
	default:
		o.eventsDropped++
	}
}

// workerFor routes a task to a worker by its declared target paths: all
// markdown targets go to the doc writer, all test targets to the test
// generator, everything else to the implementer.
func workerFor(t *models.Task) string {
	if len(t.TargetPaths) == 0 {
		return worker.NameImplementer
	}
	docs, tests := true, true
	for _, p := range t.TargetPaths {
		lower := strings.ToLower(p)
		if !strings.HasSuffix(lower, ".md") {
			docs = false
		}
		base := lower
		if idx := strings.LastIndex(base, "/"); idx >= 0 {
			base = base[idx+1:]
		}
		if !strings.Contains(base, "_test.") && !strings.HasPrefix(base, "test_") {
			tests = false
		}
	}
	switch {
	case docs:
		return worker.NameDocWriter
	case tests:
		return worker.NameTestGenerator
	default:
		return worker.NameImplementer
	}
}

// implementPayload renders the dispatch prompt for one task. The latest
// review entry rides along on redispatch so the worker sees why it is
// being asked again.
func implementPayload(state *State, task *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task %s: %s\n", task.ID, task.Description)
	for _, p := range task.TargetPaths {
		fmt.Fprintf(&b, "FILE: %s\n", p)
	}
	for _, r := range task.Requirements {
		fmt.Fprintf(&b, "REQUIRE: %s\n", r)
	}
	if task.AcceptanceCriteria != "" {
		fmt.Fprintf(&b, "ACCEPT: %s\n", task.AcceptanceCriteria)
	}
	if n := len(state.ReviewFeedback); n > 0 {
		fmt.Fprintf(&b, "\nLatest review feedback:\n%s\n", state.ReviewFeedback[n-1])
	}
	return b.String()
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}
