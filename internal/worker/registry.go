// Package worker provides the registry of specialized workers and the
// dispatcher that invokes them against a shared workspace backend.
package worker

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OutputKind declares the shape a worker's output takes.
type OutputKind string

const (
	// OutputText means the worker returns free text.
	OutputText OutputKind = "text"
	// OutputReview means the worker returns a structured ReviewResult.
	OutputReview OutputKind = "review"
)

// Valid returns true if the kind is a known value.
func (k OutputKind) Valid() bool {
	return k == OutputText || k == OutputReview
}

// Spec declares one capability-scoped worker: its name, what it does, the
// instructions it runs under, and the output shape callers must expect.
type Spec struct {
	// Name is the registry key used to invoke the worker.
	Name string `yaml:"name"`
	// Description is a short human-readable capability summary.
	Description string `yaml:"description"`
	// Instructions is the system-level guidance given to the worker.
	Instructions string `yaml:"instructions"`
	// Output is the declared output shape.
	Output OutputKind `yaml:"output"`
}

// Registry maps worker names to validated specs. It is resolved at
// configuration time; invoking a name it does not hold is a configuration
// error.
type Registry struct {
	specs map[string]Spec
	names []string
}

// NewRegistry builds a registry from specs, validating each one.
func NewRegistry(specs []Spec) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("worker spec with empty name")
		}
		if !s.Output.Valid() {
			return nil, fmt.Errorf("worker %s: invalid output kind %q", s.Name, s.Output)
		}
		if _, dup := r.specs[s.Name]; dup {
			return nil, fmt.Errorf("duplicate worker name %q", s.Name)
		}
		r.specs[s.Name] = s
		r.names = append(r.names, s.Name)
	}
	return r, nil
}

// Resolve returns the spec for name or ErrUnknownWorker.
func (r *Registry) Resolve(name string) (Spec, error) {
	s, ok := r.specs[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownWorker, name)
	}
	return s, nil
}

// Names returns the registered worker names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Well-known worker names used by the orchestrator.
const (
	NameDecomposer    = "decomposer"
	NameImplementer   = "implementer"
	NameCodeReviewer  = "code-reviewer"
	NameTestGenerator = "test-generator"
	NameDocWriter     = "doc-writer"
)

// DefaultRegistry returns the built-in worker set: request decomposition,
// implementation, code review, test generation, and documentation.
func DefaultRegistry() *Registry {
	r, err := NewRegistry([]Spec{
		{
			Name:        NameDecomposer,
			Description: "Breaks a request into ordered, independently implementable subtasks",
			Instructions: `Decompose the request into discrete subtasks. Emit one block per
subtask starting with a TASK_<n>: marker line, followed by FILE: lines for
every path the subtask creates or modifies, REQUIRE: lines for concrete
implementation constraints, and an ACCEPT: line defining done.`,
			Output: OutputText,
		},
		{
			Name:        NameImplementer,
			Description: "Implements one subtask against the shared workspace",
			Instructions: `Implement the given subtask. For every file you produce, emit a
block starting with a FILE: <path> line containing the complete file
content, terminated by an END FILE line. Satisfy every listed requirement
and the acceptance criteria. After the file blocks you may emit
RUN: <command> lines to execute verification commands in the workspace;
their results are shown to you on the next exchange. Workspaces without
command execution skip RUN lines.`,
			Output: OutputText,
		},
		{
			Name:        NameCodeReviewer,
			Description: "Expert code reviewer focusing on quality and security",
			Instructions: `Review the generated files for security vulnerabilities,
performance bottlenecks, style violations, missing error handling, and
documentation gaps. Return a single JSON object with fields:
files_reviewed, security_issues, performance_issues, style_issues,
recommendations (arrays of strings), overall_score (integer 1-10), and
ready (boolean). Set ready to true only when no further iteration is
needed.`,
			Output: OutputReview,
		},
		{
			Name:        NameTestGenerator,
			Description: "Generates test suites covering happy paths and edge cases",
			Instructions: `Generate tests for the workspace files. Cover happy paths and
edge cases, mock external dependencies, and use clear descriptive names.
Emit each test file as a FILE: <path> block terminated by END FILE. You
may emit RUN: <command> lines after the blocks to execute the tests when
the workspace supports command execution.`,
			Output: OutputText,
		},
		{
			Name:        NameDocWriter,
			Description: "Creates documentation for generated code",
			Instructions: `Write documentation for the workspace: overview, usage examples
with code snippets, and API reference. Emit each document as a
FILE: <path> block terminated by END FILE, using Markdown.`,
			Output: OutputText,
		},
	})
	if err != nil {
		// The built-in specs are validated by tests; this cannot fail.
		panic(err)
	}
	return r
}

// registryFile is the on-disk shape of a workers.yaml override.
type registryFile struct {
	Workers []Spec `yaml:"workers"`
}

// LoadRegistry reads worker specs from a YAML file. The file fully
// replaces the default registry; validation failures surface at load time.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read worker registry: %w", err)
	}

	var rf registryFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse worker registry %s: %w", path, err)
	}
	if len(rf.Workers) == 0 {
		return nil, fmt.Errorf("worker registry %s declares no workers", path)
	}
	return NewRegistry(rf.Workers)
}
