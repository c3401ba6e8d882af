package workflow

import "fmt"

// ValidationError indicates the incoming request failed validation before
// any work started. It is fatal and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}
