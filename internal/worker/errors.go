package worker

import (
	"errors"
	"fmt"
)

// ErrUnknownWorker indicates an invocation named a worker that is not in
// the registry. This is a configuration error, not a runtime hiccup.
var ErrUnknownWorker = errors.New("unknown worker")

// TransientError wraps a provider or network failure that is eligible for
// a bounded number of automatic retries with backoff.
type TransientError struct {
	Worker string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure invoking worker %s: %v", e.Worker, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ContractError indicates the worker's structured output did not match the
// declared shape. It is terminal for the invocation and never retried.
type ContractError struct {
	Worker string
	Err    error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("worker %s violated its output contract: %v", e.Worker, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
