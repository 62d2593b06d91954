package backend

import (
	"errors"

	"llmpoold/internal/pool"
)

// dependencyUnavailableError signals a missing external dependency (e.g., llama.cpp)
// so the HTTP layer can return 503 Service Unavailable instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// Is lets the error keep its class across the worker process boundary.
func (e dependencyUnavailableError) Is(target error) bool { return target == pool.ErrUnavailable }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime
// dependency, including one reported by a worker process.
func IsDependencyUnavailable(err error) bool { return errors.Is(err, pool.ErrUnavailable) }
