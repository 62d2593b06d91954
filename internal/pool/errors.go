package pool

import "errors"

// ErrConfiguration marks a WorkerConfig the spawn capability cannot serve,
// e.g. an unregistered (backend, loader) pair. Spawn routines wrap it with %w.
var ErrConfiguration = errors.New("configuration error")

// IsConfigurationError reports whether err was caused by an unusable config.
func IsConfigurationError(err error) bool { return errors.Is(err, ErrConfiguration) }

// ErrUnavailable marks a dependency the worker needs but cannot reach or was
// built without. Backends match it through errors.Is.
var ErrUnavailable = errors.New("dependency unavailable")

// IsUnavailable reports whether err was caused by a missing dependency.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// ErrClosed is returned by Start once Close has been called.
var ErrClosed = errors.New("pool closed")

// ErrChannelClosed is returned by Channel operations after Close.
var ErrChannelClosed = errors.New("channel closed")

// unknownWorkerError is returned for ids the pool never issued.
type unknownWorkerError struct{ id WorkerID }

func (e unknownWorkerError) Error() string { return "unknown worker: " + string(e.id) }

// ErrUnknownWorker constructs the error returned for an unregistered id.
func ErrUnknownWorker(id WorkerID) error { return unknownWorkerError{id: id} }

// IsUnknownWorker reports whether err indicates an unregistered worker id.
func IsUnknownWorker(err error) bool {
	var e unknownWorkerError
	return errors.As(err, &e)
}

// notRunningError is returned when a worker has no live execution context,
// including callers still waiting when the worker exits.
type notRunningError struct{ id WorkerID }

func (e notRunningError) Error() string { return "worker not running: " + string(e.id) }

// IsNotRunning reports whether err indicates a stopped worker.
func IsNotRunning(err error) bool {
	var e notRunningError
	return errors.As(err, &e)
}

// spawnError wraps the reason a worker failed to come up.
type spawnError struct{ cause error }

func (e spawnError) Error() string { return "spawn failure: " + e.cause.Error() }
func (e spawnError) Unwrap() error { return e.cause }

// IsSpawnFailure reports whether err came from starting a worker.
func IsSpawnFailure(err error) bool {
	var e spawnError
	return errors.As(err, &e)
}

// lingeringError is a launch cancelled before ready whose execution has not
// exited yet. done closes once it has.
type lingeringError struct {
	error
	done <-chan struct{}
}

func (e lingeringError) Unwrap() error { return e.error }

// generationError wraps a failure of a single generate call. The worker keeps
// serving after it.
type generationError struct{ cause error }

func (e generationError) Error() string { return "generation failure: " + e.cause.Error() }
func (e generationError) Unwrap() error { return e.cause }

// IsGenerationFailure reports whether err came from the generator itself.
func IsGenerationFailure(err error) bool {
	var e generationError
	return errors.As(err, &e)
}

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ id WorkerID }

func (e tooBusyError) Error() string { return "too busy: " + string(e.id) }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// stopTimeoutError is returned when a worker did not exit even after being
// aborted. The worker stays marked running until it actually exits.
type stopTimeoutError struct{ id WorkerID }

func (e stopTimeoutError) Error() string { return "worker did not stop in time: " + string(e.id) }

// IsStopTimeout reports whether err indicates a stop that could not complete.
func IsStopTimeout(err error) bool {
	var e stopTimeoutError
	return errors.As(err, &e)
}

// remoteError carries an error message received from a worker process.
// Wire codes are mapped back to ErrConfiguration and ErrUnavailable.
type remoteError struct {
	msg  string
	code string
}

func (e remoteError) Error() string { return e.msg }

func (e remoteError) Is(target error) bool {
	switch e.code {
	case codeConfiguration:
		return target == ErrConfiguration
	case codeUnavailable:
		return target == ErrUnavailable
	}
	return false
}
