package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"llmpoold/internal/backend"
	"llmpoold/internal/pool"
	"llmpoold/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps pool and backend errors to HTTP status codes.
// Order matters: spawn failures wrap configuration and dependency errors.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case pool.IsUnknownWorker(err):
		return http.StatusNotFound
	case pool.IsNotRunning(err):
		return http.StatusConflict
	case pool.IsTooBusy(err):
		return http.StatusTooManyRequests
	case pool.IsStopTimeout(err):
		return http.StatusGatewayTimeout
	case backend.IsDependencyUnavailable(err), errors.Is(err, pool.ErrClosed):
		return http.StatusServiceUnavailable
	case pool.IsConfigurationError(err):
		return http.StatusUnprocessableEntity
	case pool.IsSpawnFailure(err), pool.IsGenerationFailure(err):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err with its mapped status.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	countError(status)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("queue_full")
	}
	writeJSONError(w, status, err.Error())
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
