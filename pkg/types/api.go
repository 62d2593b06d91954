package types

// GenerateRequest is the body of POST /workers/{id}/generate.
type GenerateRequest struct {
	// Required prompt text.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
}

// GenerateResponse carries the worker's answer to a single prompt.
type GenerateResponse struct {
	// ID of the worker that produced the output.
	// example: 0b8f9c1e-5d7a-4c43-9a53-2f8e4b1d6c70
	WorkerID string `json:"worker_id" example:"0b8f9c1e-5d7a-4c43-9a53-2f8e4b1d6c70"`
	// Generated text.
	Output string `json:"output"`
}

// CreateWorkerResponse is returned by POST /workers.
type CreateWorkerResponse struct {
	// Newly allocated worker ID.
	// example: 0b8f9c1e-5d7a-4c43-9a53-2f8e4b1d6c70
	ID string `json:"id" example:"0b8f9c1e-5d7a-4c43-9a53-2f8e4b1d6c70"`
	// Whether the worker was started as part of the request.
	Running bool `json:"running"`
}

// WorkersResponse wraps the list returned by GET /workers.
type WorkersResponse struct {
	Workers []WorkerStatus `json:"workers"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// WorkerStatus summarizes one registered worker.
type WorkerStatus struct {
	// example: 0b8f9c1e-5d7a-4c43-9a53-2f8e4b1d6c70
	ID string `json:"id" example:"0b8f9c1e-5d7a-4c43-9a53-2f8e4b1d6c70"`
	// Current configuration. A running worker may still be serving an older one
	// until it is restarted.
	Config WorkerSpec `json:"config"`
	// Whether an execution context is live.
	// example: true
	Running bool `json:"running" example:"true"`
	// Process ID of the worker child (process strategy only).
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
	// Registration time (unix seconds).
	// example: 1700000000
	CreatedUnix int64 `json:"created_unix" example:"1700000000"`
	// Time of the last successful start (unix seconds).
	// example: 1700000000
	StartedUnix int64 `json:"started_unix,omitempty" example:"1700000000"`
	// Time of the last generate call (unix seconds).
	// example: 1700000000
	LastUsedUnix int64 `json:"last_used_unix,omitempty" example:"1700000000"`
	// Number of successful starts; anything above 1 is a restart.
	// example: 1
	Starts uint64 `json:"starts" example:"1"`
	// Number of generate calls accepted.
	// example: 42
	Requests uint64 `json:"requests" example:"42"`
	// Requests currently waiting in the input queue.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Last spawn or exit error, cleared on a successful start.
	LastError string `json:"last_error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Execution strategy of the pool (thread or process).
	// example: thread
	Strategy string `json:"strategy" example:"thread"`
	// Registered workers.
	Workers []WorkerStatus `json:"workers"`
	// Number of registered workers.
	// example: 3
	Registered int `json:"registered" example:"3"`
	// Number of running workers.
	// example: 2
	Running int `json:"running" example:"2"`
	// Maximum queued requests per worker before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Uptime of the pool in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
