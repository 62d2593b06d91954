package pool

// Event represents a pool lifecycle event.
// Minimal and stable: name + worker ID and optional fields via key/values.
type Event struct {
	Name     string
	WorkerID WorkerID
	Fields   map[string]any
}

// Event names published by the pool.
const (
	EventRegistered   = "worker_registered"
	EventReconfigured = "worker_reconfigured"
	EventStart        = "worker_start"
	EventReady        = "worker_ready"
	EventSpawnError   = "worker_spawn_error"
	EventStop         = "worker_stop"
	EventStopTimeout  = "worker_stop_timeout"
	EventExit         = "worker_exit"
)

// EventPublisher receives events from the pool. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
