package pool

import (
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultStartTimeout  = 60 * time.Second
	defaultStopTimeout   = 10 * time.Second
	// abortWait bounds how long Stop waits after aborting a worker that
	// ignored the stop signal.
	abortWait = 3 * time.Second
)

// Config encapsulates all tunables for Pool construction.
type Config struct {
	// Spawn builds generators for the thread strategy. Process workers use the
	// spawn capability passed to ServeWorker in the child instead.
	Spawn SpawnFunc
	// Strategy defaults to ThreadStrategy.
	Strategy Strategy
	// MaxQueueDepth bounds each worker's input queue.
	MaxQueueDepth int
	// MaxWait is how long Generate waits for queue space before TooBusy.
	MaxWait time.Duration
	// StartTimeout bounds the wait for a spawn outcome. Negative disables it.
	StartTimeout time.Duration
	// StopTimeout bounds a graceful stop before the worker is aborted.
	// Negative disables it.
	StopTimeout time.Duration
	Logger      zerolog.Logger
	Publisher   EventPublisher
}

// New constructs a thread-strategy Pool around spawn with default tunables.
func New(spawn SpawnFunc) *Pool {
	return NewWithConfig(Config{Spawn: spawn, Logger: zerolog.Nop()})
}

// NewWithConfig constructs a Pool from Config.
func NewWithConfig(cfg Config) *Pool {
	p := &Pool{
		workers:   make(map[WorkerID]*worker),
		spawn:     cfg.Spawn,
		strategy:  cfg.Strategy,
		log:       cfg.Logger,
		publisher: cfg.Publisher,
		startTime: time.Now(),
	}
	if p.strategy == nil {
		p.strategy = ThreadStrategy()
	}
	if p.publisher == nil {
		p.publisher = noopPublisher{}
	}
	// Apply defaults if unset
	if cfg.MaxQueueDepth <= 0 {
		p.maxQueueDepth = defaultMaxQueueDepth
	} else {
		p.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		p.maxWait = defaultMaxWait
	} else {
		p.maxWait = cfg.MaxWait
	}
	switch {
	case cfg.StartTimeout == 0:
		p.startTimeout = defaultStartTimeout
	case cfg.StartTimeout > 0:
		p.startTimeout = cfg.StartTimeout
	}
	switch {
	case cfg.StopTimeout == 0:
		p.stopTimeout = defaultStopTimeout
	case cfg.StopTimeout > 0:
		p.stopTimeout = cfg.StopTimeout
	}
	return p
}
