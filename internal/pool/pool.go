package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("llmpoold/internal/pool")

// Pool owns the worker table and is its only mutator.
type Pool struct {
	mu      sync.RWMutex
	workers map[WorkerID]*worker
	order   []WorkerID

	spawn         SpawnFunc
	strategy      Strategy
	maxQueueDepth int
	maxWait       time.Duration
	startTimeout  time.Duration
	stopTimeout   time.Duration

	log       zerolog.Logger
	publisher EventPublisher
	startTime time.Time
	closing   atomic.Bool
}

// worker is one registry entry. Entries are never removed.
type worker struct {
	id WorkerID
	// opMu serialises Start and Stop of this worker.
	opMu sync.Mutex

	mu        sync.Mutex
	config    WorkerConfig
	created   time.Time
	startedAt time.Time
	lastUsed  time.Time
	starts    uint64
	requests  uint64
	lastErr   string

	// live is non-nil exactly while the worker is running.
	live atomic.Pointer[handles]
	// lingering is closed when a launch abandoned by Start has exited.
	// Guarded by opMu.
	lingering <-chan struct{}
}

// handles are the live parts of a running worker.
type handles struct {
	exec     *Execution
	dispatch *dispatcher
	detached chan struct{}
}

// SetEventPublisher installs a publisher; nil restores the no-op default.
func (p *Pool) SetEventPublisher(pub EventPublisher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pub == nil {
		p.publisher = noopPublisher{}
		return
	}
	p.publisher = pub
}

func (p *Pool) publish(e Event) {
	p.mu.RLock()
	pub := p.publisher
	p.mu.RUnlock()
	pub.Publish(e)
}

// StrategyName reports where workers run ("thread" or "process").
func (p *Pool) StrategyName() string { return p.strategy.Name() }

func (p *Pool) lookup(id WorkerID) (*worker, error) {
	p.mu.RLock()
	w := p.workers[id]
	p.mu.RUnlock()
	if w == nil {
		return nil, unknownWorkerError{id: id}
	}
	return w, nil
}

// Register adds a worker with cfg and returns its id. The worker is not
// started and cfg is not validated until Start.
func (p *Pool) Register(cfg WorkerConfig) WorkerID {
	w := &worker{config: cfg.Clone(), created: time.Now()}
	p.mu.Lock()
	id := WorkerID(uuid.NewString())
	for p.workers[id] != nil {
		id = WorkerID(uuid.NewString())
	}
	w.id = id
	p.workers[id] = w
	p.order = append(p.order, id)
	p.mu.Unlock()

	p.log.Info().Str("worker", string(id)).Str("backend", cfg.Backend).Str("loader", cfg.Loader).Msg("worker registered")
	p.publish(Event{Name: EventRegistered, WorkerID: id, Fields: map[string]any{"backend": cfg.Backend, "loader": cfg.Loader, "name": cfg.Name}})
	return id
}

// Reconfigure replaces the stored configuration. A running worker keeps the
// configuration it was started with until it is restarted.
func (p *Pool) Reconfigure(id WorkerID, cfg WorkerConfig) error {
	w, err := p.lookup(id)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.config = cfg.Clone()
	w.mu.Unlock()
	p.log.Info().Str("worker", string(id)).Str("backend", cfg.Backend).Str("loader", cfg.Loader).Msg("worker reconfigured")
	p.publish(Event{Name: EventReconfigured, WorkerID: id, Fields: map[string]any{"backend": cfg.Backend, "loader": cfg.Loader, "running": w.live.Load() != nil}})
	return nil
}

// IsRunning reports whether the worker has a live execution context. It never
// waits on worker activity.
func (p *Pool) IsRunning(id WorkerID) (bool, error) {
	w, err := p.lookup(id)
	if err != nil {
		return false, err
	}
	return w.live.Load() != nil, nil
}

// Start launches the worker with its current configuration and waits for the
// spawn outcome. Starting a running worker is a no-op. A spawn failure leaves
// the worker registered and stopped. After Close, Start returns ErrClosed.
func (p *Pool) Start(ctx context.Context, id WorkerID) error {
	w, err := p.lookup(id)
	if err != nil {
		return err
	}
	if p.closing.Load() {
		return ErrClosed
	}
	ctx, span := tracer.Start(ctx, "pool.Start", trace.WithAttributes(
		attribute.String("worker.id", string(id)),
		attribute.String("pool.strategy", p.strategy.Name()),
	))
	defer span.End()

	w.opMu.Lock()
	defer w.opMu.Unlock()
	if w.live.Load() != nil {
		return nil
	}
	w.mu.Lock()
	cfg := w.config.Clone()
	w.mu.Unlock()

	if p.startTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.startTimeout)
		defer cancel()
	}
	log := p.log.With().Str("worker", string(id)).Str("backend", cfg.Backend).Str("loader", cfg.Loader).Logger()
	log.Info().Str("strategy", p.strategy.Name()).Msg("worker start")
	p.publish(Event{Name: EventStart, WorkerID: id, Fields: map[string]any{"strategy": p.strategy.Name()}})

	fail := func(err error) error {
		if !IsSpawnFailure(err) {
			err = spawnError{cause: err}
		}
		w.mu.Lock()
		w.lastErr = err.Error()
		w.mu.Unlock()
		spawnFailuresTotal.WithLabelValues(p.strategy.Name()).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Msg("worker spawn failed")
		p.publish(Event{Name: EventSpawnError, WorkerID: id, Fields: map[string]any{"error": err.Error()}})
		return err
	}

	// At most one execution per worker, including one still unwinding from
	// an abandoned launch.
	if w.lingering != nil {
		select {
		case <-w.lingering:
			w.lingering = nil
		case <-ctx.Done():
			return fail(fmt.Errorf("previous launch still exiting: %w", ctx.Err()))
		}
	}

	began := time.Now()
	x, err := p.strategy.Launch(ctx, LaunchSpec{
		ID:         id,
		Config:     cfg,
		Spawn:      p.spawn,
		QueueDepth: p.maxQueueDepth,
		Logger:     p.log,
	})
	if err != nil {
		var le lingeringError
		if errors.As(err, &le) {
			w.lingering = le.done
		}
		return fail(err)
	}

	h := &handles{exec: x, dispatch: newDispatcher(id, x.out), detached: make(chan struct{})}
	w.mu.Lock()
	w.startedAt = time.Now()
	w.starts++
	w.lastErr = ""
	w.mu.Unlock()
	w.live.Store(h)
	workersRunning.Inc()
	go p.watch(w, h)

	// Close may have scanned the table before live was set.
	if p.closing.Load() {
		log.Info().Msg("pool closed during start, stopping worker")
		_ = p.halt(context.Background(), w, h)
		return ErrClosed
	}

	log.Info().Int("pid", x.PID()).Dur("dur", time.Since(began)).Msg("worker ready")
	p.publish(Event{Name: EventReady, WorkerID: id, Fields: map[string]any{"pid": x.PID(), "duration_ms": time.Since(began).Milliseconds()}})
	return nil
}

// watch marks the worker stopped as soon as its execution exits, whether
// through Stop or on its own.
func (p *Pool) watch(w *worker, h *handles) {
	<-h.exec.Done()
	p.detach(w, h)
}

// detach clears the worker's handles once; later callers wait for the first
// to finish. Callers still waiting on the execution are failed by its
// dispatcher when the output channel ends.
func (p *Pool) detach(w *worker, h *handles) {
	if !w.live.CompareAndSwap(h, nil) {
		<-h.detached
		return
	}
	defer close(h.detached)
	_ = h.exec.in.Close()
	workersRunning.Dec()

	exitErr := h.exec.Err()
	log := p.log.With().Str("worker", string(w.id)).Logger()
	fields := map[string]any{}
	if exitErr != nil {
		w.mu.Lock()
		w.lastErr = exitErr.Error()
		w.mu.Unlock()
		fields["error"] = exitErr.Error()
		log.Warn().Err(exitErr).Msg("worker exited")
	} else {
		log.Info().Msg("worker exited")
	}
	p.publish(Event{Name: EventExit, WorkerID: w.id, Fields: fields})
}

// Stop raises the worker's stop signal and waits for its execution context to
// exit. Stopping a stopped worker is a no-op. When ctx or the stop timeout
// expires first the worker is aborted; if it still does not exit, Stop returns
// an error for which IsStopTimeout holds.
func (p *Pool) Stop(ctx context.Context, id WorkerID) error {
	w, err := p.lookup(id)
	if err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "pool.Stop", trace.WithAttributes(attribute.String("worker.id", string(id))))
	defer span.End()

	w.opMu.Lock()
	defer w.opMu.Unlock()
	h := w.live.Load()
	if h == nil {
		return nil
	}
	if err := p.halt(ctx, w, h); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// halt stops the execution behind h. The caller holds w.opMu.
func (p *Pool) halt(ctx context.Context, w *worker, h *handles) error {
	p.log.Info().Str("worker", string(w.id)).Msg("worker stop")
	p.publish(Event{Name: EventStop, WorkerID: w.id})
	h.exec.stop.Raise()
	_ = h.exec.in.Close()

	if err := p.join(ctx, w.id, h.exec); err != nil {
		p.log.Error().Str("worker", string(w.id)).Err(err).Msg("worker stop timeout")
		p.publish(Event{Name: EventStopTimeout, WorkerID: w.id})
		return err
	}
	p.detach(w, h)
	return nil
}

func (p *Pool) join(ctx context.Context, id WorkerID, x *Execution) error {
	var timeout <-chan time.Time
	if p.stopTimeout > 0 {
		t := time.NewTimer(p.stopTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-x.Done():
		return nil
	case <-ctx.Done():
	case <-timeout:
	}
	x.abort()
	t := time.NewTimer(abortWait)
	defer t.Stop()
	select {
	case <-x.Done():
		return nil
	case <-t.C:
		return stopTimeoutError{id: id}
	}
}

// StopAll stops every running worker concurrently and joins their errors.
func (p *Pool) StopAll(ctx context.Context) error {
	p.mu.RLock()
	var ids []WorkerID
	for _, id := range p.order {
		if p.workers[id].live.Load() != nil {
			ids = append(ids, id)
		}
	}
	p.mu.RUnlock()
	if len(ids) == 0 {
		return nil
	}

	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id WorkerID) {
			defer wg.Done()
			errs[i] = p.Stop(ctx, id)
		}(i, id)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Ready reports whether the pool accepts work.
func (p *Pool) Ready() bool { return !p.closing.Load() }

// Close stops all workers. The worker table stays readable afterwards.
func (p *Pool) Close(ctx context.Context) error {
	p.closing.Store(true)
	return p.StopAll(ctx)
}
