package pool

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Strategy decides where a worker loop runs. The pool drives every strategy
// through the same Launch/Execution contract.
type Strategy interface {
	Name() string
	// Launch starts an execution context and blocks until the spawn outcome
	// is known or ctx is done. A spawn failure is returned as an error for
	// which IsSpawnFailure holds; no execution is left behind in that case.
	Launch(ctx context.Context, spec LaunchSpec) (*Execution, error)
}

// LaunchSpec is what a strategy needs to bring up one worker.
type LaunchSpec struct {
	ID         WorkerID
	Config     WorkerConfig
	Spawn      SpawnFunc
	QueueDepth int
	Logger     zerolog.Logger
}

// Execution is a live worker context: its channels, stop signal and exit.
type Execution struct {
	in   Channel[request]
	out  Channel[response]
	stop *StopSignal
	// abort forcibly ends the context when a graceful stop takes too long.
	abort func()
	pid   int

	done chan struct{}
	once sync.Once
	mu   sync.Mutex
	err  error
}

func newExecution(queueDepth int) *Execution {
	return &Execution{
		in:    NewChannel[request](queueDepth),
		out:   NewChannel[response](0),
		stop:  NewStopSignal(context.Background()),
		abort: func() {},
		done:  make(chan struct{}),
	}
}

// finish records the exit error and closes Done. out is closed first so
// readers drain what is left and then observe the exit.
func (x *Execution) finish(err error) {
	x.once.Do(func() {
		x.mu.Lock()
		x.err = err
		x.mu.Unlock()
		_ = x.out.Close()
		close(x.done)
	})
}

// Done is closed once the execution context has exited.
func (x *Execution) Done() <-chan struct{} { return x.done }

// Err returns the exit error, if any, once Done is closed.
func (x *Execution) Err() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.err
}

// PID is the worker process id, or 0 for in-process executions.
func (x *Execution) PID() int { return x.pid }
