package pool

import (
	"context"
	"time"
)

type threadStrategy struct{}

// ThreadStrategy runs each worker loop in a goroutine of the pool's process.
func ThreadStrategy() Strategy { return threadStrategy{} }

func (threadStrategy) Name() string { return "thread" }

func (threadStrategy) Launch(ctx context.Context, spec LaunchSpec) (*Execution, error) {
	genCtx, cancel := context.WithCancel(context.Background())
	x := newExecution(spec.QueueDepth)
	x.abort = cancel

	readyCh := make(chan error, 1)
	go func() {
		defer cancel()
		err := runLoop(genCtx, spec.Config, spec.Spawn, x.in, x.out, x.stop, func(err error) { readyCh <- err })
		x.finish(err)
	}()

	select {
	case err := <-readyCh:
		if err != nil {
			<-x.done
			return nil, err
		}
		return x, nil
	case <-ctx.Done():
		x.stop.Raise()
		cancel()
		// Spawn may ignore its context. Give it abortWait to unwind and hand
		// the rest to the caller so no second launch overlaps it.
		t := time.NewTimer(abortWait)
		defer t.Stop()
		select {
		case <-x.done:
			return nil, spawnError{cause: ctx.Err()}
		case <-t.C:
			return nil, spawnError{cause: lingeringError{error: ctx.Err(), done: x.done}}
		}
	}
}
