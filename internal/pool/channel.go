package pool

import (
	"context"
	"sync"
)

// Channel is a FIFO queue between a pool and one worker loop. Send and Recv
// block until they complete, ctx is done, or the channel is closed.
type Channel[T any] interface {
	Send(ctx context.Context, v T) error
	Recv(ctx context.Context) (T, error)
	// Close makes further Sends fail. Items already queued can still be received.
	Close() error
	Len() int
}

// NewChannel returns a channel holding at most capacity items; capacity <= 0
// makes it unbounded so Send never blocks.
func NewChannel[T any](capacity int) Channel[T] {
	if capacity <= 0 {
		return &unboundedChannel[T]{notify: make(chan struct{}, 1), closed: make(chan struct{})}
	}
	return &boundedChannel[T]{ch: make(chan T, capacity), closed: make(chan struct{})}
}

// boundedChannel never closes ch itself, so a racing Send cannot panic.
type boundedChannel[T any] struct {
	ch     chan T
	closed chan struct{}
	once   sync.Once
}

func (c *boundedChannel[T]) Send(ctx context.Context, v T) error {
	select {
	case <-c.closed:
		return ErrChannelClosed
	default:
	}
	select {
	case c.ch <- v:
		return nil
	case <-c.closed:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *boundedChannel[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-c.ch:
		return v, nil
	case <-c.closed:
		select {
		case v := <-c.ch:
			return v, nil
		default:
			return zero, ErrChannelClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *boundedChannel[T]) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *boundedChannel[T]) Len() int { return len(c.ch) }

type unboundedChannel[T any] struct {
	mu       sync.Mutex
	items    []T
	notify   chan struct{}
	closed   chan struct{}
	isClosed bool
}

func (c *unboundedChannel[T]) Send(ctx context.Context, v T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.isClosed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	c.items = append(c.items, v)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

func (c *unboundedChannel[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	for {
		c.mu.Lock()
		if len(c.items) > 0 {
			v := c.items[0]
			c.items[0] = zero
			c.items = c.items[1:]
			c.mu.Unlock()
			return v, nil
		}
		closed := c.isClosed
		c.mu.Unlock()
		if closed {
			return zero, ErrChannelClosed
		}
		select {
		case <-c.notify:
		case <-c.closed:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

func (c *unboundedChannel[T]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isClosed {
		c.isClosed = true
		close(c.closed)
	}
	return nil
}

func (c *unboundedChannel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// StopSignal is a one-shot flag a worker loop observes between prompts.
type StopSignal struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewStopSignal returns a signal that is also raised when parent is done.
func NewStopSignal(parent context.Context) *StopSignal {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &StopSignal{ctx: ctx, cancel: cancel}
}

// Raise sets the signal. Safe to call more than once.
func (s *StopSignal) Raise() { s.cancel() }

// Raised reports whether the signal is set.
func (s *StopSignal) Raised() bool { return s.ctx.Err() != nil }

// Done is closed once the signal is raised.
func (s *StopSignal) Done() <-chan struct{} { return s.ctx.Done() }

// Context is canceled once the signal is raised, for use with blocking Recv.
func (s *StopSignal) Context() context.Context { return s.ctx }
