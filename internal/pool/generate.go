package pool

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Generate sends prompt to the worker and blocks until its response arrives,
// ctx is done, or the worker exits. Concurrent callers on the same worker are
// served in arrival order and each receives its own response.
func (p *Pool) Generate(ctx context.Context, id WorkerID, prompt string) (out string, err error) {
	ctx, span := tracer.Start(ctx, "pool.Generate", trace.WithAttributes(
		attribute.String("worker.id", string(id)),
		attribute.Int("prompt.bytes", len(prompt)),
	))
	began := time.Now()
	defer func() {
		generateTotal.WithLabelValues(p.strategy.Name(), outcomeLabel(err)).Inc()
		generateDuration.WithLabelValues(p.strategy.Name()).Observe(time.Since(began).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	w, err := p.lookup(id)
	if err != nil {
		return "", err
	}
	h := w.live.Load()
	if h == nil {
		return "", notRunningError{id: id}
	}
	reqID, respCh, err := h.dispatch.register()
	if err != nil {
		return "", err
	}
	defer h.dispatch.forget(reqID)

	if err := p.admit(ctx, id, h, request{ID: reqID, Prompt: prompt}); err != nil {
		return "", err
	}
	w.mu.Lock()
	w.requests++
	w.lastUsed = time.Now()
	w.mu.Unlock()

	select {
	case resp := <-respCh:
		return resp.Output, resp.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// admit enqueues req, waiting at most maxWait for queue space.
func (p *Pool) admit(ctx context.Context, id WorkerID, h *handles, req request) error {
	sendCtx, cancel := context.WithTimeout(ctx, p.maxWait)
	defer cancel()
	err := h.exec.in.Send(sendCtx, req)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrChannelClosed):
		return notRunningError{id: id}
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return tooBusyError{id: id}
	default:
		return err
	}
}

// GenerateAsync is the future form of Generate. The channel receives exactly
// one Result; canceling ctx abandons the call.
func (p *Pool) GenerateAsync(ctx context.Context, id WorkerID, prompt string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		out, err := p.Generate(ctx, id, prompt)
		ch <- Result{Output: out, Err: err}
	}()
	return ch
}
