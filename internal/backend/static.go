package backend

import (
	"context"
	"fmt"
	"time"

	"llmpoold/internal/pool"
)

// staticGenerator answers from a fixed prompt -> response table. It stands in
// for a model in tests and demos.
type staticGenerator struct {
	responses   map[string]string
	fallback    string
	hasFallback bool
}

// newStatic reads params.responses and optional params.fallback.
func newStatic(_ context.Context, cfg pool.WorkerConfig) (pool.Generator, error) {
	responses, ok := cfg.StringMap("responses")
	hasFallback := cfg.Has("fallback")
	if !ok && !hasFallback {
		return nil, configErrorf("static backend requires params.responses")
	}
	return &staticGenerator{responses: responses, fallback: cfg.String("fallback"), hasFallback: hasFallback}, nil
}

func (g *staticGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if out, ok := g.responses[prompt]; ok {
		return out, nil
	}
	if g.hasFallback {
		return g.fallback, nil
	}
	return "", fmt.Errorf("no response configured for prompt %q", prompt)
}

// echoGenerator returns the prompt wrapped in params.prefix/params.suffix,
// optionally after params.delay_ms.
type echoGenerator struct {
	prefix, suffix string
	delay          time.Duration
}

func newEcho(_ context.Context, cfg pool.WorkerConfig) (pool.Generator, error) {
	delay := cfg.Int("delay_ms", 0)
	if delay < 0 {
		return nil, configErrorf("echo delay_ms must be >= 0, got %d", delay)
	}
	return &echoGenerator{prefix: cfg.String("prefix"), suffix: cfg.String("suffix"), delay: time.Duration(delay) * time.Millisecond}, nil
}

func (g *echoGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.delay > 0 {
		t := time.NewTimer(g.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.prefix + prompt + g.suffix, nil
}
