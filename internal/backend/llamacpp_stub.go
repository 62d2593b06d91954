//go:build !llama

package backend

import (
	"context"

	"llmpoold/internal/pool"
)

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = false

// newLlamaCpp refuses to load models when the binary was built without the
// 'llama' tag, so default builds stay CGO-free.
func newLlamaCpp(_ context.Context, cfg pool.WorkerConfig) (pool.Generator, error) {
	if cfg.String("path") == "" {
		return nil, configErrorf("llamacpp backend requires params.path")
	}
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
