// Package backend is the spawn capability of llmpoold: a table of loaders
// keyed by (backend, loader) that turn a WorkerConfig into a pool.Generator.
package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"llmpoold/internal/pool"
)

// DefaultLoader is used when a WorkerConfig leaves Loader empty.
const DefaultLoader = "_default"

// Loader builds a generator for one (backend, loader) pair.
type Loader func(ctx context.Context, cfg pool.WorkerConfig) (pool.Generator, error)

// Registry maps backend types to their named loaders.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]map[string]Loader
}

func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]map[string]Loader)}
}

// Register adds or replaces a loader. An empty loader name registers the default.
func (r *Registry) Register(backend, loader string, fn Loader) {
	backend = strings.ToLower(strings.TrimSpace(backend))
	loader = normalizeLoader(loader)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaders[backend] == nil {
		r.loaders[backend] = make(map[string]Loader)
	}
	r.loaders[backend][loader] = fn
}

// Spawn resolves cfg's (backend, loader) pair and runs the loader. An
// unregistered pair is a configuration error. Spawn has the signature of
// pool.SpawnFunc.
func (r *Registry) Spawn(ctx context.Context, cfg pool.WorkerConfig) (pool.Generator, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	loader := normalizeLoader(cfg.Loader)
	if backend == "" {
		return nil, configErrorf("backend is required")
	}
	r.mu.RLock()
	loaders, ok := r.loaders[backend]
	fn := loaders[loader]
	r.mu.RUnlock()
	if !ok {
		return nil, configErrorf("unsupported backend %q", backend)
	}
	if fn == nil {
		return nil, configErrorf("backend %q has no loader %q", backend, loader)
	}
	return fn(ctx, cfg)
}

// BackendInfo lists the loaders available for one backend.
type BackendInfo struct {
	Name    string   `json:"name"`
	Loaders []string `json:"loaders"`
}

// Backends returns the registered backends and loaders, sorted by name.
func (r *Registry) Backends() []BackendInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]BackendInfo, 0, len(r.loaders))
	for name, loaders := range r.loaders {
		info := BackendInfo{Name: name}
		for l := range loaders {
			info.Loaders = append(info.Loaders, l)
		}
		sort.Strings(info.Loaders)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Default returns a registry with every built-in backend.
func Default() *Registry {
	r := NewRegistry()
	r.Register("static", DefaultLoader, newStatic)
	r.Register("echo", DefaultLoader, newEcho)
	r.Register("openai", DefaultLoader, newOpenAIChat)
	r.Register("openai", "completion", newOpenAICompletion)
	r.Register("gemini", DefaultLoader, newGemini)
	r.Register("llamaserver", DefaultLoader, newLlamaServer)
	r.Register("llamaserver", "spawn", newSpawnedLlamaServer)
	r.Register("llamacpp", DefaultLoader, newLlamaCpp)
	return r
}

func normalizeLoader(loader string) string {
	loader = strings.TrimSpace(loader)
	if loader == "" {
		return DefaultLoader
	}
	return loader
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{pool.ErrConfiguration}, args...)...)
}

// LlamaBuilt reports whether the in-process llamacpp backend is compiled in.
func LlamaBuilt() bool { return llamaBuilt }
