//go:build llama

package backend

import (
	"context"
	"errors"

	llama "github.com/go-skynet/go-llama.cpp"

	"llmpoold/internal/pool"
)

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = true

// llamaGenerator owns an in-process llama.cpp model.
type llamaGenerator struct {
	model   *llama.LLama
	threads int
	params  inferParams
}

// newLlamaCpp reads params path, context, threads and the sampling parameters.
func newLlamaCpp(_ context.Context, cfg pool.WorkerConfig) (pool.Generator, error) {
	path := cfg.String("path")
	if path == "" {
		return nil, configErrorf("llamacpp backend requires params.path")
	}
	m, err := llama.New(path, llama.SetContext(cfg.Int("context", 2048)))
	if err != nil {
		return nil, err
	}
	return &llamaGenerator{model: m, threads: cfg.Int("threads", 4), params: inferParamsOf(cfg)}, nil
}

func (g *llamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.model == nil {
		return "", errors.New("llama model not initialized")
	}
	// Stop predicting once ctx is done.
	g.model.SetTokenCallback(func(string) bool {
		return ctx.Err() == nil
	})
	text, err := g.model.Predict(prompt, predictOptions(g.params, g.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	if ctx.Err() != nil {
		return text, ctx.Err()
	}
	return text, nil
}

func (g *llamaGenerator) Close() error {
	if g.model != nil {
		g.model.Free()
		g.model = nil
	}
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts sampling params into go-llama.cpp options.
func predictOptions(params inferParams, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, zn(params.MaxTokens, 128))),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(zf(params.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(params.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(params.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(params.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if params.Seed != 0 {
		po = append(po, llama.SetSeed(params.Seed))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}
