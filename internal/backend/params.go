package backend

import (
	"time"

	"llmpoold/internal/pool"
)

// inferParams are the sampling parameters shared by the llama backends.
type inferParams struct {
	Temperature   float32
	TopP          float32
	TopK          int
	MaxTokens     int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

func inferParamsOf(cfg pool.WorkerConfig) inferParams {
	return inferParams{
		Temperature:   float32(cfg.Float("temperature", 0)),
		TopP:          float32(cfg.Float("top_p", 0)),
		TopK:          cfg.Int("top_k", 0),
		MaxTokens:     cfg.Int("max_tokens", 0),
		Stop:          cfg.Strings("stop"),
		Seed:          cfg.Int("seed", 0),
		RepeatPenalty: float32(cfg.Float("repeat_penalty", 0)),
	}
}

// durationParam reads a millisecond count from params.
func durationParam(cfg pool.WorkerConfig, key string, def time.Duration) time.Duration {
	ms := cfg.Int(key, -1)
	if ms < 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
