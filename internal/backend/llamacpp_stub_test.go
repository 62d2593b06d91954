//go:build !llama

package backend

import (
	"context"
	"testing"

	"llmpoold/internal/pool"
)

func TestLlamaCppStubUnavailable(t *testing.T) {
	if LlamaBuilt() {
		t.Fatalf("stub build reports llama support")
	}
	_, err := Default().Spawn(context.Background(), pool.WorkerConfig{Backend: "llamacpp", Params: map[string]any{"path": "/models/x.gguf"}})
	if !IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
}
