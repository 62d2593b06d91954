package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"llmpoold/internal/pool"
)

func newFakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		last := req.Messages[len(req.Messages)-1]
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": req.Model + ":" + last.Content + ":" + string(rune('0'+len(req.Messages)))},
				"finish_reason": "stop",
			}},
		})
	})
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "text_completion",
			"choices": []map[string]any{{"index": 0, "text": "completed " + req.Prompt, "finish_reason": "stop"}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIChat(t *testing.T) {
	srv := newFakeOpenAI(t)
	gen, err := Default().Spawn(context.Background(), pool.WorkerConfig{Backend: "openai", Params: map[string]any{
		"model": "m1", "api_key": "k", "base_url": srv.URL + "/v1", "system": "be brief",
	}})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	out, err := gen.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// model, user content, and two messages (system + user)
	if out != "m1:hello:2" {
		t.Fatalf("out=%q", out)
	}
}

func TestOpenAICompletion(t *testing.T) {
	srv := newFakeOpenAI(t)
	gen, err := Default().Spawn(context.Background(), pool.WorkerConfig{Backend: "openai", Loader: "completion", Params: map[string]any{
		"model": "m1", "base_url": srv.URL + "/v1",
	}})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if out, err := gen.Generate(context.Background(), "x"); err != nil || out != "completed x" {
		t.Fatalf("out=%q err=%v", out, err)
	}
}

func TestOpenAIConfigErrors(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	r := Default()
	for _, params := range []map[string]any{
		{"api_key": "k"},
		{"model": "m"},
	} {
		if _, err := r.Spawn(context.Background(), pool.WorkerConfig{Backend: "openai", Params: params}); !pool.IsConfigurationError(err) {
			t.Fatalf("%v: expected configuration error, got %v", params, err)
		}
	}
}

func TestGeminiRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	_, err := Default().Spawn(context.Background(), pool.WorkerConfig{Backend: "gemini"})
	if !pool.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
