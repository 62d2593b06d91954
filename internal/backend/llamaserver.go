package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"llmpoold/internal/pool"
)

// llamaServerGenerator talks to an already running llama.cpp server through
// its OpenAI-compatible streaming /v1/completions endpoint.
type llamaServerGenerator struct {
	baseURL    string
	apiKey     string
	model      string
	reqTimeout time.Duration
	httpClient *http.Client
	params     inferParams
}

// newLlamaServer reads params base_url, api_key, model, request_timeout_ms,
// connect_timeout_ms and the sampling parameters. The server must answer its
// health check before the worker is reported ready.
func newLlamaServer(ctx context.Context, cfg pool.WorkerConfig) (pool.Generator, error) {
	baseURL := strings.TrimRight(cfg.String("base_url"), "/")
	if baseURL == "" {
		return nil, configErrorf("llamaserver backend requires params.base_url")
	}
	g := newLlamaServerClient(baseURL, cfg)
	if err := g.waitHealthy(ctx, durationParam(cfg, "ready_timeout_ms", 10*time.Second)); err != nil {
		return nil, err
	}
	return g, nil
}

func newLlamaServerClient(baseURL string, cfg pool.WorkerConfig) *llamaServerGenerator {
	connectTimeout := durationParam(cfg, "connect_timeout_ms", 5*time.Second)
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout=0: every request carries a context deadline instead.
	return &llamaServerGenerator{
		baseURL:    baseURL,
		apiKey:     cfg.String("api_key"),
		model:      cfg.String("model"),
		reqTimeout: durationParam(cfg, "request_timeout_ms", 0),
		httpClient: &http.Client{Transport: tr, Timeout: 0},
		params:     inferParamsOf(cfg),
	}
}

// isHealthy checks if the llama-server responds OK to /v1/models.
func (g *llamaServerGenerator) isHealthy(ctx context.Context, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	g.authorize(req)
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (g *llamaServerGenerator) waitHealthy(ctx context.Context, within time.Duration) error {
	deadline := time.Now().Add(within)
	for {
		if g.isHealthy(ctx, time.Second) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("llama server not ready in time: %s", g.baseURL)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func (g *llamaServerGenerator) authorize(req *http.Request) {
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
}

// openAICompletionRequest represents the payload for /v1/completions.
type openAICompletionRequest struct {
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float32  `json:"temperature,omitempty"`
	TopP        float32  `json:"top_p,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Seed        int      `json:"seed,omitempty"`
	Stream      bool     `json:"stream"`
	// Not standard OpenAI; llama.cpp accepts it, other servers ignore it.
	RepeatPenalty float32 `json:"repeat_penalty,omitempty"`
}

// openAIStreamChoice is a minimal subset of an OpenAI streaming chunk. llama.cpp
// sends completion text in "text"; chat-style servers use delta.content.
type openAIStreamChoice struct {
	Text  string `json:"text"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type openAIStreamResponse struct {
	Object  string               `json:"object"`
	Choices []openAIStreamChoice `json:"choices"`
}

func (g *llamaServerGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.reqTimeout)
		defer cancel()
	}
	payload := openAICompletionRequest{
		Model:         g.model,
		Prompt:        prompt,
		MaxTokens:     g.params.MaxTokens,
		Temperature:   g.params.Temperature,
		TopP:          g.params.TopP,
		TopK:          g.params.TopK,
		Stop:          g.params.Stop,
		Seed:          g.params.Seed,
		Stream:        true,
		RepeatPenalty: g.params.RepeatPenalty,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	g.authorize(req)
	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("llama server http error: %s: %s", resp.Status, string(b))
	}

	var out strings.Builder
	r := bufio.NewReader(resp.Body)
	for {
		line, err := r.ReadString('\n')
		if l := strings.TrimSpace(line); l != "" && strings.HasPrefix(strings.ToLower(l), "data:") {
			data := strings.TrimSpace(l[len("data:"):])
			if data == "[DONE]" {
				break
			}
			var msg openAIStreamResponse
			if e := json.Unmarshal([]byte(data), &msg); e == nil && len(msg.Choices) > 0 {
				out.WriteString(msg.Choices[0].Text)
				out.WriteString(msg.Choices[0].Delta.Content)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return out.String(), ctx.Err()
			}
			return out.String(), err
		}
	}
	return out.String(), nil
}

func (g *llamaServerGenerator) Close() error {
	g.httpClient.CloseIdleConnections()
	return nil
}
