package backend

import (
	"context"
	"errors"
	"os"
	"strings"

	"google.golang.org/genai"

	"llmpoold/internal/pool"
)

const defaultGeminiModel = "gemini-2.0-flash"

type geminiGenerator struct {
	client *genai.Client
	model  string
}

// newGemini reads params model, api_key (or GEMINI_API_KEY / GOOGLE_API_KEY)
// and base_url.
func newGemini(ctx context.Context, cfg pool.WorkerConfig) (pool.Generator, error) {
	apiKey := cfg.String("api_key")
	for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if apiKey == "" {
			apiKey = os.Getenv(env)
		}
	}
	if apiKey == "" {
		return nil, configErrorf("gemini backend requires params.api_key or GEMINI_API_KEY")
	}
	model := cfg.String("model")
	if model == "" {
		model = defaultGeminiModel
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if base := cfg.String("base_url"); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, configErrorf("gemini client: %v", err)
	}
	return &geminiGenerator{client: client, model: model}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		break
	}
	if b.Len() == 0 {
		return "", errors.New("gemini: empty response")
	}
	return b.String(), nil
}
