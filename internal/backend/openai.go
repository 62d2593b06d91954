package backend

import (
	"context"
	"errors"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"llmpoold/internal/pool"
)

// openAIGenerator talks to the OpenAI API or any compatible server.
type openAIGenerator struct {
	client      *openai.Client
	model       string
	system      string
	maxTokens   int
	temperature float32
	chat        bool
}

func newOpenAIChat(ctx context.Context, cfg pool.WorkerConfig) (pool.Generator, error) {
	return newOpenAI(cfg, true)
}

func newOpenAICompletion(ctx context.Context, cfg pool.WorkerConfig) (pool.Generator, error) {
	return newOpenAI(cfg, false)
}

// newOpenAI reads params model, api_key (or OPENAI_API_KEY), base_url,
// max_tokens, temperature and system.
func newOpenAI(cfg pool.WorkerConfig, chat bool) (pool.Generator, error) {
	model := cfg.String("model")
	if model == "" {
		return nil, configErrorf("openai backend requires params.model")
	}
	apiKey := cfg.String("api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	baseURL := cfg.String("base_url")
	if apiKey == "" && baseURL == "" {
		return nil, configErrorf("openai backend requires params.api_key or OPENAI_API_KEY")
	}
	oc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		oc.BaseURL = baseURL
	}
	return &openAIGenerator{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		system:      cfg.String("system"),
		maxTokens:   cfg.Int("max_tokens", 0),
		temperature: float32(cfg.Float("temperature", 0)),
		chat:        chat,
	}, nil
}

func (g *openAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.chat {
		resp, err := g.client.CreateCompletion(ctx, openai.CompletionRequest{
			Model:       g.model,
			Prompt:      prompt,
			MaxTokens:   g.maxTokens,
			Temperature: g.temperature,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("openai: empty completion")
		}
		return resp.Choices[0].Text, nil
	}

	var messages []openai.ChatCompletionMessage
	if g.system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: g.system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty chat completion")
	}
	return resp.Choices[0].Message.Content, nil
}
