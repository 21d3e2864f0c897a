package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/PabloGalante/instructor-relay/internal/domain"
)

type OpenAIAgent struct {
	client *openai.Client
	model  string
	system string
}

type OpenAIOption func(*openai.ClientConfig)

// WithBaseURL points the client at a compatible endpoint (tests, proxies).
func WithBaseURL(url string) OpenAIOption {
	return func(c *openai.ClientConfig) { c.BaseURL = url }
}

func NewOpenAIAgent(apiKey, model, system string, opts ...OpenAIOption) (*OpenAIAgent, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai api key not set", domain.ErrConfiguration)
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("openai model not set, defaulting", "model", model)
	}

	cfg := openai.DefaultConfig(apiKey)
	for _, o := range opts {
		o(&cfg)
	}

	slog.Info("initializing openai agent", "model", model)
	return &OpenAIAgent{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		system: system,
	}, nil
}

func (o *OpenAIAgent) Name() string {
	return "openai"
}

func (o *OpenAIAgent) Ask(ctx context.Context, question string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.system},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		Temperature: 0.3,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: openai: %v", domain.ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: openai: %v", domain.ErrTransport, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: openai returned no content", domain.ErrTransport)
	}
	slog.Debug("openai answered", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
