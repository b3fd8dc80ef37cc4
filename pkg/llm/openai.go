package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/sashabaranov/go-openai"
)

// OpenAI is a Completer backed by an OpenAI-compatible chat completions API.
// Setting a base URL makes it usable with other compatible endpoints, such as
// Gemini or a local server.
type OpenAI struct {
	client *openai.Client
	model  core.ModelConfig
	logger *slog.Logger
}

// NewOpenAI creates an OpenAI completer.
func NewOpenAI(provider core.ProviderConfig, model core.ModelConfig, logger *slog.Logger) (*OpenAI, error) {
	if provider.APIKey == "" && provider.BaseURL == "" {
		return nil, fmt.Errorf("openai provider requires an api_key or a base_url")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cfg := openai.DefaultConfig(provider.APIKey)
	if provider.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(provider.BaseURL, "/")
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}, nil
}

// Complete sends prompt as a single user message.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model.Model,
		Temperature: o.model.Temperature,
		MaxTokens:   o.model.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	o.logger.Debug("openai completion",
		slog.String("model", o.model.Model),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}

var _ Completer = (*OpenAI)(nil)
