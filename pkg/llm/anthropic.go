package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/liushuangls/go-anthropic/v2"
)

// defaultAnthropicMaxTokens is used when the model config leaves max_tokens unset;
// the messages API requires a value.
const defaultAnthropicMaxTokens = 2048

// Anthropic is a Completer backed by the Anthropic messages API.
type Anthropic struct {
	client *anthropic.Client
	model  core.ModelConfig
	logger *slog.Logger
}

// NewAnthropic creates an Anthropic completer.
func NewAnthropic(provider core.ProviderConfig, model core.ModelConfig, logger *slog.Logger) (*Anthropic, error) {
	if provider.APIKey == "" {
		return nil, fmt.Errorf("anthropic provider requires an api_key")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var opts []anthropic.ClientOption
	if provider.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimRight(provider.BaseURL, "/")))
	}

	return &Anthropic{
		client: anthropic.NewClient(provider.APIKey, opts...),
		model:  model,
		logger: logger,
	}, nil
}

// Complete sends prompt as a single user message.
func (a *Anthropic) Complete(ctx context.Context, prompt string) (string, error) {
	maxTokens := a.model.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic completion failed: %w", err)
	}

	text := extractTextFromResponse(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	a.logger.Debug("anthropic completion",
		slog.String("model", a.model.Model),
		slog.Int("input_tokens", resp.Usage.InputTokens),
		slog.Int("output_tokens", resp.Usage.OutputTokens))

	return text, nil
}

func extractTextFromResponse(resp anthropic.MessagesResponse) string {
	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			parts = append(parts, *block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ Completer = (*Anthropic)(nil)
