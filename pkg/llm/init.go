package llm

import (
	"log/slog"

	"github.com/leapstack-labs/asksql/pkg/core"
)

func init() {
	Register("openai", func(p core.ProviderConfig, m core.ModelConfig, l *slog.Logger) (Completer, error) {
		return NewOpenAI(p, m, l)
	})
	Register("anthropic", func(p core.ProviderConfig, m core.ModelConfig, l *slog.Logger) (Completer, error) {
		return NewAnthropic(p, m, l)
	})
}
