// Package sqlgen turns questions into SQL and corrects SQL for a target dialect.
package sqlgen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/leapstack-labs/asksql/pkg/llm"
	"github.com/leapstack-labs/asksql/pkg/schema"
)

// Generator drafts SQL from a natural-language question.
type Generator struct {
	llm     llm.Completer
	schema  *schema.Schema
	example string
	logger  *slog.Logger
}

// NewGenerator creates a generator grounded on schema and a worked example.
// If logger is nil, a discard logger is used.
func NewGenerator(c llm.Completer, s *schema.Schema, example string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{llm: c, schema: s, example: example, logger: logger}
}

// Prompt renders the generation prompt for a question.
func (g *Generator) Prompt(question string) (string, error) {
	return render(generatePrompt, struct {
		Schema, Example, Question string
	}{g.schema.Text(), g.example, question})
}

// Generate returns draft SQL for question. The SQL is neither executed nor checked.
func (g *Generator) Generate(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", core.ErrEmptyQuestion
	}

	prompt, err := g.Prompt(question)
	if err != nil {
		return "", fmt.Errorf("failed to render generation prompt: %w", err)
	}

	reply, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate SQL: %w", err)
	}

	sql := strings.TrimSpace(llm.ExtractFenced(reply))
	g.logger.Debug("generated SQL", slog.String("sql", sql))
	return sql, nil
}
