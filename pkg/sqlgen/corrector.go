package sqlgen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/asksql/pkg/llm"
	"github.com/leapstack-labs/asksql/pkg/schema"
)

// Corrector rewrites draft SQL into SQL the target dialect accepts.
// It performs no checking of its own; only execution proves the result.
type Corrector struct {
	llm     llm.Completer
	schema  *schema.Schema
	dialect Dialect
	logger  *slog.Logger
}

// NewCorrector creates a corrector for a dialect.
// If logger is nil, a discard logger is used.
func NewCorrector(c llm.Completer, s *schema.Schema, d Dialect, logger *slog.Logger) *Corrector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Corrector{llm: c, schema: s, dialect: d, logger: logger}
}

// Dialect returns the target dialect.
func (c *Corrector) Dialect() Dialect {
	return c.dialect
}

// Prompt renders the correction prompt for a statement.
func (c *Corrector) Prompt(sql string) (string, error) {
	return render(correctPrompt, struct {
		Schema, SQL string
		Dialect     Dialect
	}{c.schema.Text(), sql, c.dialect})
}

// Correct returns the corrected form of sql.
func (c *Corrector) Correct(ctx context.Context, sql string) (string, error) {
	if strings.TrimSpace(sql) == "" {
		return "", fmt.Errorf("no SQL to correct")
	}

	prompt, err := c.Prompt(sql)
	if err != nil {
		return "", fmt.Errorf("failed to render correction prompt: %w", err)
	}

	reply, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to correct SQL: %w", err)
	}

	corrected := strings.TrimSpace(llm.ExtractFenced(reply))
	c.logger.Debug("corrected SQL", slog.String("dialect", c.dialect.Name), slog.String("sql", corrected))
	return corrected, nil
}
