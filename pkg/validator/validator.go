// Package validator critiques natural-language questions against the schema
// before they reach the SQL pipeline.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/leapstack-labs/asksql/pkg/llm"
	"github.com/leapstack-labs/asksql/pkg/schema"
)

var validatePrompt = template.Must(template.New("validate").Parse(`
You validate natural-language questions asked of a database.
Check the question for ambiguity, incompleteness, typos, and names that do not match the schema, and improve it only if needed.
You may use the database schema to make the question more precise.
{{if .Instructions}}
User Instructions:
{{.Instructions}}
{{end}}
Database Schema:
{{.Schema}}

Natural Language Query:
{{.Question}}

If the question is clear and complete, return it unchanged and leave feedback empty.
If it needs improvement, return the improved question and explain what changed and why.
Do not alter the question beyond fixing typos or mismatches with the schema.

Respond with a single JSON object and nothing else, using exactly these keys:
{"original_query": "show moveis with actr smith", "corrected_input": "show movies with actor smith", "feedback": "Fixed typos in 'movies' and 'actor'"}

Another example:
{"original_query": "list customer payments", "corrected_input": "list customer payments", "feedback": ""}
`))

// Validator produces verdicts for questions.
type Validator struct {
	llm    llm.Completer
	schema *schema.Schema
	logger *slog.Logger
}

// New creates a validator. If logger is nil, a discard logger is used.
func New(c llm.Completer, s *schema.Schema, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Validator{llm: c, schema: s, logger: logger}
}

// Prompt renders the validation prompt.
func (v *Validator) Prompt(question, instructions string) (string, error) {
	var sb strings.Builder
	err := validatePrompt.Execute(&sb, struct {
		Schema, Question, Instructions string
	}{v.schema.Text(), question, strings.TrimSpace(instructions)})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Validate asks the model to critique question. Instructions may be empty.
// A response that cannot be decoded fails with *core.MalformedVerdictError.
func (v *Validator) Validate(ctx context.Context, question, instructions string) (*core.Verdict, error) {
	if strings.TrimSpace(question) == "" {
		return nil, core.ErrEmptyQuestion
	}

	prompt, err := v.Prompt(question, instructions)
	if err != nil {
		return nil, fmt.Errorf("failed to render validation prompt: %w", err)
	}

	raw, err := v.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to validate question: %w", err)
	}

	verdict, err := Decode(question, raw)
	if err != nil {
		v.logger.Warn("validator returned malformed verdict", slog.String("error", err.Error()))
		return nil, err
	}

	v.logger.Debug("question validated",
		slog.Bool("changed", verdict.Changed()),
		slog.String("corrected_input", verdict.CorrectedInput))
	return verdict, nil
}

// Revalidate validates question again, steered by a reviewer suggestion.
//
// question must be the operator's own wording, not a field of an earlier
// verdict: instructions are prefixed exactly once per call. A model that
// echoes the prefixed text back is mapped to question, so the returned
// verdict never carries the instructions.
func (v *Validator) Revalidate(ctx context.Context, question, suggestion string) (*core.Verdict, error) {
	if strings.TrimSpace(question) == "" {
		return nil, core.ErrEmptyQuestion
	}

	steered := WithInstructions(question, suggestion)
	verdict, err := v.Validate(ctx, steered, suggestion)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(verdict.OriginalQuery) == strings.TrimSpace(steered) {
		verdict.OriginalQuery = question
	}
	if strings.TrimSpace(verdict.CorrectedInput) == strings.TrimSpace(steered) {
		verdict.CorrectedInput = question
	}
	return verdict, nil
}

// WithInstructions prefixes question with reviewer instructions.
// A blank suggestion returns question unchanged.
func WithInstructions(question, suggestion string) string {
	suggestion = strings.TrimSpace(suggestion)
	if suggestion == "" {
		return question
	}
	return "User Instructions: " + suggestion + "\n\n" + question
}
