package validator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/leapstack-labs/asksql/pkg/llm/llmtest"
	"github.com/leapstack-labs/asksql/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	const question = "show moveis with actr smith"

	tests := []struct {
		name      string
		raw       string
		want      core.Verdict
		malformed bool
	}{
		{
			name: "well formed",
			raw:  `{"original_query": "show moveis with actr smith", "corrected_input": "show movies with actor smith", "feedback": "Fixed typos"}`,
			want: core.Verdict{OriginalQuery: question, CorrectedInput: "show movies with actor smith", Feedback: "Fixed typos"},
		},
		{
			name: "fenced with trailing comma",
			raw:  "```json\n{\n  \"original_query\": \"show moveis with actr smith\",\n  \"corrected_input\": \"show movies with actor smith\",\n  \"feedback\": \"Fixed typos\",\n}\n```",
			want: core.Verdict{OriginalQuery: question, CorrectedInput: "show movies with actor smith", Feedback: "Fixed typos"},
		},
		{
			name: "prose around object",
			raw:  "Sure! {\"original_query\": \"q\", \"corrected_input\": \"q2\", \"feedback\": \"f\"} Hope that helps.",
			want: core.Verdict{OriginalQuery: "q", CorrectedInput: "q2", Feedback: "f"},
		},
		{
			name: "corrected input defaults to original",
			raw:  `{"original_query": "list customer payments", "corrected_input": "", "feedback": ""}`,
			want: core.Verdict{OriginalQuery: "list customer payments", CorrectedInput: "list customer payments"},
		},
		{
			name: "missing corrected input",
			raw:  `{"original_query": "list customer payments"}`,
			want: core.Verdict{OriginalQuery: "list customer payments", CorrectedInput: "list customer payments"},
		},
		{
			name: "original query falls back to question",
			raw:  `{"corrected_input": "show movies with actor smith", "feedback": "typos"}`,
			want: core.Verdict{OriginalQuery: question, CorrectedInput: "show movies with actor smith", Feedback: "typos"},
		},
		{name: "not json", raw: "original_query: x\ncorrected_input: y", malformed: true},
		{name: "unbalanced braces", raw: `{"original_query": "x", "corrected_input": "y"`, malformed: true},
		{name: "unknown key", raw: `{"original_query": "x", "corrected_input": "y", "score": 3}`, malformed: true},
		{name: "wrong type", raw: `{"original_query": "x", "corrected_input": 7}`, malformed: true},
		{name: "empty object", raw: `{}`, malformed: true},
		{name: "two objects", raw: `{"original_query": "x"} {"original_query": "y"}`, malformed: true},
		{name: "empty", raw: "", malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(question, tt.raw)
			if tt.malformed {
				var mve *core.MalformedVerdictError
				require.ErrorAs(t, err, &mve)
				assert.Equal(t, tt.raw, mve.Raw)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestValidator_Validate(t *testing.T) {
	script := llmtest.NewScript(`{"original_query": "show all films with rating R", "corrected_input": "show all films with rating R", "feedback": ""}`)
	v := New(script, schema.Default(), nil)

	verdict, err := v.Validate(context.Background(), "show all films with rating R", "")
	require.NoError(t, err)
	assert.NotEmpty(t, verdict.OriginalQuery)
	assert.NotEmpty(t, verdict.CorrectedInput)
	assert.False(t, verdict.Changed())

	prompts := script.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Table rental {")
	assert.Contains(t, prompts[0], "show all films with rating R")
	assert.NotContains(t, prompts[0], "User Instructions:")
}

func TestValidator_Errors(t *testing.T) {
	t.Run("empty question", func(t *testing.T) {
		script := llmtest.NewScript("{}")
		_, err := New(script, schema.Default(), nil).Validate(context.Background(), "", "")
		require.ErrorIs(t, err, core.ErrEmptyQuestion)
		assert.Equal(t, 0, script.Calls())
	})

	t.Run("malformed", func(t *testing.T) {
		script := llmtest.NewScript("I think the question is fine.")
		_, err := New(script, schema.Default(), nil).Validate(context.Background(), "list films", "")
		var mve *core.MalformedVerdictError
		require.ErrorAs(t, err, &mve)
	})

	t.Run("completer failure", func(t *testing.T) {
		boom := errors.New("unavailable")
		script := (&llmtest.Script{}).Then(llmtest.Reply{Err: boom})
		_, err := New(script, schema.Default(), nil).Validate(context.Background(), "list films", "")
		require.ErrorIs(t, err, boom)
	})
}

func TestValidator_Revalidate(t *testing.T) {
	script := llmtest.NewScript(
		`{"original_query": "top customers", "corrected_input": "top 5 customers by rentals", "feedback": "Made it specific"}`,
		`{"original_query": "top customers", "corrected_input": "top 10 customers by payment amount", "feedback": "Used payments as instructed"}`,
	)
	v := New(script, schema.Default(), nil)
	ctx := context.Background()

	first, err := v.Validate(ctx, "top customers", "")
	require.NoError(t, err)

	second, err := v.Revalidate(ctx, "top customers", "rank by payment amount, top 10")
	require.NoError(t, err)

	assert.Equal(t, "top 5 customers by rentals", first.CorrectedInput, "previous verdict must not change")
	assert.Equal(t, "top 10 customers by payment amount", second.CorrectedInput)
	assert.NotSame(t, first, second)

	prompts := script.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "User Instructions:\nrank by payment amount, top 10")
	assert.Contains(t, prompts[1], "User Instructions: rank by payment amount, top 10\n\ntop customers")
}

func TestValidator_RevalidateChained(t *testing.T) {
	script := llmtest.NewScript(
		`{"original_query": "", "corrected_input": "", "feedback": ""}`,
		`{"original_query": "", "corrected_input": "", "feedback": ""}`,
		`{"original_query": "User Instructions: only 2022\n\ntop customers", "corrected_input": "", "feedback": ""}`,
	)
	v := New(script, schema.Default(), nil)
	ctx := context.Background()

	first, err := v.Validate(ctx, "top customers", "")
	require.NoError(t, err)
	assert.False(t, first.Changed())

	second, err := v.Revalidate(ctx, "top customers", "by rentals")
	require.NoError(t, err)
	assert.Equal(t, "top customers", second.OriginalQuery, "an empty reply falls back to the question as typed")
	assert.Equal(t, "top customers", second.CorrectedInput)

	third, err := v.Revalidate(ctx, "top customers", "only 2022")
	require.NoError(t, err)
	assert.Equal(t, "top customers", third.OriginalQuery, "an echoed instruction prefix is dropped")
	assert.Equal(t, "top customers", third.CorrectedInput)
	assert.False(t, third.Changed())

	prompts := script.Prompts()
	require.Len(t, prompts, 3)
	assert.Contains(t, prompts[2], "User Instructions: only 2022\n\ntop customers")
	assert.NotContains(t, prompts[2], "by rentals", "instructions do not accumulate")
	assert.Equal(t, 1, strings.Count(prompts[2], "User Instructions: "))
}

func TestValidator_RevalidateEmptyQuestion(t *testing.T) {
	v := New(llmtest.NewScript("{}"), schema.Default(), nil)
	_, err := v.Revalidate(context.Background(), "  ", "use payments")
	assert.ErrorIs(t, err, core.ErrEmptyQuestion)
}

func TestWithInstructions(t *testing.T) {
	assert.Equal(t, "q", WithInstructions("q", "  "))
	assert.Equal(t, "User Instructions: use payments\n\nq", WithInstructions("q", " use payments "))
}
