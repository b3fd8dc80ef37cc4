package validator

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/leapstack-labs/asksql/pkg/llm"
)

var trailingComma = regexp.MustCompile(`,\s*}`)

// wireVerdict detects which keys were present.
type wireVerdict struct {
	OriginalQuery  *string `json:"original_query"`
	CorrectedInput *string `json:"corrected_input"`
	Feedback       *string `json:"feedback"`
}

// Decode parses a validator response into a verdict for question.
//
// Fence markers and trailing commas before "}" are removed, then exactly one
// JSON object with the keys original_query, corrected_input and feedback is
// decoded. Unknown keys are rejected. An empty corrected_input means the
// question is unchanged.
func Decode(question, raw string) (*core.Verdict, error) {
	text := strings.TrimSpace(llm.StripFences(raw))
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, &core.MalformedVerdictError{Raw: raw, Reason: "no JSON object found"}
	}
	text = trailingComma.ReplaceAllString(text[start:end+1], "}")

	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()

	var w wireVerdict
	if err := dec.Decode(&w); err != nil {
		return nil, &core.MalformedVerdictError{Raw: raw, Reason: "invalid JSON", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &core.MalformedVerdictError{Raw: raw, Reason: "unexpected data after verdict object"}
	}
	if w.OriginalQuery == nil && w.CorrectedInput == nil {
		return nil, &core.MalformedVerdictError{Raw: raw, Reason: "missing original_query and corrected_input"}
	}

	v := &core.Verdict{OriginalQuery: question}
	if w.OriginalQuery != nil && strings.TrimSpace(*w.OriginalQuery) != "" {
		v.OriginalQuery = strings.TrimSpace(*w.OriginalQuery)
	}
	v.CorrectedInput = v.OriginalQuery
	if w.CorrectedInput != nil && strings.TrimSpace(*w.CorrectedInput) != "" {
		v.CorrectedInput = strings.TrimSpace(*w.CorrectedInput)
	}
	if w.Feedback != nil {
		v.Feedback = strings.TrimSpace(*w.Feedback)
	}
	return v, nil
}

