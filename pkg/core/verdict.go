package core

import "strings"

// Verdict is the validator's judgment of a natural-language question.
// It is never mutated; revalidation produces a new Verdict.
type Verdict struct {
	OriginalQuery  string `json:"original_query"`
	CorrectedInput string `json:"corrected_input"`
	Feedback       string `json:"feedback"`
}

// Changed reports whether the corrected input differs from the original,
// ignoring case.
func (v *Verdict) Changed() bool {
	return !strings.EqualFold(strings.TrimSpace(v.CorrectedInput), strings.TrimSpace(v.OriginalQuery))
}

// Summary renders the verdict for a human reviewer.
func (v *Verdict) Summary() string {
	if v.Feedback == "" {
		return "Original Query: " + v.OriginalQuery + "\n\nNo changes needed."
	}
	return "Original Query: " + v.OriginalQuery +
		"\n\nImproved Query: " + v.CorrectedInput +
		"\n\nFeedback: " + v.Feedback
}
