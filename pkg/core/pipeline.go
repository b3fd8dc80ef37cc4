package core

import (
	"fmt"
	"strings"
)

// Stage identifies the step of an attempt that produced a failure.
type Stage string

// Attempt stages.
const (
	StageGenerate Stage = "generate"
	StageCorrect  Stage = "correct"
	StageExecute  Stage = "execute"
)

// AttemptFailure is a single failed attempt within one pipeline invocation.
type AttemptFailure struct {
	Attempt int
	Stage   Stage
	Message string
}

func (f AttemptFailure) String() string {
	return fmt.Sprintf("[%s] %s", f.Stage, f.Message)
}

// AttemptLog accumulates failures across attempts of a single invocation.
// It is append-only and lives only as long as the invocation.
type AttemptLog struct {
	entries []AttemptFailure
}

// Append records a failure.
func (l *AttemptLog) Append(f AttemptFailure) {
	l.entries = append(l.entries, f)
}

// Len returns the number of recorded failures.
func (l *AttemptLog) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the recorded failures in order.
func (l *AttemptLog) Entries() []AttemptFailure {
	out := make([]AttemptFailure, len(l.entries))
	copy(out, l.entries)
	return out
}

// Last returns the most recent failure, if any.
func (l *AttemptLog) Last() (AttemptFailure, bool) {
	if len(l.entries) == 0 {
		return AttemptFailure{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Render formats the log as context for the next generation input.
func (l *AttemptLog) Render() string {
	var sb strings.Builder
	for i, e := range l.entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, e.String())
	}
	return sb.String()
}

// PipelineState is the unit of work threaded through one invocation.
//
// FinalSQL and QueryResult are always written together by Record, so they
// are either both empty or both describe the same attempt.
type PipelineState struct {
	Question    string // original question, never rewritten
	Input       string // current question, enriched with failure context on retry
	DraftSQL    string
	FinalSQL    string
	QueryResult *ExecResult
}

// NewPipelineState creates a fresh state for a question.
func NewPipelineState(question string) *PipelineState {
	return &PipelineState{Question: question, Input: question}
}

// Record stores the corrected SQL and the result it produced.
func (s *PipelineState) Record(finalSQL string, result *ExecResult) {
	s.FinalSQL = finalSQL
	s.QueryResult = result
}

// Enrich rewrites Input as the original question followed by the failure log.
func (s *PipelineState) Enrich(log *AttemptLog) {
	if log.Len() == 0 {
		s.Input = s.Question
		return
	}
	s.Input = s.Question + "\n\nPrevious Error list:\n" + log.Render()
}
