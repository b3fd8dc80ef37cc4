package core

import (
	"fmt"
	"strings"
)

// ResultSet holds the rows returned by a successful execution.
// Cell values are already rendered as text.
type ResultSet struct {
	Columns []string
	Rows    [][]string
	// Text is the tabular rendering: a header line, a separator line and
	// one "|"-delimited line per row.
	Text string
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Records returns the rows keyed by column name.
func (r *ResultSet) Records() []map[string]string {
	out := make([]map[string]string, 0, r.Len())
	if r == nil {
		return out
	}
	for _, row := range r.Rows {
		rec := make(map[string]string, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// ExecError is the typed failure payload of an execution.
type ExecError struct {
	Code      string // driver or SQLSTATE code, may be empty
	Message   string
	Detail    string
	Hint      string
	Statement string
}

func (e *ExecError) Error() string {
	var sb strings.Builder
	sb.WriteString("ERROR: ")
	sb.WriteString(e.Message)
	if e.Code != "" {
		fmt.Fprintf(&sb, " (SQLSTATE %s)", e.Code)
	}
	if e.Detail != "" {
		sb.WriteString("\nDETAIL: ")
		sb.WriteString(e.Detail)
	}
	if e.Hint != "" {
		sb.WriteString("\nHINT: ")
		sb.WriteString(e.Hint)
	}
	return sb.String()
}

// ExecResult is the outcome of running one statement: exactly one of Rows
// and Err is set.
type ExecResult struct {
	Rows *ResultSet
	Err  *ExecError
}

// Failed reports whether the execution failed.
func (r *ExecResult) Failed() bool {
	return r == nil || r.Err != nil
}

// Text returns the textual form of the result: the tabular rendering on
// success or the error payload on failure.
func (r *ExecResult) Text() string {
	switch {
	case r == nil:
		return ""
	case r.Err != nil:
		return r.Err.Error()
	case r.Rows != nil:
		return r.Rows.Text
	}
	return ""
}

// NewExecFailure builds a failed result for a statement.
func NewExecFailure(statement string, err *ExecError) *ExecResult {
	if err.Statement == "" {
		err.Statement = statement
	}
	return &ExecResult{Err: err}
}
