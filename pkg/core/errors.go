package core

import (
	"errors"
	"fmt"
)

// ErrEmptyQuestion is returned when a blank question is submitted.
var ErrEmptyQuestion = errors.New("question must not be empty")

// MalformedVerdictError is returned when a validator response cannot be
// decoded into a verdict.
type MalformedVerdictError struct {
	Raw    string
	Reason string
	Err    error
}

func (e *MalformedVerdictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed verdict: %s: %v", e.Reason, e.Err)
	}
	return "malformed verdict: " + e.Reason
}

func (e *MalformedVerdictError) Unwrap() error {
	return e.Err
}

// RetryBudgetExhaustedError is returned when every attempt failed.
type RetryBudgetExhaustedError struct {
	Attempts int
	Log      []AttemptFailure
}

// Last returns the last recorded failure, if any.
func (e *RetryBudgetExhaustedError) Last() (AttemptFailure, bool) {
	if len(e.Log) == 0 {
		return AttemptFailure{}, false
	}
	return e.Log[len(e.Log)-1], true
}

func (e *RetryBudgetExhaustedError) Error() string {
	last, ok := e.Last()
	if !ok {
		return fmt.Sprintf("max retries reached after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("max retries reached after %d attempts, last error: %s", e.Attempts, last)
}
