package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/asksql/pkg/core"
)

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, sql string) (*core.ExecResult, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, sql string) (*core.ExecResult, error) {
	return f(ctx, sql)
}

// WithExecTimeout bounds every Execute call on e. A zero or negative d
// returns e unchanged.
//
// A statement that outlives d is reported as a failed result, so the
// pipeline records it as an execute failure and regenerates. Cancellation
// of the caller's ctx is still returned as an error.
func WithExecTimeout(e Executor, d time.Duration) Executor {
	if d <= 0 {
		return e
	}
	return ExecutorFunc(func(ctx context.Context, sql string) (*core.ExecResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		res, err := e.Execute(callCtx, sql)
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && (err != nil || res.Failed()) {
			return core.NewExecFailure(sql, &core.ExecError{
				Message: fmt.Sprintf("statement timed out after %s", d),
			}), nil
		}
		return res, err
	})
}
