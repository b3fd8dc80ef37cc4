package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/asksql/pkg/core"
)

// blockingExecutor waits for its context to end.
var blockingExecutor = ExecutorFunc(func(ctx context.Context, _ string) (*core.ExecResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
})

func TestWithExecTimeout(t *testing.T) {
	t.Run("zero duration returns executor unchanged", func(t *testing.T) {
		r := &recorder{}
		assert.Same(t, r, WithExecTimeout(r, 0))
	})

	t.Run("fast statement passes through", func(t *testing.T) {
		exec := WithExecTimeout(&recorder{}, time.Second)
		res, err := exec.Execute(context.Background(), "SELECT 1")
		require.NoError(t, err)
		assert.False(t, res.Failed())
	})

	t.Run("sql failure is kept", func(t *testing.T) {
		r := &recorder{execute: func(_ int, sql string) (*core.ExecResult, error) {
			return core.NewExecFailure(sql, &core.ExecError{Message: "no such table: films"}), nil
		}}
		res, err := WithExecTimeout(r, time.Second).Execute(context.Background(), "SELECT * FROM films")
		require.NoError(t, err)
		require.True(t, res.Failed())
		assert.Equal(t, "no such table: films", res.Err.Message)
	})

	t.Run("slow statement becomes a failed result", func(t *testing.T) {
		start := time.Now()
		res, err := WithExecTimeout(blockingExecutor, 20*time.Millisecond).Execute(context.Background(), "SELECT slow()")
		require.NoError(t, err)
		require.True(t, res.Failed())
		assert.Contains(t, res.Err.Message, "timed out after 20ms")
		assert.Equal(t, "SELECT slow()", res.Err.Statement)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("caller cancellation is returned", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := WithExecTimeout(blockingExecutor, time.Minute).Execute(ctx, "SELECT 1")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestProcess_StatementTimeoutIsRetried(t *testing.T) {
	r := &recorder{}
	p := New(Config{
		Generator:  r,
		Corrector:  r,
		Executor:   WithExecTimeout(blockingExecutor, 10*time.Millisecond),
		MaxRetries: 2,
	})

	_, err := p.Process(context.Background(), "count every rental ever")
	var exhausted *core.RetryBudgetExhaustedError
	require.True(t, errors.As(err, &exhausted))
	require.Len(t, exhausted.Log, 2)
	for _, f := range exhausted.Log {
		assert.Equal(t, core.StageExecute, f.Stage)
		assert.Contains(t, f.Message, "timed out")
	}
	require.Len(t, r.inputs, 2)
	assert.Contains(t, r.inputs[1], "timed out", "the timeout is fed back to the next attempt")
}
