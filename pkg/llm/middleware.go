package llm

import (
	"context"
	"log/slog"
	"time"
)

// WithTimeout bounds every call to c. A zero or negative d returns c unchanged.
func WithTimeout(c Completer, d time.Duration) Completer {
	if d <= 0 {
		return c
	}
	return CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return c.Complete(ctx, prompt)
	})
}

// WithTrace logs every prompt and raw reply at debug level under the given role.
func WithTrace(c Completer, role string, logger *slog.Logger) Completer {
	if logger == nil {
		return c
	}
	logger = logger.With(slog.String("role", role))
	return CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		start := time.Now()
		logger.DebugContext(ctx, "model request", slog.String("prompt", prompt))
		reply, err := c.Complete(ctx, prompt)
		if err != nil {
			logger.DebugContext(ctx, "model error", slog.Duration("elapsed", time.Since(start)), slog.Any("error", err))
			return "", err
		}
		logger.DebugContext(ctx, "model response", slog.Duration("elapsed", time.Since(start)), slog.String("response", reply))
		return reply, nil
	})
}
