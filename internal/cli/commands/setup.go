package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/asksql/internal/cli/config"
	"github.com/leapstack-labs/asksql/internal/cli/output"
	"github.com/leapstack-labs/asksql/internal/engine"
	"github.com/leapstack-labs/asksql/pkg/schema"
	"github.com/spf13/cobra"
)

// completerKey is used to store a completer factory override in context.
type completerKey struct{}

// WithCompleterFactory makes commands run against f instead of the
// configured model providers.
func WithCompleterFactory(ctx context.Context, f engine.CompleterFactory) context.Context {
	return context.WithValue(ctx, completerKey{}, f)
}

func completerFactory(ctx context.Context) engine.CompleterFactory {
	if f, ok := ctx.Value(completerKey{}).(engine.CompleterFactory); ok {
		return f
	}
	return nil
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return nil, nil, err
	}

	engCfg, err := EngineConfig(cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	engCfg.NewCompleter = completerFactory(cmd.Context())

	eng, err := engine.New(engCfg)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Engine = eng

	cleanup := func() {
		if err := eng.Close(); err != nil {
			cmdCtx.Logger.Warn("failed to close engine", slog.Any("error", err))
		}
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need models or database access.
func NewCommandContextWithoutEngine(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetConfig(cmd.Context())
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}

	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// EngineConfig loads the assets named by cfg and builds the engine configuration.
func EngineConfig(cfg *config.Config, logger *slog.Logger) (engine.Config, error) {
	s, err := loadSchema(cfg.SchemaFile)
	if err != nil {
		return engine.Config{}, err
	}

	var example string
	if cfg.ExampleFile != "" {
		if example, err = schema.LoadExample(cfg.ExampleFile); err != nil {
			return engine.Config{}, err
		}
	}

	var questions []string
	if cfg.ExamplesFile != "" {
		if questions, err = schema.LoadQuestions(cfg.ExamplesFile); err != nil {
			return engine.Config{}, err
		}
	}

	var target config.TargetConfig
	if cfg.Target != nil {
		target = *cfg.Target
	}

	return engine.Config{
		Schema:      s,
		Example:     example,
		Questions:   questions,
		Models:      cfg.Models,
		Providers:   cfg.Providers,
		Target:      target.AdapterConfig(),
		MaxRetries:  cfg.MaxRetries,
		CallTimeout: cfg.CallTimeout,
		Trace:       cfg.Trace,
		Logger:      logger,
	}, nil
}

func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return schema.Default(), nil
	}
	return schema.Load(path)
}

// questionFromArgs joins the positional arguments or picks the n-th
// (1-based) example question.
func questionFromArgs(args []string, example int, questions []string) (string, error) {
	if example > 0 {
		if len(args) > 0 {
			return "", errors.New("pass either a question or --example, not both")
		}
		if example > len(questions) {
			return "", fmt.Errorf("example %d out of range (1-%d)", example, len(questions))
		}
		return questions[example-1], nil
	}

	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		return "", errors.New("a question is required (or use --example N)")
	}
	return q, nil
}
