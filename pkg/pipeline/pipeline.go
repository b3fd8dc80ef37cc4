// Package pipeline runs the bounded generate, correct and execute loop that
// turns a question into SQL that actually runs.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/leapstack-labs/asksql/pkg/core"
)

// DefaultMaxRetries is the attempt budget when Config.MaxRetries is unset.
const DefaultMaxRetries = 5

// Generator drafts SQL for a question.
type Generator interface {
	Generate(ctx context.Context, question string) (string, error)
}

// Corrector rewrites SQL for the target dialect.
type Corrector interface {
	Correct(ctx context.Context, sql string) (string, error)
}

// Executor runs SQL. SQL failures are reported in the result; the error
// return is for infrastructure problems.
type Executor interface {
	Execute(ctx context.Context, sql string) (*core.ExecResult, error)
}

// Config wires the stages of a pipeline.
type Config struct {
	Generator  Generator
	Corrector  Corrector
	Executor   Executor
	MaxRetries int // attempts, not seconds; <= 0 means DefaultMaxRetries
	Logger     *slog.Logger

	// OnFailure is called after every failed attempt (optional).
	OnFailure func(core.AttemptFailure)
}

// Pipeline is safe for concurrent use: every Process call owns its state.
type Pipeline struct {
	gen        Generator
	corr       Corrector
	exec       Executor
	maxRetries int
	logger     *slog.Logger
	onFailure  func(core.AttemptFailure)
}

// Outcome is a successful run.
type Outcome struct {
	SQL      string
	Result   *core.ResultSet
	Attempts int
	State    *core.PipelineState
	// Log holds the failures of the attempts before the successful one.
	Log []core.AttemptFailure
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Pipeline{
		gen:        cfg.Generator,
		corr:       cfg.Corrector,
		exec:       cfg.Executor,
		maxRetries: maxRetries,
		logger:     logger,
		onFailure:  cfg.OnFailure,
	}
}

// MaxRetries returns the attempt budget.
func (p *Pipeline) MaxRetries() int {
	return p.maxRetries
}

// Process turns question into executed SQL.
//
// A failure in any stage ends the attempt; it is appended to the attempt
// log and the next attempt regenerates from the original question followed
// by every failure so far. After MaxRetries failed attempts Process returns
// *core.RetryBudgetExhaustedError. Cancellation of ctx stops the loop and
// returns ctx's error.
func (p *Pipeline) Process(ctx context.Context, question string) (*Outcome, error) {
	if strings.TrimSpace(question) == "" {
		return nil, core.ErrEmptyQuestion
	}

	logger := p.logger.With(slog.String("run_id", uuid.NewString()))
	state := core.NewPipelineState(question)
	log := &core.AttemptLog{}

	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attemptLogger := logger.With(slog.Int("attempt", attempt))
		attemptLogger.Debug("attempt started", slog.String("input", state.Input))

		stage, msg, err := p.attempt(ctx, state)
		if err != nil {
			return nil, err
		}
		if stage == "" {
			attemptLogger.Info("query succeeded", slog.Int("rows", state.QueryResult.Rows.Len()))
			return &Outcome{
				SQL:      state.FinalSQL,
				Result:   state.QueryResult.Rows,
				Attempts: attempt,
				State:    state,
				Log:      log.Entries(),
			}, nil
		}

		failure := core.AttemptFailure{Attempt: attempt, Stage: stage, Message: msg}
		log.Append(failure)
		state.Enrich(log)
		attemptLogger.Warn("attempt failed", slog.String("stage", string(stage)), slog.String("error", msg))
		if p.onFailure != nil {
			p.onFailure(failure)
		}
	}

	logger.Error("retry budget exhausted", slog.Int("attempts", p.maxRetries))
	return nil, &core.RetryBudgetExhaustedError{Attempts: p.maxRetries, Log: log.Entries()}
}

// attempt runs one generate, correct, execute pass. It returns the failed
// stage and its message, or an empty stage on success. A non-nil error
// means the run must stop.
func (p *Pipeline) attempt(ctx context.Context, state *core.PipelineState) (core.Stage, string, error) {
	draft, err := p.gen.Generate(ctx, state.Input)
	if err != nil {
		return core.StageGenerate, err.Error(), ctx.Err()
	}
	state.DraftSQL = draft

	final, err := p.corr.Correct(ctx, draft)
	if err != nil {
		return core.StageCorrect, err.Error(), ctx.Err()
	}

	result, err := p.exec.Execute(ctx, collapseNewlines(final))
	if err != nil {
		return core.StageExecute, err.Error(), ctx.Err()
	}
	if result == nil {
		result = core.NewExecFailure(final, &core.ExecError{Message: "executor returned no result"})
	}
	state.Record(final, result)

	if result.Failed() {
		return core.StageExecute, result.Err.Error(), nil
	}
	return "", "", nil
}

func collapseNewlines(sql string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(sql)
}
