// Package engine wires the schema, model-backed stages and the target
// database into the question-to-results flow.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/asksql/pkg/adapter"
	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/leapstack-labs/asksql/pkg/llm"
	"github.com/leapstack-labs/asksql/pkg/pipeline"
	"github.com/leapstack-labs/asksql/pkg/schema"
	"github.com/leapstack-labs/asksql/pkg/sqlgen"
	"github.com/leapstack-labs/asksql/pkg/validator"
)

// Model-backed roles.
const (
	RoleGenerator = "generator"
	RoleCorrector = "corrector"
	RoleValidator = "validator"
)

// CompleterFactory builds the completer behind one role.
type CompleterFactory func(role string, model core.ModelConfig) (llm.Completer, error)

// Config holds engine configuration.
type Config struct {
	// Schema grounds every prompt. Nil uses the embedded Pagila schema.
	Schema *schema.Schema
	// Example is the worked example shown to the generator. Empty uses the embedded one.
	Example string
	// Questions are the example questions offered to users.
	Questions []string

	Models    core.ModelsConfig
	Providers map[string]core.ProviderConfig
	Target    core.AdapterConfig

	// MaxRetries bounds pipeline attempts.
	MaxRetries int
	// CallTimeout bounds each model call and each statement execution.
	// Zero means no timeout.
	CallTimeout time.Duration
	// Trace logs every prompt and raw model reply at debug level.
	Trace bool

	// NewCompleter replaces provider lookup (optional).
	NewCompleter CompleterFactory

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine owns one configured set of stages and a lazily connected database.
// It is safe for concurrent use; each Ask runs with its own pipeline state.
type Engine struct {
	schema    *schema.Schema
	example   string
	questions []string
	dialect   sqlgen.Dialect

	validator *validator.Validator
	generator *sqlgen.Generator
	corrector *sqlgen.Corrector

	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    core.AdapterConfig
	dbConnected bool
	dbMu        sync.Mutex

	maxRetries  int
	callTimeout time.Duration
	logger      *slog.Logger
}

// New creates an engine. No model or database calls are made until used.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := cfg.Schema
	if s == nil {
		s = schema.Default()
	}
	example := cfg.Example
	if example == "" {
		example = schema.DefaultExample()
	}
	questions := cfg.Questions
	if questions == nil {
		questions = schema.DefaultQuestions()
	}

	if cfg.Target.Type == "" {
		cfg.Target.Type = "postgres"
	}
	d, err := sqlgen.DialectFor(cfg.Target.Type)
	if err != nil {
		return nil, err
	}

	logger.Debug("initializing engine",
		slog.String("target", cfg.Target.Type),
		slog.Int("tables", len(s.Tables())),
		slog.Int("max_retries", cfg.MaxRetries))

	e := &Engine{
		schema:      s,
		example:     example,
		questions:   questions,
		dialect:     d,
		dbConfig:    cfg.Target,
		maxRetries:  cfg.MaxRetries,
		callTimeout: cfg.CallTimeout,
		logger:      logger,
	}

	gen, err := e.completer(cfg, RoleGenerator, cfg.Models.Generator)
	if err != nil {
		return nil, err
	}
	corr, err := e.completer(cfg, RoleCorrector, cfg.Models.Corrector)
	if err != nil {
		return nil, err
	}
	val, err := e.completer(cfg, RoleValidator, cfg.Models.Validator)
	if err != nil {
		return nil, err
	}

	e.generator = sqlgen.NewGenerator(gen, s, example, logger)
	e.corrector = sqlgen.NewCorrector(corr, s, d, logger)
	e.validator = validator.New(val, s, logger)
	return e, nil
}

func (e *Engine) completer(cfg Config, role string, model core.ModelConfig) (llm.Completer, error) {
	var (
		c   llm.Completer
		err error
	)
	if cfg.NewCompleter != nil {
		c, err = cfg.NewCompleter(role, model)
	} else {
		c, err = llm.New(cfg.Providers[model.Provider], model, e.logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", role, err)
	}

	c = llm.WithTimeout(c, cfg.CallTimeout)
	if cfg.Trace {
		c = llm.WithTrace(c, role, e.logger)
	}
	return c, nil
}

// ensureDBConnected lazily connects to the database.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to database", slog.String("adapter_type", e.dbConfig.Type))

	db, err := adapter.Open(ctx, e.dbConfig, e.logger)
	if err != nil {
		return err
	}

	e.db = db
	e.dbConnected = true
	e.logger.Debug("database connected", slog.String("dialect", db.DialectName()))
	return nil
}

// Adapter returns the connected database adapter, connecting on first use.
func (e *Engine) Adapter(ctx context.Context) (adapter.Adapter, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.db, nil
}

// Validate critiques a question against the schema.
func (e *Engine) Validate(ctx context.Context, question, instructions string) (*core.Verdict, error) {
	return e.validator.Validate(ctx, question, instructions)
}

// Revalidate produces a new verdict for question guided by a suggestion.
func (e *Engine) Revalidate(ctx context.Context, question, suggestion string) (*core.Verdict, error) {
	return e.validator.Revalidate(ctx, question, suggestion)
}

// Ask runs the generate, correct and execute loop for one question.
func (e *Engine) Ask(ctx context.Context, question string) (*pipeline.Outcome, error) {
	return e.AskWithProgress(ctx, question, nil)
}

// AskWithProgress is Ask with a callback invoked after every failed attempt.
func (e *Engine) AskWithProgress(ctx context.Context, question string, onFailure func(core.AttemptFailure)) (*pipeline.Outcome, error) {
	db, err := e.Adapter(ctx)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(pipeline.Config{
		Generator:  e.generator,
		Corrector:  e.corrector,
		Executor:   pipeline.WithExecTimeout(db, e.callTimeout),
		MaxRetries: e.maxRetries,
		Logger:     e.logger,
		OnFailure:  onFailure,
	})
	return p.Process(ctx, question)
}

// Close releases the database connection, if any.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	e.dbConnected = false
	if err != nil && !errors.Is(err, adapter.ErrNotConnected) {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// --- Getters (public accessors) ---

// Schema returns the schema grounding all prompts.
func (e *Engine) Schema() *schema.Schema {
	return e.schema
}

// Example returns the worked example shown to the generator.
func (e *Engine) Example() string {
	return e.example
}

// Questions returns the example questions.
func (e *Engine) Questions() []string {
	return e.questions
}

// Dialect returns the SQL dialect of the target.
func (e *Engine) Dialect() sqlgen.Dialect {
	return e.dialect
}

// MaxRetries returns the effective retry budget.
func (e *Engine) MaxRetries() int {
	if e.maxRetries <= 0 {
		return pipeline.DefaultMaxRetries
	}
	return e.maxRetries
}
