package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/asksql/internal/cli/output"
	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/leapstack-labs/asksql/pkg/schema"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// BatchOptions holds options for the batch command.
type BatchOptions struct {
	Concurrency int
	Validate    bool
}

// BatchResult is the outcome of one question in a batch.
type BatchResult struct {
	Question string              `json:"question"`
	Asked    string              `json:"asked,omitempty"`
	SQL      string              `json:"sql,omitempty"`
	Attempts int                 `json:"attempts"`
	Rows     []map[string]string `json:"rows,omitempty"`
	Error    string              `json:"error,omitempty"`
	Elapsed  time.Duration       `json:"elapsed_ns"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand() *cobra.Command {
	opts := &BatchOptions{}

	cmd := &cobra.Command{
		Use:   "batch [questions.yaml]",
		Short: "Run many questions as independent sessions",
		Long: `Run a list of questions through the pipeline concurrently.

Questions are read from a YAML file with a top-level "questions" list, or
default to the example questions. Every question runs as its own session
with its own retry budget; one failure does not stop the others.`,
		Example: `  # Run all example questions, four at a time
  asksql batch

  # Run questions from a file, validating and accepting improvements first
  asksql batch questions.yaml --validate -c 2 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Concurrency, "concurrency", "c", 4, "Maximum questions in flight")
	cmd.Flags().BoolVar(&opts.Validate, "validate", false, "Validate each question and run the improved wording")

	return cmd
}

func runBatch(cmd *cobra.Command, args []string, opts *BatchOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	questions := cmdCtx.Engine.Questions()
	if len(args) == 1 {
		if questions, err = schema.LoadQuestions(args[0]); err != nil {
			return err
		}
	}
	if len(questions) == 0 {
		return errors.New("no questions to run")
	}

	results := runSessions(cmd, cmdCtx, questions, opts)

	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}

	r := cmdCtx.Renderer
	if r.Mode() == output.ModeJSON {
		if err := r.JSON(results); err != nil {
			return err
		}
	} else {
		renderBatchTable(r, results)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d questions failed", failed, len(results))
	}
	return nil
}

// runSessions runs each question independently with bounded concurrency.
// Results keep the input order.
func runSessions(cmd *cobra.Command, cmdCtx *CommandContext, questions []string, opts *BatchOptions) []BatchResult {
	ctx := cmd.Context()
	results := make([]BatchResult, len(questions))

	g := new(errgroup.Group)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for i, q := range questions {
		g.Go(func() error {
			start := time.Now()
			res := BatchResult{Question: q, Asked: q}
			defer func() {
				res.Elapsed = time.Since(start)
				results[i] = res
			}()

			if opts.Validate {
				v, err := cmdCtx.Engine.Validate(ctx, q, "")
				if err != nil {
					res.Error = err.Error()
					return nil
				}
				res.Asked = v.CorrectedInput
			}

			out, err := cmdCtx.Engine.Ask(ctx, res.Asked)
			if err != nil {
				res.Error = err.Error()
				var exhausted *core.RetryBudgetExhaustedError
				if errors.As(err, &exhausted) {
					res.Attempts = exhausted.Attempts
				}
				cmdCtx.Logger.Warn("question failed", slog.Int("index", i+1), slog.Any("error", err))
				return nil
			}

			res.SQL = out.SQL
			res.Attempts = out.Attempts
			res.Rows = out.Result.Records()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func renderBatchTable(r *output.Renderer, results []BatchResult) {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Question", "Status", "Attempts", "Rows", "Time"})

	for i, res := range results {
		status := "ok"
		rows := fmt.Sprint(len(res.Rows))
		if res.Error != "" {
			status = "failed"
			rows = "-"
		}
		t.AppendRow(table.Row{i + 1, truncate(res.Question, 60), status, res.Attempts, rows, res.Elapsed.Round(time.Millisecond)})
	}
	t.Render()

	for i, res := range results {
		if res.Error != "" {
			r.Error(fmt.Sprintf("#%d: %s", i+1, truncate(res.Error, 200)))
		}
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
