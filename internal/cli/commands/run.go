package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/leapstack-labs/asksql/pkg/pipeline"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Example int
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run [question]",
		Short: "Generate, correct and execute SQL for a question",
		Long: `Run a natural-language question through the SQL pipeline without the
validation pre-pass.

Each attempt generates SQL, corrects it for the target dialect and executes
it. When execution fails, the error is appended to the question and the
pipeline tries again, up to max_retries attempts.`,
		Example: `  # Ask a question directly
  asksql run "Show me the top 5 customers who have rented the most movies"

  # Run the third example question
  asksql run --example 3

  # Output as CSV
  asksql run "How many films are rated PG?" -o csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			question, err := questionFromArgs(args, opts.Example, cmdCtx.Engine.Questions())
			if err != nil {
				return err
			}
			return runQuestion(cmd, cmdCtx, question)
		},
	}

	cmd.Flags().IntVarP(&opts.Example, "example", "n", 0, "Run the N-th example question")

	return cmd
}

// runQuestion runs the pipeline and renders the outcome.
func runQuestion(cmd *cobra.Command, cmdCtx *CommandContext, question string) error {
	_, err := askAndRender(cmd.Context(), cmdCtx, question)
	return err
}

func askAndRender(ctx context.Context, cmdCtx *CommandContext, question string) (*pipeline.Outcome, error) {
	r := cmdCtx.Renderer

	out, err := cmdCtx.Engine.Ask(ctx, question)
	if err != nil {
		var exhausted *core.RetryBudgetExhaustedError
		if errors.As(err, &exhausted) {
			r.Error(fmt.Sprintf("no result after %d attempts", exhausted.Attempts))
			r.Attempts(exhausted.Log)
		}
		return nil, err
	}

	r.SQL(out.SQL)
	if err := r.Results(out.Result); err != nil {
		return nil, err
	}
	if cmdCtx.Cfg.Verbose && out.Attempts > 1 {
		r.Muted(fmt.Sprintf("succeeded on attempt %d of %d", out.Attempts, cmdCtx.Engine.MaxRetries()))
	}
	return out, nil
}
