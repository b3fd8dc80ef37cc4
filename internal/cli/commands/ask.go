package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/asksql/internal/cli/output"
	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/spf13/cobra"
)

// AskOptions holds options for the ask command.
type AskOptions struct {
	Example      int
	Instructions string
	Yes          bool
	NoValidate   bool
}

// NewAskCommand creates the ask command.
func NewAskCommand() *cobra.Command {
	opts := &AskOptions{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Validate a question, confirm it, then run it",
		Long: `Check a natural-language question against the schema before running it.

The validator reports the original question, an improved wording when the
question is ambiguous or misspelled, and its reasoning. In a terminal you can
then accept the improved question, keep your own, or suggest a change and
validate again. The chosen question is then run through the SQL pipeline.

Without a terminal the original question is kept unless --yes is given.`,
		Example: `  # Review and run interactively
  asksql ask "top custmers by rentals"

  # Accept the improved question without prompting
  asksql ask --yes "films with the most actors"

  # Steer the validator
  asksql ask -i "only count rentals from 2022" "busiest stores"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Example, "example", "n", 0, "Ask the N-th example question")
	cmd.Flags().StringVarP(&opts.Instructions, "instructions", "i", "", "Extra instructions for the validator")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Run the improved question without prompting")
	cmd.Flags().BoolVar(&opts.NoValidate, "no-validate", false, "Skip validation and run the question as given")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string, opts *AskOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	question, err := questionFromArgs(args, opts.Example, cmdCtx.Engine.Questions())
	if err != nil {
		return err
	}
	if opts.NoValidate {
		return runQuestion(cmd, cmdCtx, question)
	}

	ctx := cmd.Context()
	r := cmdCtx.Renderer

	v, err := cmdCtx.Engine.Validate(ctx, question, opts.Instructions)
	if err != nil {
		return err
	}
	showVerdict(cmdCtx, v)

	switch {
	case opts.Yes:
		question = v.CorrectedInput
	case r.IsTTY() && output.IsTerminal(os.Stdin):
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "> ",
			InterruptPrompt: "^C",
			EOFPrompt:       "quit",
		})
		if err != nil {
			return fmt.Errorf("failed to initialize prompt: %w", err)
		}
		defer func() { _ = rl.Close() }()

		chosen, err := review(ctx, cmdCtx.Engine, cmdCtx, rl, question, v)
		if err != nil {
			return err
		}
		if chosen == "" {
			r.Muted("Cancelled.")
			return nil
		}
		question = chosen
	case v.Changed():
		r.Warning("keeping the original question; pass --yes to run the improved one")
	}

	cmdCtx.Logger.Debug("running question", slog.String("question", question))
	return runQuestion(cmd, cmdCtx, question)
}

// showVerdict renders v in table mode and logs it otherwise, keeping
// structured output limited to the results.
func showVerdict(cmdCtx *CommandContext, v *core.Verdict) {
	if cmdCtx.Renderer.Mode() == output.ModeTable {
		_ = cmdCtx.Renderer.Verdict(v)
		return
	}
	cmdCtx.Logger.Info("validated question",
		slog.String("original", v.OriginalQuery),
		slog.String("corrected", v.CorrectedInput),
		slog.String("feedback", v.Feedback))
}

// lineReader is the part of a readline instance the review loop uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// reviser produces a new verdict for a question and a suggestion.
type reviser interface {
	Revalidate(ctx context.Context, question, suggestion string) (*core.Verdict, error)
}

// review lets the operator choose which question to run. It returns an
// empty string when the operator quits.
func review(ctx context.Context, rev reviser, cmdCtx *CommandContext, in lineReader, question string, v *core.Verdict) (string, error) {
	r := cmdCtx.Renderer
	for {
		if v.Changed() {
			in.SetPrompt("[a]ccept improved, [k]eep original, [s]uggest, [q]uit > ")
		} else {
			in.SetPrompt("[r]un, [s]uggest, [q]uit > ")
		}

		line, err := in.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil {
			return "", err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "a", "accept", "r", "run", "y", "yes":
			return v.CorrectedInput, nil
		case "k", "keep":
			return question, nil
		case "q", "quit", "exit":
			return "", nil
		case "s", "suggest":
			in.SetPrompt("suggestion> ")
			suggestion, err := in.Readline()
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				continue
			}
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(suggestion) == "" {
				continue
			}

			next, err := rev.Revalidate(ctx, question, suggestion)
			var malformed *core.MalformedVerdictError
			if errors.As(err, &malformed) {
				r.Error(err.Error())
				continue
			}
			if err != nil {
				return "", err
			}
			v = next
			showVerdict(cmdCtx, v)
		default:
			r.Warning(fmt.Sprintf("unknown choice %q", line))
		}
	}
}
