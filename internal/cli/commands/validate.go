package commands

import (
	"github.com/spf13/cobra"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Example      int
	Instructions string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [question]",
		Short: "Check a question against the schema without running it",
		Long: `Ask the validator to critique a natural-language question.

The verdict lists the original question, a corrected wording (identical to
the original when no change is needed) and feedback explaining any change.
Use -o json for the raw verdict.`,
		Example: `  asksql validate "films with most actrs"
  asksql validate -i "count distinct titles" "how many films per category"
  asksql validate --example 2 -o json`,
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

			v, err := cmdCtx.Engine.Validate(cmd.Context(), question, opts.Instructions)
			if err != nil {
				return err
			}
			return cmdCtx.Renderer.Verdict(v)
		},
	}

	cmd.Flags().IntVarP(&opts.Example, "example", "n", 0, "Validate the N-th example question")
	cmd.Flags().StringVarP(&opts.Instructions, "instructions", "i", "", "Extra instructions for the validator")

	return cmd
}
