package commands

import (
	"github.com/leapstack-labs/asksql/internal/cli/output"
	"github.com/leapstack-labs/asksql/pkg/schema"
	"github.com/spf13/cobra"
)

// NewExamplesCommand creates the examples command.
func NewExamplesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "List example questions",
		Long: `List the example questions. Pass a number to ask, run or validate
with --example N to use one.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContextWithoutEngine(cmd)
			if err != nil {
				return err
			}

			questions := schema.DefaultQuestions()
			if cmdCtx.Cfg.ExamplesFile != "" {
				if questions, err = schema.LoadQuestions(cmdCtx.Cfg.ExamplesFile); err != nil {
					return err
				}
			}

			r := cmdCtx.Renderer
			if r.Mode() == output.ModeJSON {
				return r.JSON(questions)
			}
			for i, q := range questions {
				r.Printf("%2d. %s\n", i+1, q)
			}
			return nil
		},
	}
}
