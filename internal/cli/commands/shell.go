package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/spf13/cobra"
)

const shellPrompt = "asksql> "

// ShellOptions holds options for the shell command.
type ShellOptions struct {
	NoValidate bool
}

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	opts := &ShellOptions{}

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Ask questions interactively",
		Long: `Start an interactive session. Each line is a question; lines starting
with a dot are commands (type .help to list them).

Questions are validated first unless validation is turned off with
--no-validate or ".validate off".`,
		Example: `  # Start the shell
  asksql shell

  # Skip validation
  asksql shell --no-validate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoValidate, "no-validate", false, "Skip the validation pre-pass")

	return cmd
}

func runShell(cmd *cobra.Command, opts *ShellOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     historyFile(),
		AutoComplete:    newShellCompleter(cmdCtx.Engine.Schema().Vocabulary()),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r := cmdCtx.Renderer
	r.Printf("asksql shell (%s, up to %d attempts per question)\n",
		cmdCtx.Engine.Dialect().Title, cmdCtx.Engine.MaxRetries())
	r.Println("Type .help for commands, .quit to exit")
	r.Println()

	sh := &shell{cmdCtx: cmdCtx, in: rl, validate: !opts.NoValidate}
	return sh.loop(cmd.Context())
}

// historyFile returns the shell history path, or "" to disable history.
func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "asksql")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

type shell struct {
	cmdCtx   *CommandContext
	in       lineReader
	validate bool
	lastSQL  string
}

func (s *shell) loop(ctx context.Context) error {
	for {
		s.in.SetPrompt(shellPrompt)
		line, err := s.in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if s.dotCommand(ctx, line) {
				return nil
			}
			continue
		}

		s.ask(ctx, line)
		s.cmdCtx.Renderer.Println()
	}
}

// ask runs one question. Failures are reported and the session continues.
func (s *shell) ask(ctx context.Context, question string) {
	r := s.cmdCtx.Renderer
	eng := s.cmdCtx.Engine

	if s.validate {
		v, err := eng.Validate(ctx, question, "")
		if err != nil {
			r.Error(err.Error())
			return
		}
		showVerdict(s.cmdCtx, v)

		chosen, err := review(ctx, eng, s.cmdCtx, s.in, question, v)
		if err != nil {
			r.Error(err.Error())
			return
		}
		if chosen == "" {
			r.Muted("Skipped.")
			return
		}
		question = chosen
	}

	out, err := askAndRender(ctx, s.cmdCtx, question)
	if err != nil {
		// exhaustion has already been reported with its attempt log
		var exhausted *core.RetryBudgetExhaustedError
		if !errors.As(err, &exhausted) {
			r.Error(err.Error())
		}
		return
	}
	s.lastSQL = out.SQL
}

// dotCommand handles a shell command and reports whether to exit.
func (s *shell) dotCommand(ctx context.Context, line string) bool {
	r := s.cmdCtx.Renderer
	parts := strings.Fields(line)

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		r.Println(shellHelp)

	case ".examples":
		for i, q := range s.cmdCtx.Engine.Questions() {
			r.Printf("%2d. %s\n", i+1, q)
		}

	case ".example":
		if len(parts) < 2 {
			r.Warning("Usage: .example <n>")
			return false
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			r.Warning(fmt.Sprintf("not a number: %q", parts[1]))
			return false
		}
		q, err := questionFromArgs(nil, n, s.cmdCtx.Engine.Questions())
		if err != nil {
			r.Warning(err.Error())
			return false
		}
		r.Muted(q)
		s.ask(ctx, q)

	case ".schema", ".tables":
		if len(parts) > 1 {
			if err := showTable(r, s.cmdCtx.Engine.Schema(), parts[1]); err != nil {
				r.Warning(err.Error())
			}
			return false
		}
		if err := showTables(r, s.cmdCtx.Engine.Schema()); err != nil {
			r.Warning(err.Error())
		}

	case ".validate":
		if len(parts) > 1 {
			switch strings.ToLower(parts[1]) {
			case "on":
				s.validate = true
			case "off":
				s.validate = false
			default:
				r.Warning("Usage: .validate on|off")
				return false
			}
		}
		state := "off"
		if s.validate {
			state = "on"
		}
		r.Muted("validation is " + state)

	case ".sql":
		if s.lastSQL == "" {
			r.Muted("no query has run yet")
			return false
		}
		r.Println(s.lastSQL)

	case ".clear":
		r.Printf("\033[H\033[2J")

	default:
		r.Warning(fmt.Sprintf("Unknown command: %s (type .help for commands)", parts[0]))
	}
	return false
}

const shellHelp = `
Commands:
  .help            Show this help message
  .examples        List the example questions
  .example <n>     Ask the n-th example question
  .schema [table]  Show the schema tables, or one table
  .validate on|off Toggle the validation pre-pass
  .sql             Print the last successful SQL
  .clear           Clear the screen
  .quit / .exit    Exit the shell

Anything else is asked as a question.`

// newShellCompleter completes dot commands and schema identifiers.
func newShellCompleter(vocabulary []string) *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".examples"),
		readline.PcItem(".example"),
		readline.PcItem(".schema"),
		readline.PcItem(".tables"),
		readline.PcItem(".validate", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem(".sql"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	}
	for _, word := range vocabulary {
		items = append(items, readline.PcItem(word))
	}
	return readline.NewPrefixCompleter(items...)
}
