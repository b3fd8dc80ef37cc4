package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/asksql/internal/cli/config"
	"github.com/leapstack-labs/asksql/internal/cli/output"
	"github.com/leapstack-labs/asksql/internal/cli/testutil"
	"github.com/leapstack-labs/asksql/internal/engine"
	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/leapstack-labs/asksql/pkg/llm"
	"github.com/leapstack-labs/asksql/pkg/llm/llmtest"
	"github.com/leapstack-labs/asksql/pkg/schema"

	_ "github.com/leapstack-labs/asksql/pkg/adapters/sqlite"
)

const filmDBML = `Table film {
  film_id int [pk]
  title text
  rating text
  rental_rate numeric
}
`

// harness runs commands against a temporary project with scripted models.
type harness struct {
	dir     string
	cfg     *config.Config
	scripts map[string]*llmtest.Script
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := testutil.SetupTestProject(t)
	cfg, err := config.LoadConfig(filepath.Join(dir, "asksql.yaml"), nil)
	require.NoError(t, err)
	return &harness{dir: dir, cfg: cfg, scripts: map[string]*llmtest.Script{}}
}

func (h *harness) factory() engine.CompleterFactory {
	return func(role string, _ core.ModelConfig) (llm.Completer, error) {
		if s, ok := h.scripts[role]; ok {
			return s, nil
		}
		return llmtest.NewScript("SELECT 1"), nil
	}
}

func (h *harness) script(role string, replies ...string) *llmtest.Script {
	s := llmtest.NewScript(replies...)
	h.scripts[role] = s
	return s
}

// sql scripts both the generator and the corrector with the same replies.
func (h *harness) sql(replies ...string) (gen *llmtest.Script) {
	gen = h.script(engine.RoleGenerator, replies...)
	h.script(engine.RoleCorrector, replies...)
	return gen
}

func (h *harness) execute(t *testing.T, cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	ctx := context.WithValue(context.Background(), config.ConfigKey(), h.cfg)
	ctx = context.WithValue(ctx, config.LoggerKey(), slog.New(slog.DiscardHandler))
	ctx = WithCompleterFactory(ctx, h.factory())

	err = cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

// commandContext builds a CommandContext with a live engine for tests that
// drive helpers directly.
func (h *harness) commandContext(t *testing.T) (*CommandContext, *testutil.TestRenderer) {
	t.Helper()
	engCfg, err := EngineConfig(h.cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	engCfg.NewCompleter = h.factory()

	eng, err := engine.New(engCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	tr := testutil.NewTestRenderer(output.ModeTable)
	return &CommandContext{
		Cfg:      h.cfg,
		Logger:   slog.New(slog.DiscardHandler),
		Engine:   eng,
		Renderer: tr.Renderer,
	}, tr
}

func verdictJSON(original, corrected, feedback string) string {
	b, _ := json.Marshal(core.Verdict{OriginalQuery: original, CorrectedInput: corrected, Feedback: feedback})
	return string(b)
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewVersionCommand(BuildInfo{Version: "1.0.0"}), "version", []string{"short"}},
		{NewAskCommand(), "ask [question]", []string{"example", "instructions", "yes", "no-validate"}},
		{NewRunCommand(), "run [question]", []string{"example"}},
		{NewValidateCommand(), "validate [question]", []string{"example", "instructions"}},
		{NewBatchCommand(), "batch [questions.yaml]", []string{"concurrency", "validate"}},
		{NewSchemaCommand(), "schema [table]", []string{"tables", "refs"}},
		{NewExamplesCommand(), "examples", nil},
		{NewDoctorCommand(), "doctor", nil},
		{NewServeCommand(), "serve", []string{"addr"}},
		{NewShellCommand(), "shell", []string{"no-validate"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			for _, name := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(name), "missing flag --%s", name)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	info := BuildInfo{Version: "1.2.3", BuildDate: "2026-01-02", GitCommit: "abc1234"}

	t.Run("full", func(t *testing.T) {
		cmd := NewVersionCommand(info)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{})

		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "asksql v1.2.3")
		assert.Contains(t, out.String(), "Natural-language questions to SQL")
		assert.Contains(t, out.String(), "commit: abc1234")
		assert.Contains(t, out.String(), "built:  2026-01-02")
	})

	t.Run("short", func(t *testing.T) {
		cmd := NewVersionCommand(info)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--short"})

		require.NoError(t, cmd.Execute())
		assert.Equal(t, "1.2.3\n", out.String())
	})
}

func TestQuestionFromArgs(t *testing.T) {
	questions := []string{"first", "second"}

	tests := []struct {
		name    string
		args    []string
		example int
		want    string
		wantErr string
	}{
		{name: "joined args", args: []string{"how", "many", "films?"}, want: "how many films?"},
		{name: "example", example: 2, want: "second"},
		{name: "both", args: []string{"q"}, example: 1, wantErr: "not both"},
		{name: "out of range", example: 3, wantErr: "example 3 out of range (1-2)"},
		{name: "blank", args: []string{"  "}, wantErr: "a question is required"},
		{name: "none", wantErr: "a question is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := questionFromArgs(tt.args, tt.example, questions)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCommandContextWithoutEngine_NoConfig(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	_, err := NewCommandContextWithoutEngine(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration not loaded")
}

func TestRunCommand(t *testing.T) {
	h := newHarness(t)
	gen := h.sql("SELECT title FROM film WHERE rating = 'PG'")

	stdout, _, err := h.execute(t, NewRunCommand(), "Which", "films", "are", "rated", "PG?")
	require.NoError(t, err)

	assert.Contains(t, stdout, "SELECT title FROM film WHERE rating = 'PG'")
	assert.Contains(t, stdout, "ACADEMY DINOSAUR")
	assert.Contains(t, stdout, "(1 rows)")
	testutil.AssertNoANSI(t, stdout)
	require.Len(t, gen.Prompts(), 1)
	assert.Contains(t, gen.Prompts()[0], "Which films are rated PG?")
}

func TestRunCommand_Example(t *testing.T) {
	h := newHarness(t)
	gen := h.sql("SELECT COUNT(*) AS n FROM film")

	_, _, err := h.execute(t, NewRunCommand(), "--example", "1")
	require.NoError(t, err)
	require.NotEmpty(t, gen.Prompts())
	assert.Contains(t, gen.Prompts()[0], schema.DefaultQuestions()[0])
}

func TestRunCommand_CSV(t *testing.T) {
	h := newHarness(t)
	h.cfg.OutputFormat = "csv"
	h.sql("SELECT title, rating FROM film WHERE film_id = 3")

	stdout, _, err := h.execute(t, NewRunCommand(), "film 3")
	require.NoError(t, err)
	assert.Equal(t, "title,rating\nADAPTATION HOLES,NC-17\n", stdout, "structured modes print only the rows")
}

func TestRunCommand_RetriesExhausted(t *testing.T) {
	h := newHarness(t)
	gen := h.sql("SELECT nope FROM film")

	_, stderr, err := h.execute(t, NewRunCommand(), "anything")
	require.Error(t, err)

	var exhausted *core.RetryBudgetExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Len(t, exhausted.Log, 3)
	assert.Equal(t, 3, gen.Calls())
	assert.Contains(t, stderr, "no result after 3 attempts")
	assert.Contains(t, stderr, "no such column")
}

func TestAskCommand_Yes(t *testing.T) {
	h := newHarness(t)
	val := h.script(engine.RoleValidator, verdictJSON("pg films", "Which films are rated PG?", "Rephrased as a question."))
	gen := h.sql("SELECT title FROM film WHERE rating = 'PG'")

	stdout, _, err := h.execute(t, NewAskCommand(), "--yes", "pg films")
	require.NoError(t, err)

	assert.Equal(t, 1, val.Calls())
	assert.Contains(t, stdout, "Which films are rated PG?")
	assert.Contains(t, stdout, "Rephrased as a question.")
	assert.Contains(t, stdout, "ACADEMY DINOSAUR")
	require.NotEmpty(t, gen.Prompts())
	assert.Contains(t, gen.Prompts()[0], "Which films are rated PG?")
}

func TestAskCommand_NonInteractiveKeepsOriginal(t *testing.T) {
	h := newHarness(t)
	h.script(engine.RoleValidator, verdictJSON("pg films", "Which films are rated PG?", "Rephrased."))
	gen := h.sql("SELECT title FROM film WHERE rating = 'PG'")

	_, stderr, err := h.execute(t, NewAskCommand(), "pg films")
	require.NoError(t, err)

	assert.Contains(t, stderr, "keeping the original question")
	require.NotEmpty(t, gen.Prompts())
	assert.Contains(t, gen.Prompts()[0], "pg films")
	assert.NotContains(t, gen.Prompts()[0], "Which films are rated PG?")
}

func TestAskCommand_Instructions(t *testing.T) {
	h := newHarness(t)
	val := h.script(engine.RoleValidator, verdictJSON("top films", "top films", ""))
	h.sql("SELECT title FROM film")

	stdout, _, err := h.execute(t, NewAskCommand(), "-i", "only count titles", "top films")
	require.NoError(t, err)

	assert.Contains(t, val.Prompts()[0], "only count titles")
	assert.Contains(t, stdout, "No changes needed.")
}

func TestAskCommand_NoValidate(t *testing.T) {
	h := newHarness(t)
	val := h.script(engine.RoleValidator, verdictJSON("x", "y", "z"))
	h.sql("SELECT COUNT(*) AS n FROM film")

	stdout, _, err := h.execute(t, NewAskCommand(), "--no-validate", "how many films")
	require.NoError(t, err)
	assert.Equal(t, 0, val.Calls())
	assert.Contains(t, stdout, "3")
}

func TestAskCommand_MalformedVerdict(t *testing.T) {
	h := newHarness(t)
	h.script(engine.RoleValidator, "I think the question is fine.")
	gen := h.sql("SELECT 1")

	_, _, err := h.execute(t, NewAskCommand(), "--yes", "q")
	require.Error(t, err)

	var malformed *core.MalformedVerdictError
	assert.ErrorAs(t, err, &malformed)
	assert.Equal(t, 0, gen.Calls(), "nothing runs after a malformed verdict")
}

func TestValidateCommand_JSON(t *testing.T) {
	h := newHarness(t)
	h.cfg.OutputFormat = "json"
	h.script(engine.RoleValidator, verdictJSON("films with most actrs", "Which films have the most actors?", "Fixed typo."))

	stdout, _, err := h.execute(t, NewValidateCommand(), "films with most actrs")
	require.NoError(t, err)

	var v core.Verdict
	require.NoError(t, json.Unmarshal([]byte(stdout), &v))
	assert.Equal(t, "films with most actrs", v.OriginalQuery)
	assert.Equal(t, "Which films have the most actors?", v.CorrectedInput)
	assert.Equal(t, "Fixed typo.", v.Feedback)
}

func TestBatchCommand(t *testing.T) {
	h := newHarness(t)
	h.cfg.OutputFormat = "json"
	h.sql("SELECT COUNT(*) AS n FROM film")

	file := filepath.Join(h.dir, "questions.yaml")
	require.NoError(t, os.WriteFile(file, []byte("questions:\n  - How many films?\n  - Count the films\n"), 0o600))

	stdout, _, err := h.execute(t, NewBatchCommand(), file, "-c", "2")
	require.NoError(t, err)

	var results []BatchResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "How many films?", results[0].Question)
	assert.Equal(t, "Count the films", results[1].Question)
	for _, res := range results {
		assert.Empty(t, res.Error)
		assert.Equal(t, 1, res.Attempts)
		assert.Equal(t, []map[string]string{{"n": "3"}}, res.Rows)
	}
}

func TestBatchCommand_Failures(t *testing.T) {
	h := newHarness(t)
	h.sql("SELECT nope FROM film")

	file := filepath.Join(h.dir, "questions.yaml")
	require.NoError(t, os.WriteFile(file, []byte("questions:\n  - a\n  - b\n"), 0o600))

	stdout, stderr, err := h.execute(t, NewBatchCommand(), file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 questions failed")
	assert.Contains(t, stdout, "failed")
	assert.Contains(t, stderr, "max retries reached")
}

func TestBatchCommand_Validate(t *testing.T) {
	h := newHarness(t)
	h.cfg.OutputFormat = "json"
	h.script(engine.RoleValidator, verdictJSON("films", "How many films are there?", "Made it a question."))
	h.sql("SELECT COUNT(*) AS n FROM film")

	file := filepath.Join(h.dir, "questions.yaml")
	require.NoError(t, os.WriteFile(file, []byte("questions:\n  - films\n"), 0o600))

	stdout, _, err := h.execute(t, NewBatchCommand(), file, "--validate")
	require.NoError(t, err)

	var results []BatchResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "films", results[0].Question)
	assert.Equal(t, "How many films are there?", results[0].Asked)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", truncate("éééééééééééé", 10))
}

func TestSchemaCommand(t *testing.T) {
	t.Run("raw", func(t *testing.T) {
		h := newHarness(t)
		stdout, _, err := h.execute(t, NewSchemaCommand())
		require.NoError(t, err)
		assert.Contains(t, stdout, "Table customer {")
	})

	t.Run("tables json", func(t *testing.T) {
		h := newHarness(t)
		h.cfg.OutputFormat = "json"
		stdout, _, err := h.execute(t, NewSchemaCommand(), "--tables")
		require.NoError(t, err)

		var tables []tableSummary
		require.NoError(t, json.Unmarshal([]byte(stdout), &tables))
		assert.Len(t, tables, 16)
	})

	t.Run("one table", func(t *testing.T) {
		h := newHarness(t)
		stdout, _, err := h.execute(t, NewSchemaCommand(), "customer")
		require.NoError(t, err)
		assert.Contains(t, stdout, "customer_id")
		assert.Contains(t, stdout, "first_name")
	})

	t.Run("unknown table", func(t *testing.T) {
		h := newHarness(t)
		_, _, err := h.execute(t, NewSchemaCommand(), "customers")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `table "customers" is not in the schema`)
	})

	t.Run("refs", func(t *testing.T) {
		h := newHarness(t)
		stdout, _, err := h.execute(t, NewSchemaCommand(), "--refs")
		require.NoError(t, err)
		assert.Contains(t, stdout, "city")
		assert.Contains(t, stdout, "country_id")
	})

	t.Run("custom file", func(t *testing.T) {
		h := newHarness(t)
		h.cfg.SchemaFile = filepath.Join(h.dir, "film.dbml")
		require.NoError(t, os.WriteFile(h.cfg.SchemaFile, []byte(filmDBML), 0o600))

		stdout, _, err := h.execute(t, NewSchemaCommand())
		require.NoError(t, err)
		assert.Contains(t, stdout, "Table film {")
		assert.NotContains(t, stdout, "Table customer {")
	})
}

func TestExamplesCommand(t *testing.T) {
	h := newHarness(t)
	stdout, _, err := h.execute(t, NewExamplesCommand())
	require.NoError(t, err)
	assert.Contains(t, stdout, " 1. "+schema.DefaultQuestions()[0])

	h.cfg.OutputFormat = "json"
	stdout, _, err = h.execute(t, NewExamplesCommand())
	require.NoError(t, err)
	var got []string
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, schema.DefaultQuestions(), got)
}

func doctorChecks(t *testing.T, stdout string) (*DoctorOutput, map[string]HealthCheck) {
	t.Helper()
	var out DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	byName := make(map[string]HealthCheck, len(out.HealthChecks))
	for _, hc := range out.HealthChecks {
		byName[hc.Name] = hc
	}
	return &out, byName
}

func TestDoctorCommand(t *testing.T) {
	h := newHarness(t)
	h.cfg.OutputFormat = "json"
	h.cfg.SchemaFile = filepath.Join(h.dir, "film.dbml")
	require.NoError(t, os.WriteFile(h.cfg.SchemaFile, []byte(filmDBML), 0o600))

	stdout, _, err := h.execute(t, NewDoctorCommand())
	require.NoError(t, err)

	out, checks := doctorChecks(t, stdout)
	assert.Equal(t, "sqlite", out.Target)
	assert.Zero(t, out.Failed)
	assert.Equal(t, StatusOK, checks["schema"].Status)
	assert.Equal(t, StatusOK, checks["model.generator"].Status)
	assert.Equal(t, StatusOK, checks["connect"].Status)
	assert.Equal(t, StatusOK, checks["identity"].Status)
	assert.Equal(t, "1 tables visible", checks["tables"].Detail)
	assert.Equal(t, StatusOK, checks["schema_tables"].Status)
	assert.Equal(t, StatusWarn, checks["read_only"].Status)
}

func TestDoctorCommand_MissingTables(t *testing.T) {
	h := newHarness(t)
	h.cfg.OutputFormat = "json"

	stdout, _, err := h.execute(t, NewDoctorCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checks failed")

	_, checks := doctorChecks(t, stdout)
	assert.Equal(t, StatusFail, checks["schema_tables"].Status)
	assert.Contains(t, checks["schema_tables"].Detail, "customer")
}

func TestDoctorCommand_UnknownProvider(t *testing.T) {
	h := newHarness(t)
	h.cfg.OutputFormat = "json"
	h.cfg.Models.Validator = core.ModelConfig{Provider: "nope", Model: "m"}

	stdout, _, err := h.execute(t, NewDoctorCommand())
	require.Error(t, err)

	_, checks := doctorChecks(t, stdout)
	assert.Equal(t, StatusFail, checks["model.validator"].Status)
	assert.Contains(t, checks["model.validator"].Detail, `unknown provider "nope"`)
}

// fakeReader replays lines and then reports EOF.
type fakeReader struct {
	lines   []string
	prompts []string
}

func (f *fakeReader) Readline() (string, error) {
	if len(f.lines) == 0 {
		return "", io.EOF
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	if line == "^C" {
		return "", readline.ErrInterrupt
	}
	return line, nil
}

func (f *fakeReader) SetPrompt(p string) {
	f.prompts = append(f.prompts, p)
}

type fakeReviser struct {
	questions   []string
	suggestions []string
	err         error
}

// Revalidate echoes the steered question back as the original, as models often do.
func (f *fakeReviser) Revalidate(_ context.Context, question, suggestion string) (*core.Verdict, error) {
	f.questions = append(f.questions, question)
	f.suggestions = append(f.suggestions, suggestion)
	if f.err != nil {
		return nil, f.err
	}
	steered := "User Instructions: " + suggestion + "\n\n" + question
	return &core.Verdict{OriginalQuery: steered, CorrectedInput: "revised: " + suggestion, Feedback: "applied"}, nil
}

func TestReview(t *testing.T) {
	changed := &core.Verdict{OriginalQuery: "pg films", CorrectedInput: "Which films are rated PG?", Feedback: "Rephrased."}
	unchanged := &core.Verdict{OriginalQuery: "pg films", CorrectedInput: "pg films"}

	tests := []struct {
		name    string
		verdict *core.Verdict
		lines   []string
		want    string
		warn    string
	}{
		{name: "enter accepts", verdict: changed, lines: []string{""}, want: "Which films are rated PG?"},
		{name: "accept", verdict: changed, lines: []string{"a"}, want: "Which films are rated PG?"},
		{name: "keep", verdict: changed, lines: []string{"k"}, want: "pg films"},
		{name: "run unchanged", verdict: unchanged, lines: []string{"r"}, want: "pg films"},
		{name: "quit", verdict: changed, lines: []string{"q"}, want: ""},
		{name: "eof", verdict: changed, lines: nil, want: ""},
		{name: "interrupt", verdict: changed, lines: []string{"^C"}, want: ""},
		{name: "unknown then keep", verdict: changed, lines: []string{"x", "keep"}, want: "pg films", warn: `unknown choice "x"`},
		{name: "suggest then accept", verdict: changed, lines: []string{"s", "only PG-13", "a"}, want: "revised: only PG-13"},
		{name: "empty suggestion", verdict: changed, lines: []string{"s", "", "a"}, want: "Which films are rated PG?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := testutil.NewTestRenderer(output.ModeTable)
			cmdCtx := &CommandContext{Renderer: tr.Renderer, Logger: slog.New(slog.DiscardHandler)}
			in := &fakeReader{lines: tt.lines}

			got, err := review(context.Background(), &fakeReviser{}, cmdCtx, in, "pg films", tt.verdict)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.warn != "" {
				assert.Contains(t, tr.ErrorOutput(), tt.warn)
			}
		})
	}
}

func TestReview_ChainedSuggestions(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeTable)
	cmdCtx := &CommandContext{Renderer: tr.Renderer, Logger: slog.New(slog.DiscardHandler)}
	changed := &core.Verdict{OriginalQuery: "top customers", CorrectedInput: "Who rented the most?", Feedback: "f"}
	rev := &fakeReviser{}
	in := &fakeReader{lines: []string{"s", "by rentals", "s", "only 2022", "k"}}

	got, err := review(context.Background(), rev, cmdCtx, in, "top customers", changed)
	require.NoError(t, err)
	assert.Equal(t, "top customers", got, "keep runs the question as typed")
	assert.Equal(t, []string{"top customers", "top customers"}, rev.questions)
	assert.Equal(t, []string{"by rentals", "only 2022"}, rev.suggestions)
}

func TestReview_Prompts(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeTable)
	cmdCtx := &CommandContext{Renderer: tr.Renderer, Logger: slog.New(slog.DiscardHandler)}

	in := &fakeReader{lines: []string{"q"}}
	_, err := review(context.Background(), &fakeReviser{}, cmdCtx, in, "q", &core.Verdict{OriginalQuery: "a", CorrectedInput: "b"})
	require.NoError(t, err)
	assert.Contains(t, in.prompts[0], "[a]ccept improved")

	in = &fakeReader{lines: []string{"q"}}
	_, err = review(context.Background(), &fakeReviser{}, cmdCtx, in, "q", &core.Verdict{OriginalQuery: "a", CorrectedInput: "A"})
	require.NoError(t, err)
	assert.Contains(t, in.prompts[0], "[r]un")
}

func TestReview_RevalidateErrors(t *testing.T) {
	changed := &core.Verdict{OriginalQuery: "q", CorrectedInput: "better q", Feedback: "f"}

	t.Run("malformed verdict continues", func(t *testing.T) {
		tr := testutil.NewTestRenderer(output.ModeTable)
		cmdCtx := &CommandContext{Renderer: tr.Renderer, Logger: slog.New(slog.DiscardHandler)}
		rev := &fakeReviser{err: &core.MalformedVerdictError{Reason: "not JSON"}}

		got, err := review(context.Background(), rev, cmdCtx, &fakeReader{lines: []string{"s", "hint", "a"}}, "q", changed)
		require.NoError(t, err)
		assert.Equal(t, "better q", got)
		assert.Contains(t, tr.ErrorOutput(), "malformed verdict")
	})

	t.Run("other errors stop", func(t *testing.T) {
		tr := testutil.NewTestRenderer(output.ModeTable)
		cmdCtx := &CommandContext{Renderer: tr.Renderer, Logger: slog.New(slog.DiscardHandler)}
		rev := &fakeReviser{err: errors.New("rate limited")}

		_, err := review(context.Background(), rev, cmdCtx, &fakeReader{lines: []string{"s", "hint"}}, "q", changed)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})
}

func TestShell(t *testing.T) {
	h := newHarness(t)
	h.sql("SELECT COUNT(*) AS n FROM film")
	cmdCtx, tr := h.commandContext(t)

	in := &fakeReader{lines: []string{
		".validate off",
		"How many films?",
		".sql",
		".example 99",
		".example x",
		".bogus",
		".schema customer",
		".quit",
		"never read",
	}}
	sh := &shell{cmdCtx: cmdCtx, in: in, validate: true}
	require.NoError(t, sh.loop(context.Background()))

	out := tr.Output()
	assert.Contains(t, out, "validation is off")
	assert.Contains(t, out, "(1 rows)")
	assert.Contains(t, out, "customer_id")
	assert.Equal(t, "SELECT COUNT(*) AS n FROM film", sh.lastSQL)
	assert.Equal(t, []string{"never read"}, in.lines)

	errOut := tr.ErrorOutput()
	assert.Contains(t, errOut, "example 99 out of range")
	assert.Contains(t, errOut, `not a number: "x"`)
	assert.Contains(t, errOut, "Unknown command: .bogus")
}

func TestShell_ValidatesAndContinuesAfterFailure(t *testing.T) {
	h := newHarness(t)
	h.script(engine.RoleValidator, verdictJSON("films", "How many films are there?", "Made it a question."))
	h.sql("SELECT nope FROM film")
	cmdCtx, tr := h.commandContext(t)

	in := &fakeReader{lines: []string{"films", "a", ".sql"}}
	sh := &shell{cmdCtx: cmdCtx, in: in, validate: true}
	require.NoError(t, sh.loop(context.Background()), "EOF ends the session")

	assert.Contains(t, tr.Output(), "How many films are there?")
	assert.Contains(t, tr.Output(), "no query has run yet")
	assert.Contains(t, tr.ErrorOutput(), "no result after 3 attempts")
}

func TestShellCompleter(t *testing.T) {
	pc := newShellCompleter([]string{"film", "film_id"})

	var names []string
	for _, child := range pc.GetChildren() {
		names = append(names, string(child.GetName()))
	}
	assert.Contains(t, names, ".help ")
	assert.Contains(t, names, "film ")
	assert.Contains(t, names, "film_id ")
}
