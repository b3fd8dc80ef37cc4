package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/asksql/internal/cli/config"
	"github.com/leapstack-labs/asksql/internal/cli/output"
	"github.com/leapstack-labs/asksql/pkg/adapter"
	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/leapstack-labs/asksql/pkg/llm"
	"github.com/leapstack-labs/asksql/pkg/schema"
	"github.com/spf13/cobra"
)

// Check statuses.
const (
	StatusOK   = "ok"
	StatusWarn = "warn"
	StatusFail = "fail"
)

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Target       string        `json:"target"`
	HealthChecks []HealthCheck `json:"health_checks"`
	Failed       int           `json:"failed"`
}

// diagnosticQueries are the per-dialect probes run against the target.
var diagnosticQueries = map[string]struct {
	Identity string
	Tables   string
}{
	"postgres": {
		Identity: "SELECT current_database() AS database, current_schema() AS schema, version() AS version",
		Tables:   "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name",
	},
	"duckdb": {
		Identity: "SELECT current_database() AS database, current_schema() AS schema, version() AS version",
		Tables:   "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name",
	},
	"sqlite": {
		Identity: "SELECT 'main' AS database, 'main' AS schema, sqlite_version() AS version",
		Tables:   "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
	},
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, models and the target database",
		Long: `Run diagnostics before asking questions.

The doctor command checks:
- that the schema description loads
- that every model role has a known provider and credentials
- that the target database accepts connections
- which database and schema the target resolves to
- that every table in the schema description exists in the target`,
		Example: `  asksql doctor
  asksql doctor -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContextWithoutEngine(cmd)
			if err != nil {
				return err
			}

			out := runDoctor(cmd.Context(), cmdCtx)

			r := cmdCtx.Renderer
			if r.Mode() == output.ModeJSON {
				if err := r.JSON(out); err != nil {
					return err
				}
			} else {
				renderDoctor(r, out)
			}

			if out.Failed > 0 {
				return fmt.Errorf("%d checks failed", out.Failed)
			}
			return nil
		},
	}
}

func runDoctor(ctx context.Context, cmdCtx *CommandContext) *DoctorOutput {
	cfg := cmdCtx.Cfg
	out := &DoctorOutput{}
	add := func(name, status, detail string) {
		out.HealthChecks = append(out.HealthChecks, HealthCheck{Name: name, Status: status, Detail: detail})
		if status == StatusFail {
			out.Failed++
		}
	}

	if f := config.GetConfigFileUsed(); f != "" {
		add("config", StatusOK, f)
	} else {
		add("config", StatusWarn, "no asksql.yaml found, using defaults")
	}

	s, err := loadSchema(cfg.SchemaFile)
	if err != nil {
		add("schema", StatusFail, err.Error())
	} else {
		add("schema", StatusOK, fmt.Sprintf("%d tables, %d relationships", len(s.Tables()), len(s.Refs())))
	}

	checkModels(cfg, add)

	var target config.TargetConfig
	if cfg.Target != nil {
		target = *cfg.Target
	}
	out.Target = target.Type
	if !target.ReadOnly {
		add("read_only", StatusWarn, "target is writable; generated SQL runs with full privileges")
	}

	db, err := adapter.Open(ctx, target.AdapterConfig(), cmdCtx.Logger)
	if err != nil {
		add("connect", StatusFail, err.Error())
		return out
	}
	defer func() { _ = db.Close() }()
	add("connect", StatusOK, target.Type)

	probes, ok := diagnosticQueries[db.DialectName()]
	if !ok {
		add("identity", StatusWarn, "no diagnostics for dialect "+db.DialectName())
		return out
	}

	if res, err := db.Execute(ctx, probes.Identity); err != nil || res.Failed() {
		add("identity", StatusFail, failureText(res, err))
	} else if res.Rows.Len() > 0 {
		row := res.Rows.Rows[0]
		add("identity", StatusOK, fmt.Sprintf("database=%s schema=%s version=%s", row[0], row[1], firstLine(row[2])))
	}

	res, err := db.Execute(ctx, probes.Tables)
	if err != nil || res.Failed() {
		add("tables", StatusFail, failureText(res, err))
		return out
	}
	add("tables", StatusOK, fmt.Sprintf("%d tables visible", res.Rows.Len()))

	if s != nil {
		checkSchemaTables(ctx, db, s, add)
	}
	return out
}

func checkModels(cfg *config.Config, add func(name, status, detail string)) {
	roles := []struct {
		name  string
		model core.ModelConfig
	}{
		{"generator", cfg.Models.Generator},
		{"corrector", cfg.Models.Corrector},
		{"validator", cfg.Models.Validator},
	}
	for _, role := range roles {
		name := "model." + role.name
		if !llm.IsRegistered(role.model.Provider) {
			add(name, StatusFail, fmt.Sprintf("unknown provider %q", role.model.Provider))
			continue
		}
		if _, err := llm.New(cfg.Provider(role.model.Provider), role.model, nil); err != nil {
			add(name, StatusFail, err.Error())
			continue
		}
		add(name, StatusOK, role.model.Provider+"/"+role.model.Model)
	}
}

// checkSchemaTables verifies every described table exists in the target
// with the described columns.
func checkSchemaTables(ctx context.Context, db adapter.Adapter, s *schema.Schema, add func(name, status, detail string)) {
	var missing, drifted []string
	for _, t := range s.Tables() {
		meta, err := db.GetTableMetadata(ctx, t.Name)
		if err != nil || meta == nil || len(meta.Columns) == 0 {
			missing = append(missing, t.Name)
			continue
		}
		live := make(map[string]bool, len(meta.Columns))
		for _, c := range meta.Columns {
			live[strings.ToLower(c.Name)] = true
		}
		for _, c := range t.Columns {
			if !live[strings.ToLower(c.Name)] {
				drifted = append(drifted, t.Name+"."+c.Name)
			}
		}
	}

	switch {
	case len(missing) > 0:
		add("schema_tables", StatusFail, "missing: "+strings.Join(missing, ", "))
	case len(drifted) > 0:
		add("schema_tables", StatusWarn, "missing columns: "+strings.Join(drifted, ", "))
	default:
		add("schema_tables", StatusOK, fmt.Sprintf("all %d tables present", len(s.Tables())))
	}
}

func failureText(res *core.ExecResult, err error) string {
	if err != nil {
		return err.Error()
	}
	return res.Err.Error()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func renderDoctor(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, hc := range out.HealthChecks {
		status := hc.Status
		switch hc.Status {
		case StatusOK:
			status = styles.Success.Render(status)
		case StatusWarn:
			status = styles.Warning.Render(status)
		case StatusFail:
			status = styles.Error.Render(status)
		}
		t.AppendRow(table.Row{hc.Name, status, truncate(hc.Detail, 80)})
	}
	t.Render()

	if out.Failed == 0 {
		r.Success("all checks passed")
	}
}
