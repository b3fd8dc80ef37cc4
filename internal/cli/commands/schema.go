package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/asksql/internal/cli/output"
	"github.com/leapstack-labs/asksql/pkg/schema"
	"github.com/spf13/cobra"
)

// SchemaOptions holds options for the schema command.
type SchemaOptions struct {
	Tables bool
	Refs   bool
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	opts := &SchemaOptions{}

	cmd := &cobra.Command{
		Use:   "schema [table]",
		Short: "Show the schema the models are grounded on",
		Long: `Print the schema description sent to every model prompt.

With no flags the description is printed verbatim. --tables lists tables with
their column counts, --refs lists foreign-key relationships and a table name
shows that table's columns.`,
		Example: `  asksql schema
  asksql schema --tables
  asksql schema rental
  asksql schema --refs -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContextWithoutEngine(cmd)
			if err != nil {
				return err
			}
			s, err := loadSchema(cmdCtx.Cfg.SchemaFile)
			if err != nil {
				return err
			}

			switch {
			case len(args) == 1:
				return showTable(cmdCtx.Renderer, s, args[0])
			case opts.Refs:
				return showRefs(cmdCtx.Renderer, s)
			case opts.Tables || cmdCtx.Renderer.Mode() == output.ModeJSON:
				return showTables(cmdCtx.Renderer, s)
			}
			cmdCtx.Renderer.Println(strings.TrimRight(s.Text(), "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Tables, "tables", false, "List tables")
	cmd.Flags().BoolVar(&opts.Refs, "refs", false, "List foreign-key relationships")

	return cmd
}

type tableSummary struct {
	Name    string         `json:"name"`
	Columns []columnDetail `json:"columns"`
}

type columnDetail struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
}

func summarize(t schema.Table) tableSummary {
	cols := make([]columnDetail, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = columnDetail{Name: c.Name, Type: c.Type, PrimaryKey: c.PrimaryKey}
	}
	return tableSummary{Name: t.Name, Columns: cols}
}

func showTables(r *output.Renderer, s *schema.Schema) error {
	tables := s.Tables()
	if r.Mode() == output.ModeJSON {
		out := make([]tableSummary, len(tables))
		for i, t := range tables {
			out[i] = summarize(t)
		}
		return r.JSON(out)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Columns", "Primary Key"})
	for _, tbl := range tables {
		var pk []string
		for _, c := range tbl.Columns {
			if c.PrimaryKey {
				pk = append(pk, c.Name)
			}
		}
		t.AppendRow(table.Row{tbl.Name, len(tbl.Columns), strings.Join(pk, ", ")})
	}
	t.Render()
	r.Muted(fmt.Sprintf("%d tables, %d relationships", len(tables), len(s.Refs())))
	return nil
}

func showTable(r *output.Renderer, s *schema.Schema, name string) error {
	tbl, ok := s.Table(name)
	if !ok {
		return fmt.Errorf("table %q is not in the schema", name)
	}
	if r.Mode() == output.ModeJSON {
		return r.JSON(summarize(tbl))
	}

	r.Header("Table: " + tbl.Name)
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "PK"})
	for _, c := range tbl.Columns {
		pk := ""
		if c.PrimaryKey {
			pk = "yes"
		}
		t.AppendRow(table.Row{c.Name, c.Type, pk})
	}
	t.Render()

	var related []string
	for _, ref := range s.Refs() {
		if ref.FromTable == name || ref.ToTable == name {
			related = append(related, ref.String())
		}
	}
	if len(related) > 0 {
		r.Println()
		r.Println("References:")
		for _, ref := range related {
			r.Printf("  %s\n", ref)
		}
	}
	return nil
}

func showRefs(r *output.Renderer, s *schema.Schema) error {
	refs := s.Refs()
	if r.Mode() == output.ModeJSON {
		out := make([]string, len(refs))
		for i, ref := range refs {
			out[i] = ref.String()
		}
		return r.JSON(out)
	}
	for _, ref := range refs {
		r.Println(ref.String())
	}
	return nil
}
