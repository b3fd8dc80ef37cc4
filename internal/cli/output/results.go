package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/asksql/pkg/core"
)

// NoResults is printed for an empty result set.
const NoResults = "No results found"

// Results writes a result set in the renderer's mode.
func (r *Renderer) Results(rs *core.ResultSet) error {
	if rs == nil {
		rs = &core.ResultSet{}
	}
	switch r.mode {
	case ModeJSON:
		records := rs.Records()
		if records == nil {
			records = []map[string]string{}
		}
		return r.JSON(records)
	case ModeCSV:
		return renderCSV(r.out, rs)
	case ModeMarkdown:
		return renderMarkdown(r.out, rs)
	default:
		return renderTable(r.out, rs)
	}
}

func renderTable(w io.Writer, rs *core.ResultSet) error {
	if rs.Len() == 0 {
		_, _ = fmt.Fprintln(w, NoResults)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(toRow(rs.Columns))
	for _, row := range rs.Rows {
		t.AppendRow(toRow(row))
	}
	t.Render()

	_, _ = fmt.Fprintf(w, "(%d rows)\n", rs.Len())
	return nil
}

func renderCSV(w io.Writer, rs *core.ResultSet) error {
	writeLine := func(cells []string) {
		escaped := make([]string, len(cells))
		for i, c := range cells {
			escaped[i] = escapeCSV(c)
		}
		_, _ = fmt.Fprintln(w, strings.Join(escaped, ","))
	}

	writeLine(rs.Columns)
	for _, row := range rs.Rows {
		writeLine(row)
	}
	return nil
}

func renderMarkdown(w io.Writer, rs *core.ResultSet) error {
	if rs.Len() == 0 {
		_, _ = fmt.Fprintln(w, NoResults)
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(rs.Columns, " | "))
	seps := make([]string, len(rs.Columns))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	return nil
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// SQL writes a statement under a "SQL" heading. Structured modes skip it.
func (r *Renderer) SQL(sql string) {
	if r.mode != ModeTable {
		return
	}
	r.Header("SQL")
	r.Println(r.styles.Code.Render(sql))
	r.Println()
}

// Verdict writes a validator verdict as a bordered panel.
func (r *Renderer) Verdict(v *core.Verdict) error {
	if r.mode == ModeJSON {
		return r.JSON(v)
	}

	var b strings.Builder
	b.WriteString(r.styles.Label.Render("Original") + v.OriginalQuery + "\n")
	if v.Changed() {
		b.WriteString(r.styles.Label.Render("Improved") + v.CorrectedInput + "\n")
	}
	feedback := v.Feedback
	if !v.Changed() && feedback == "" {
		feedback = "No changes needed."
	}
	b.WriteString(r.styles.Label.Render("Feedback") + feedback)

	r.Println(r.styles.Panel.Render(b.String()))
	return nil
}

// Attempts writes the failure log of an exhausted run as a table.
func (r *Renderer) Attempts(log []core.AttemptFailure) {
	if len(log) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(r.errOut)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Stage", "Error"})
	for _, f := range log {
		t.AppendRow(table.Row{f.Attempt, string(f.Stage), truncateOneLine(f.Message, 100)})
	}
	t.Render()
}

func truncateOneLine(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
