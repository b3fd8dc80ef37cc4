package adapter

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/leapstack-labs/asksql/pkg/core"
)

// NullText is how NULL cells are rendered.
const NullText = "NULL"

// resultStyle renders psql-like output: header, separator, "|"-delimited rows.
var resultStyle = func() table.Style {
	s := table.StyleDefault
	s.Name = "ResultText"
	s.Format.Header = text.FormatDefault
	s.Options = table.Options{
		DrawBorder:      false,
		SeparateColumns: true,
		SeparateHeader:  true,
	}
	return s
}()

// scanRows drains rows into a ResultSet with every cell rendered as text.
func scanRows(rows *sql.Rows) (*core.ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	set := &core.ResultSet{Columns: cols, Rows: [][]string{}}
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = FormatValue(v)
		}
		set.Rows = append(set.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	set.Text = RenderText(set.Columns, set.Rows)
	return set, nil
}

// FormatValue renders a scanned driver value as text.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return NullText
	case []byte:
		return string(val)
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(time.DateOnly)
		}
		return val.Format(time.DateTime)
	default:
		return fmt.Sprint(val)
	}
}

// RenderText renders columns and rows as a header line, a separator line
// and one "|"-delimited line per row, followed by a row count.
func RenderText(cols []string, rows [][]string) string {
	t := table.NewWriter()
	t.SetStyle(resultStyle)

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, c := range r {
			row[i] = c
		}
		t.AppendRow(row)
	}

	noun := "rows"
	if len(rows) == 1 {
		noun = "row"
	}
	return t.Render() + fmt.Sprintf("\n(%d %s)", len(rows), noun)
}
