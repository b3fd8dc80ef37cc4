package sqlgen

import (
	"fmt"
	"sort"
)

// Dialect describes the target SQL engine to the corrector.
type Dialect struct {
	Name string // adapter dialect name, e.g. "postgres"
	// Title is how the engine is named in prompts.
	Title string
	// CaseInsensitiveOp is the pattern-matching operator used instead of "="
	// for string comparisons.
	CaseInsensitiveOp string
	// TextCast shows how to cast a column to text, with "col" as placeholder.
	TextCast string
}

var dialects = map[string]Dialect{
	"postgres": {Name: "postgres", Title: "PostgreSQL", CaseInsensitiveOp: "ILIKE", TextCast: "col::TEXT"},
	"duckdb":   {Name: "duckdb", Title: "DuckDB", CaseInsensitiveOp: "ILIKE", TextCast: "CAST(col AS VARCHAR)"},
	"sqlite":   {Name: "sqlite", Title: "SQLite", CaseInsensitiveOp: "LIKE", TextCast: "CAST(col AS TEXT)"},
}

// DialectFor returns the dialect registered under an adapter dialect name.
func DialectFor(name string) (Dialect, error) {
	d, ok := dialects[name]
	if !ok {
		names := make([]string, 0, len(dialects))
		for n := range dialects {
			names = append(names, n)
		}
		sort.Strings(names)
		return Dialect{}, fmt.Errorf("no SQL dialect %q (known: %v)", name, names)
	}
	return d, nil
}
