// Package schema holds the schema registry that grounds every model prompt.
//
// A Schema is loaded once at startup and never mutated afterwards, so it can
// be shared by the generator, corrector and validator without locking.
package schema

import (
	"bufio"
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"
)

//go:embed assets
var assets embed.FS

// Column is a column declared in the schema description.
type Column struct {
	Name       string
	Type       string
	PrimaryKey bool
}

// Table is a table declared in the schema description.
type Table struct {
	Name    string
	Columns []Column
}

// Ref is a foreign-key relationship: From references To.
type Ref struct {
	FromTable, FromColumn string
	ToTable, ToColumn     string
}

func (r Ref) String() string {
	return fmt.Sprintf("%s.%s > %s.%s", r.FromTable, r.FromColumn, r.ToTable, r.ToColumn)
}

// Schema is an immutable textual schema description together with the
// tables and relationships parsed from it.
type Schema struct {
	text   string
	tables []Table
	index  map[string]int
	refs   []Ref
}

// Parse builds a Schema from a DBML-style description.
// Text that is not recognised as a table or a reference is kept verbatim in
// the description but otherwise ignored.
func Parse(text string) (*Schema, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("schema description is empty")
	}

	s := &Schema{text: text, index: make(map[string]int)}

	var current *Table
	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case current == nil && strings.HasPrefix(line, "Table "):
			name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "Table "), "{"))
			if name == "" {
				return nil, fmt.Errorf("line %d: table without a name", lineNo)
			}
			current = &Table{Name: name}

		case current != nil && line == "}":
			if _, dup := s.index[current.Name]; dup {
				return nil, fmt.Errorf("line %d: duplicate table %q", lineNo, current.Name)
			}
			s.index[current.Name] = len(s.tables)
			s.tables = append(s.tables, *current)
			current = nil

		case current != nil:
			current.Columns = append(current.Columns, parseColumn(line))

		case strings.HasPrefix(line, "Ref:"):
			ref, err := parseRef(strings.TrimSpace(strings.TrimPrefix(line, "Ref:")))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			s.refs = append(s.refs, ref)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan schema: %w", err)
	}
	if current != nil {
		return nil, fmt.Errorf("table %q is not closed", current.Name)
	}
	if len(s.tables) == 0 {
		return nil, fmt.Errorf("schema declares no tables")
	}

	return s, nil
}

// Load reads a schema description from a file.
func Load(path string) (*Schema, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	s, err := Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("invalid schema file %s: %w", path, err)
	}
	return s, nil
}

// Default returns the embedded Pagila schema.
func Default() *Schema {
	content, err := assets.ReadFile("assets/pagila.dbml")
	if err != nil {
		panic(fmt.Sprintf("embedded schema missing: %v", err))
	}
	s, err := Parse(string(content))
	if err != nil {
		panic(fmt.Sprintf("embedded schema invalid: %v", err))
	}
	return s
}

// Text returns the schema description exactly as supplied.
func (s *Schema) Text() string {
	return s.text
}

// Tables returns the declared tables in declaration order.
func (s *Schema) Tables() []Table {
	out := make([]Table, len(s.tables))
	copy(out, s.tables)
	return out
}

// Table looks up a table by name.
func (s *Schema) Table(name string) (Table, bool) {
	i, ok := s.index[name]
	if !ok {
		return Table{}, false
	}
	return s.tables[i], true
}

// Refs returns the declared relationships.
func (s *Schema) Refs() []Ref {
	out := make([]Ref, len(s.refs))
	copy(out, s.refs)
	return out
}

// Vocabulary returns the sorted set of table and column names.
func (s *Schema) Vocabulary() []string {
	seen := make(map[string]struct{})
	for _, t := range s.tables {
		seen[t.Name] = struct{}{}
		for _, c := range t.Columns {
			seen[c.Name] = struct{}{}
		}
	}
	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// stripComment removes "--", "#" and "//" comments and surrounding space.
func stripComment(line string) string {
	for _, marker := range []string{"--", "//", "#"} {
		if i := strings.Index(line, marker); i >= 0 {
			line = line[:i]
		}
	}
	return strings.TrimSpace(line)
}

func parseColumn(line string) Column {
	pk := false
	if i := strings.Index(line, " ["); i >= 0 {
		settings := line[i:]
		line = strings.TrimSpace(line[:i])
		pk = strings.Contains(settings, "pk")
	}
	name, typ, _ := strings.Cut(line, " ")
	return Column{Name: name, Type: strings.TrimSpace(typ), PrimaryKey: pk}
}

func parseRef(expr string) (Ref, error) {
	from, to, ok := strings.Cut(expr, ">")
	if !ok {
		return Ref{}, fmt.Errorf("reference %q must use '>'", expr)
	}
	fromTable, fromCol, ok1 := strings.Cut(strings.TrimSpace(from), ".")
	toTable, toCol, ok2 := strings.Cut(strings.TrimSpace(to), ".")
	if !ok1 || !ok2 {
		return Ref{}, fmt.Errorf("reference %q must use table.column on both sides", expr)
	}
	return Ref{FromTable: fromTable, FromColumn: fromCol, ToTable: toTable, ToColumn: toCol}, nil
}
