// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/asksql/internal/cli/output"

	// sqlite driver for seeding test databases.
	_ "modernc.org/sqlite"
)

// ProjectConfig is the asksql.yaml written by SetupTestProject.
const ProjectConfig = `max_retries: 3
call_timeout: 5s
target:
  type: sqlite
  database: pagila.db
providers:
  openai:
    api_key: test-key
`

// SetupTestProject creates a temporary project: an asksql.yaml and a small
// SQLite copy of the Pagila film table. It returns the project directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "asksql.yaml"), []byte(ProjectConfig), 0644); err != nil {
		t.Fatalf("failed to create asksql.yaml: %v", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(tmpDir, "pagila.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	defer func() { _ = db.Close() }()

	stmts := []string{
		`CREATE TABLE film (
			film_id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			rating TEXT,
			rental_rate REAL
		)`,
		`INSERT INTO film VALUES
			(1, 'ACADEMY DINOSAUR', 'PG', 0.99),
			(2, 'ACE GOLDFINGER', 'G', 4.99),
			(3, 'ADAPTATION HOLES', 'NC-17', 2.99)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to seed test database: %v", err)
		}
	}

	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRenderer(out, errOut, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
