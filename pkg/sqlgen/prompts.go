package sqlgen

import (
	"strings"
	"text/template"
)

var generatePrompt = template.Must(template.New("generate").Parse(`
Use the database schema below to pick the correct table names and the correct column names for each table.

Database Schema:
{{.Schema}}

**************************
Answer by restating the question and its evidence, then derive the SQL through a query plan,
as in the example.

<---(Example)--->
{{.Example}}

Return only the final SQL query: no explanation, no other text, no ` + "```" + ` fences.
Make sure every table alias is declared and used consistently.

---------------------------------
Question: {{.Question}}

SQL Query:
`))

var correctPrompt = template.Must(template.New("correct").Parse(`
The following SQL query may contain mistakes. Analyze it and correct it so that it runs on **{{.Dialect.Title}}**.

Use the database schema to check every table and column name.
Database Schema:
{{.Schema}}

SQL to correct:
{{.SQL}}

Return only the corrected SQL query, without explanation and without ` + "```" + ` fences.

Rules:
- Compare strings with "{{.Dialect.CaseInsensitiveOp}}" instead of "=" so matching is case-insensitive, unless the question asks for case-sensitive matching.
- Only when using "{{.Dialect.CaseInsensitiveOp}}", cast the compared column to text ({{.Dialect.TextCast}}) to avoid type mismatch errors.
- Never apply that cast with "=" or anywhere else.

Corrected SQL Query:
`))

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
