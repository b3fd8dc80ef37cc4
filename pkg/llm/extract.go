package llm

import "regexp"

// fencePattern matches the first fenced block. A SQL language tag may be
// followed by any whitespace, so inline fences such as "```sql SELECT 1```"
// lose their tag; any other tag must end its line. Matching is
// case-insensitive and spans lines.
var fencePattern = regexp.MustCompile("(?is)```(?:(?:sql|postgresql|postgres|pgsql|plpgsql|sqlite3|sqlite|duckdb)\\b|[a-z0-9_+-]*[ \\t]*\\r?\\n)?\\s*(.*?)\\s*```")

// ExtractFenced returns the content of the first fenced block in text, or
// text unchanged when it holds no fence.
func ExtractFenced(text string) string {
	m := fencePattern.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	return m[1]
}

// openFence matches fence markers with an optional language tag.
var openFence = regexp.MustCompile("```[A-Za-z0-9_+-]*")

// StripFences removes every fence marker from text, keeping what they enclose.
func StripFences(text string) string {
	return openFence.ReplaceAllString(text, "")
}
