package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultExample returns the embedded worked example shown to the generator.
func DefaultExample() string {
	content, err := assets.ReadFile("assets/worked_example.md")
	if err != nil {
		panic(fmt.Sprintf("embedded worked example missing: %v", err))
	}
	return string(content)
}

// LoadExample reads a worked example from a file.
func LoadExample(path string) (string, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return "", fmt.Errorf("failed to read worked example: %w", err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return "", fmt.Errorf("worked example %s is empty", path)
	}
	return string(content), nil
}

type questionFile struct {
	Questions []string `yaml:"questions"`
}

// ParseQuestions decodes a YAML document with a top-level "questions" list.
func ParseQuestions(data []byte) ([]string, error) {
	var qf questionFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("failed to parse questions: %w", err)
	}
	out := make([]string, 0, len(qf.Questions))
	for _, q := range qf.Questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no questions found")
	}
	return out, nil
}

// LoadQuestions reads example questions from a YAML file.
func LoadQuestions(path string) ([]string, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read questions file: %w", err)
	}
	return ParseQuestions(content)
}

// DefaultQuestions returns the embedded example questions.
func DefaultQuestions() []string {
	content, err := assets.ReadFile("assets/questions.yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded questions missing: %v", err))
	}
	qs, err := ParseQuestions(content)
	if err != nil {
		panic(fmt.Sprintf("embedded questions invalid: %v", err))
	}
	return qs
}
