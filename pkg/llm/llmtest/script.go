// Package llmtest provides deterministic completers for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"
)

// Reply is one scripted answer: a text or an error.
type Reply struct {
	Text string
	Err  error
}

// Script replays scripted replies in order and records every prompt.
// Once the script is exhausted the last reply is repeated.
type Script struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
}

// NewScript creates a script that answers with the given texts.
func NewScript(texts ...string) *Script {
	s := &Script{}
	for _, t := range texts {
		s.replies = append(s.replies, Reply{Text: t})
	}
	return s
}

// Then appends a reply and returns s for chaining.
func (s *Script) Then(r Reply) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, r)
	return s
}

// Complete records prompt and returns the next scripted reply.
func (s *Script) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.replies) == 0 {
		return "", fmt.Errorf("llmtest: no scripted replies")
	}
	i := len(s.prompts)
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	s.prompts = append(s.prompts, prompt)
	r := s.replies[i]
	return r.Text, r.Err
}

// Prompts returns the prompts received so far.
func (s *Script) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// Calls returns how many prompts were received.
func (s *Script) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}
