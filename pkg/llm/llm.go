// Package llm provides the text-to-text services behind the generator,
// corrector and validator.
//
// Every provider is reached through the Completer interface: one rendered
// prompt in, free text out. Providers register themselves by name, in the
// same way database adapters do.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/asksql/pkg/core"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Completer sends a single prompt to a model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Factory builds a Completer for one model of a provider.
type Factory func(provider core.ProviderConfig, model core.ModelConfig, logger *slog.Logger) (Completer, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a provider factory to the registry.
// Called by provider implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates a Completer for the model's provider.
// The logger parameter is passed to the provider (nil uses discard logger).
func New(provider core.ProviderConfig, model core.ModelConfig, logger *slog.Logger) (Completer, error) {
	if model.Provider == "" {
		return nil, fmt.Errorf("model provider not specified")
	}
	if model.Model == "" {
		return nil, fmt.Errorf("model name not specified for provider %s", model.Provider)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	registryMu.RLock()
	factory, ok := registry[model.Provider]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownProviderError{
			Provider:  model.Provider,
			Available: ListProviders(),
		}
	}
	return factory(provider, model, logger)
}

// ListProviders returns all registered provider names (sorted).
func ListProviders() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a provider is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownProviderError is returned when an unknown provider is requested.
type UnknownProviderError struct {
	Provider  string
	Available []string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown model provider %q\nAvailable providers: %v\nHint: Check models.<role>.provider in asksql.yaml", e.Provider, e.Available)
}
