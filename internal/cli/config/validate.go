package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/asksql/pkg/adapter"
	"github.com/leapstack-labs/asksql/pkg/llm"
)

// DefaultSchemaForType returns the default schema for a database type.
func DefaultSchemaForType(dbType string) string {
	switch strings.ToLower(dbType) {
	case "postgres":
		return "public"
	default:
		return "main"
	}
}

// ApplyTargetDefaults fills in type-specific defaults.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Type = strings.ToLower(t.Type)
	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}
	if t.Type == "postgres" && t.Port == 0 {
		t.Port = 5432
	}
}

// ValidateTarget checks the target names a registered adapter.
func ValidateTarget(t *TargetConfig) error {
	if t == nil || t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("call_timeout must not be negative")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}

	roles := []struct {
		name  string
		model ModelConfig
	}{
		{"generator", c.Models.Generator},
		{"corrector", c.Models.Corrector},
		{"validator", c.Models.Validator},
	}
	for _, r := range roles {
		if r.model.Model == "" {
			return fmt.Errorf("models.%s.model is required", r.name)
		}
		if !llm.IsRegistered(r.model.Provider) {
			return fmt.Errorf("models.%s: %w", r.name,
				&llm.UnknownProviderError{Provider: r.model.Provider, Available: llm.ListProviders()})
		}
	}
	return nil
}
