// Package config provides configuration management for the asksql CLI.
//
// The shared types (TargetConfig, ModelConfig, ProviderConfig) are defined
// in pkg/core and re-exported here via type aliases for convenience.
package config

import (
	"time"

	"github.com/leapstack-labs/asksql/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// ModelConfig is an alias for the shared model selection.
type ModelConfig = core.ModelConfig

// ProviderConfig is an alias for the shared provider settings.
type ProviderConfig = core.ProviderConfig

// ServerConfig holds configuration for the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// SessionSecret signs review-session cookies. Empty means a random
	// per-process key.
	SessionSecret string `koanf:"session_secret"`
}

// Config holds all CLI configuration options.
type Config struct {
	SchemaFile   string                    `koanf:"schema_file"`
	ExampleFile  string                    `koanf:"example_file"`
	ExamplesFile string                    `koanf:"examples_file"`
	MaxRetries   int                       `koanf:"max_retries"`
	CallTimeout  time.Duration             `koanf:"call_timeout"`
	Trace        bool                      `koanf:"trace"`
	Verbose      bool                      `koanf:"verbose"`
	LogFormat    string                    `koanf:"log_format"`
	OutputFormat string                    `koanf:"output"`
	Environment  string                    `koanf:"environment"`
	Models       core.ModelsConfig         `koanf:"models"`
	Providers    map[string]ProviderConfig `koanf:"providers"`
	Target       *TargetConfig             `koanf:"target"`
	Server       ServerConfig              `koanf:"server"`
	Environments map[string]EnvConfig      `koanf:"environments"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	Target *TargetConfig `koanf:"target"`
}

// Default configuration values.
const (
	DefaultMaxRetries      = 5
	DefaultCallTimeout     = 60 * time.Second
	DefaultLogFormat       = "text"
	DefaultOutput          = "table"
	DefaultProvider        = "openai"
	DefaultModel           = "gpt-4o-mini"
	DefaultServerAddr      = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
)

// Provider returns the settings for a provider, or zero settings.
func (c *Config) Provider(name string) ProviderConfig {
	return c.Providers[name]
}
