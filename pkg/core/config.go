package core

// TargetConfig holds database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // postgres, sqlite, duckdb

	// File-based databases (DuckDB, SQLite)
	Database string `koanf:"database"` // file path or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Common
	Schema   string `koanf:"schema"`
	ReadOnly bool   `koanf:"read_only"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// AdapterConfig converts the target into the connection settings used by adapters.
func (t *TargetConfig) AdapterConfig() AdapterConfig {
	return AdapterConfig{
		Type:     t.Type,
		Path:     t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		ReadOnly: t.ReadOnly,
		Options:  t.Options,
	}
}

// ModelConfig selects the provider and model behind one model-backed role.
type ModelConfig struct {
	Provider    string  `koanf:"provider"`
	Model       string  `koanf:"model"`
	Temperature float32 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
}

// ModelsConfig holds the model selection for the three model-backed roles.
// The roles may share the same underlying model.
type ModelsConfig struct {
	Generator ModelConfig `koanf:"generator"`
	Corrector ModelConfig `koanf:"corrector"`
	Validator ModelConfig `koanf:"validator"`
}

// ProviderConfig holds the endpoint and credentials for a model provider.
type ProviderConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}
