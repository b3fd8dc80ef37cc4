package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/asksql/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/asksql/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/asksql/pkg/adapters/sqlite"
)

// TestValidateTarget tests target validation against the adapter registry.
func TestValidateTarget(t *testing.T) {
	tests := []struct {
		name      string
		target    *TargetConfig
		wantErr   bool
		errSubstr string
	}{
		{name: "nil target", target: nil, wantErr: true, errSubstr: "target type is required"},
		{name: "empty type", target: &TargetConfig{Type: ""}, wantErr: true, errSubstr: "target type is required"},
		{name: "valid postgres", target: &TargetConfig{Type: "postgres"}},
		{name: "valid sqlite", target: &TargetConfig{Type: "sqlite"}},
		{name: "valid duckdb uppercase", target: &TargetConfig{Type: "DuckDB"}},
		{name: "unknown type mysql", target: &TargetConfig{Type: "mysql"}, wantErr: true, errSubstr: "unknown adapter type"},
		{name: "unknown type oracle", target: &TargetConfig{Type: "oracle"}, wantErr: true, errSubstr: "unknown adapter type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTarget(tt.target)
			if tt.wantErr {
				require.Error(t, err, "expected error but got nil")
				assert.Contains(t, err.Error(), tt.errSubstr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTarget_ErrorContainsAvailable(t *testing.T) {
	err := ValidateTarget(&TargetConfig{Type: "invalid_db"})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "sqlite", "error should list available adapters")
	assert.Contains(t, err.Error(), "asksql.yaml", "error should mention config file")
}

func TestDefaultSchemaForType(t *testing.T) {
	tests := []struct {
		dbType   string
		expected string
	}{
		{"duckdb", "main"},
		{"sqlite", "main"},
		{"postgres", "public"},
		{"POSTGRES", "public"},
		{"unknown", "main"},
		{"", "main"},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			assert.Equal(t, tt.expected, DefaultSchemaForType(tt.dbType))
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")
	t.Setenv("TEST_VAR_TWO", "value_two")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single variable", input: "${TEST_VAR_ONE}", expected: "value_one"},
		{name: "multiple variables", input: "${TEST_VAR_ONE}/${TEST_VAR_TWO}", expected: "value_one/value_two"},
		{name: "variable in path", input: "/path/to/${TEST_VAR_ONE}/file", expected: "/path/to/value_one/file"},
		{name: "unset variable kept", input: "${TEST_VAR_UNSET_XYZ}", expected: "${TEST_VAR_UNSET_XYZ}"},
		{name: "no variables", input: "plain", expected: "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestMergeTargetConfig(t *testing.T) {
	t.Run("nil base returns override", func(t *testing.T) {
		override := &TargetConfig{Type: "sqlite", Database: "test.db"}
		assert.Equal(t, override, MergeTargetConfig(nil, override))
	})

	t.Run("nil override returns base", func(t *testing.T) {
		base := &TargetConfig{Type: "sqlite", Database: "test.db"}
		assert.Equal(t, base, MergeTargetConfig(base, nil))
	})

	t.Run("override replaces base fields", func(t *testing.T) {
		base := &TargetConfig{Type: "postgres", Database: "pagila", Host: "localhost", Port: 5432}
		override := &TargetConfig{Database: "pagila_prod", Port: 6432}

		result := MergeTargetConfig(base, override)

		assert.Equal(t, "postgres", result.Type, "Type should be inherited from base")
		assert.Equal(t, "pagila_prod", result.Database)
		assert.Equal(t, 6432, result.Port)
		assert.Equal(t, "localhost", result.Host, "Host should be inherited from base")
		assert.Equal(t, "pagila", base.Database, "base must not change")
	})

	t.Run("options are merged", func(t *testing.T) {
		base := &TargetConfig{Options: map[string]string{"key1": "base_value1", "key2": "base_value2"}}
		override := &TargetConfig{Options: map[string]string{"key2": "override_value2", "key3": "override_value3"}}

		result := MergeTargetConfig(base, override)

		assert.Equal(t, "base_value1", result.Options["key1"])
		assert.Equal(t, "override_value2", result.Options["key2"])
		assert.Equal(t, "override_value3", result.Options["key3"])
		assert.Len(t, base.Options, 2, "base options must not change")
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Empty(t, GetConfigFileUsed())
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultCallTimeout, cfg.CallTimeout)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "table", cfg.OutputFormat)
	assert.Equal(t, "postgres", cfg.Target.Type)
	assert.Equal(t, "pagila", cfg.Target.Database)
	assert.Equal(t, "public", cfg.Target.Schema)
	assert.Equal(t, 5432, cfg.Target.Port)
	assert.True(t, cfg.Target.ReadOnly)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)

	for _, m := range []ModelConfig{cfg.Models.Generator, cfg.Models.Corrector, cfg.Models.Validator} {
		assert.Equal(t, DefaultProvider, m.Provider)
		assert.Equal(t, DefaultModel, m.Model)
	}
}

func TestLoadConfig_Fixtures(t *testing.T) {
	testdataDir, err := filepath.Abs("testdata")
	require.NoError(t, err)

	t.Run("sqlite file resolved against config dir", func(t *testing.T) {
		ResetConfig()
		cfg, err := LoadConfig(filepath.Join(testdataDir, "valid_sqlite.yaml"), nil)
		require.NoError(t, err)

		assert.Equal(t, 3, cfg.MaxRetries)
		assert.Equal(t, 15*time.Second, cfg.CallTimeout)
		assert.Equal(t, "sqlite", cfg.Target.Type)
		assert.Equal(t, filepath.Join(testdataDir, "pagila.db"), cfg.Target.Database)
		assert.Equal(t, "main", cfg.Target.Schema)
		assert.Equal(t, testdataDir, cfg.ProjectRoot)
	})

	t.Run("models and providers", func(t *testing.T) {
		ResetConfig()
		cfg, err := LoadConfig(filepath.Join(testdataDir, "models.yaml"), nil)
		require.NoError(t, err)

		assert.Equal(t, "anthropic", cfg.Models.Generator.Provider)
		assert.Equal(t, "claude-sonnet-4-5", cfg.Models.Generator.Model)
		assert.Equal(t, 1024, cfg.Models.Generator.MaxTokens)
		assert.Equal(t, "gpt-4o", cfg.Models.Corrector.Model)
		assert.InDelta(t, 0.2, cfg.Models.Corrector.Temperature, 0.0001)
		assert.Equal(t, DefaultModel, cfg.Models.Validator.Model, "unset role keeps default")
		assert.Equal(t, "test-key", cfg.Provider("anthropic").APIKey)
		assert.Empty(t, cfg.Provider("openai").APIKey)
		assert.Equal(t, filepath.Join(testdataDir, "assets", "pagila.dbml"), cfg.SchemaFile)
	})

	t.Run("default environment", func(t *testing.T) {
		ResetConfig()
		cfg, err := LoadConfig(filepath.Join(testdataDir, "valid_with_envs.yaml"), nil)
		require.NoError(t, err)
		assert.Equal(t, "pagila_dev", cfg.Target.Database)
		assert.Equal(t, "localhost", cfg.Target.Host)
	})

	t.Run("environment override to prod", func(t *testing.T) {
		ResetConfig()
		cfg, err := LoadConfigWithEnv(filepath.Join(testdataDir, "valid_with_envs.yaml"), "prod", nil)
		require.NoError(t, err)
		assert.Equal(t, "pagila_prod", cfg.Target.Database)
		assert.Equal(t, "db.internal", cfg.Target.Host)
		assert.Equal(t, "require", cfg.Target.Options["sslmode"])
	})

	t.Run("nonexistent environment falls back to base target", func(t *testing.T) {
		ResetConfig()
		cfg, err := LoadConfigWithEnv(filepath.Join(testdataDir, "valid_with_envs.yaml"), "nonexistent", nil)
		require.NoError(t, err)
		assert.Equal(t, "pagila", cfg.Target.Database)
	})

	t.Run("invalid unknown type", func(t *testing.T) {
		ResetConfig()
		_, err := LoadConfig(filepath.Join(testdataDir, "invalid_unknown_type.yaml"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid target configuration")
		assert.Contains(t, err.Error(), "mysql")
	})

	t.Run("invalid unknown provider", func(t *testing.T) {
		ResetConfig()
		_, err := LoadConfig(filepath.Join(testdataDir, "invalid_unknown_provider.yaml"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "models.validator")
		assert.Contains(t, err.Error(), "gemini")
	})

	t.Run("env vars expanded", func(t *testing.T) {
		ResetConfig()
		t.Setenv("TEST_DB_HOST", "db.example.com")
		t.Setenv("TEST_DB_USER", "testuser")
		t.Setenv("TEST_DB_PASSWORD", "secret123")
		t.Setenv("TEST_OPENAI_KEY", "sk-test")

		cfg, err := LoadConfig(filepath.Join(testdataDir, "valid_env_vars.yaml"), nil)
		require.NoError(t, err)
		assert.Equal(t, "db.example.com", cfg.Target.Host)
		assert.Equal(t, "testuser", cfg.Target.User)
		assert.Equal(t, "secret123", cfg.Target.Password)
		assert.Equal(t, "sk-test", cfg.Provider("openai").APIKey)
	})

	t.Run("missing file", func(t *testing.T) {
		ResetConfig()
		_, err := LoadConfig(filepath.Join(testdataDir, "nope.yaml"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})
}

func TestLoadConfig_FindsFileUpward(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "asksql.yaml"), "max_retries: 2\n")
	nested := filepath.Join(root, "a", "b")
	mkdirAll(t, nested)
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, "asksql.yaml", filepath.Base(GetConfigFileUsed()))
}

func TestLoadConfig_FlagPathsRelativeToWorkingDir(t *testing.T) {
	ResetConfig()

	projectDir := t.TempDir()
	cfgPath := filepath.Join(projectDir, "asksql.yaml")
	writeFile(t, cfgPath, "examples_file: questions.yaml\n")

	t.Chdir(t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("schema", "", "schema file")
	flags.String("examples", "", "examples file")
	require.NoError(t, flags.Set("schema", "local.dbml"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(wd, "local.dbml"), cfg.SchemaFile, "flag path resolves against the working directory")
	assert.Equal(t, filepath.Join(projectDir, "questions.yaml"), cfg.ExamplesFile, "file path resolves against the config directory")
}

// TestLoadConfig_FlagPrecedence tests that flags override env vars and config file.
func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()

	cfgPath := filepath.Join(t.TempDir(), "asksql.yaml")
	writeFile(t, cfgPath, "max_retries: 2\noutput: json\nschema_file: from_file.dbml\n")

	t.Setenv("ASKSQL_MAX_RETRIES", "3")
	t.Setenv("ASKSQL_OUTPUT", "csv")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-retries", 5, "attempt budget")
	flags.String("output", "", "output format")
	flags.String("schema", "", "schema file")
	require.NoError(t, flags.Set("max-retries", "4"))
	require.NoError(t, flags.Set("schema", "/abs/from_flag.dbml"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.MaxRetries, "flag should override env and file")
	assert.Equal(t, "csv", cfg.OutputFormat, "env should override file when flag not set")
	assert.Equal(t, "/abs/from_flag.dbml", cfg.SchemaFile, "--schema maps to schema_file")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		m := ModelConfig{Provider: "openai", Model: "gpt-4o-mini"}
		return &Config{MaxRetries: 5, LogFormat: "text", Models: core.ModelsConfig{Generator: m, Corrector: m, Validator: m}}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("zero retries", func(t *testing.T) {
		cfg := valid()
		cfg.MaxRetries = 0
		assert.ErrorContains(t, cfg.Validate(), "max_retries")
	})

	t.Run("bad log format", func(t *testing.T) {
		cfg := valid()
		cfg.LogFormat = "xml"
		assert.ErrorContains(t, cfg.Validate(), "log_format")
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := valid()
		cfg.Models.Corrector.Model = ""
		assert.ErrorContains(t, cfg.Validate(), "models.corrector.model is required")
	})
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "fallback logger")

	logger := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}

func TestGetConfig(t *testing.T) {
	assert.Nil(t, GetConfig(context.Background()))

	cfg := &Config{MaxRetries: 3}
	ctx := context.WithValue(context.Background(), ConfigKey(), cfg)
	assert.Same(t, cfg, GetConfig(ctx))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func mkdirAll(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o750))
}
