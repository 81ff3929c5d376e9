package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// clearEnv blanks every variable applyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ROSTERX_PROVIDER", "ROSTERX_MODEL", "ROSTERX_BASE_URL", "GEMINI_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("expected Provider=gemini, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("expected Model=gemini-2.5-flash, got %s", cfg.LLM.Model)
	}
	if cfg.GetLLMTimeout() != 120*time.Second {
		t.Errorf("expected 120s timeout, got %s", cfg.GetLLMTimeout())
	}
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)

	cfg := DefaultConfig()
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = "sk-test"
	cfg.Output.MetricsFile = "metrics.prom"

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "rosterx.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assert.Equal(t, "openai", loaded.LLM.Provider)
	assert.Equal(t, "sk-test", loaded.LLM.APIKey)
	assert.Equal(t, "metrics.prom", loaded.Output.MetricsFile)
	assert.Equal(t, 20000, loaded.Extraction.MaxChars)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "rosterx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: rules\n"), 0644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rules", loaded.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", loaded.LLM.Model)
	assert.Equal(t, "info", loaded.Logging.Level)
}

func TestLoad_MissingFileUsesDefaultsAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "gemini without key", mutate: func(c *Config) {}, wantErr: true},
		{name: "gemini with key", mutate: func(c *Config) { c.LLM.APIKey = "k" }},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "zai"; c.LLM.APIKey = "k" }, wantErr: true},
		{name: "openai local server", mutate: func(c *Config) { c.LLM.Provider = "openai"; c.LLM.BaseURL = "http://localhost:11434/v1" }},
		{name: "openai nothing", mutate: func(c *Config) { c.LLM.Provider = "openai" }, wantErr: true},
		{name: "rules needs nothing", mutate: func(c *Config) { c.LLM.Provider = "rules"; c.LLM.Model = "" }},
		{name: "bad timeout", mutate: func(c *Config) { c.LLM.APIKey = "k"; c.LLM.Timeout = "soon" }, wantErr: true},
		{name: "negative max chars", mutate: func(c *Config) { c.LLM.APIKey = "k"; c.Extraction.MaxChars = -1 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetLLMTimeout_Fallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Timeout = "garbage"
	assert.Equal(t, 120*time.Second, cfg.GetLLMTimeout())

	cfg.LLM.Timeout = "5s"
	assert.Equal(t, 5*time.Second, cfg.GetLLMTimeout())
}

func TestLoadDotEnv(t *testing.T) {
	const key = "ROSTERX_DOTENV_PROBE"
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-dotenv\n"), 0644))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-dotenv", os.Getenv(key))
}

func TestLoadDotEnv_ExistingWins(t *testing.T) {
	t.Setenv("ROSTERX_MODEL", "from-shell")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ROSTERX_MODEL=from-dotenv\n"), 0644))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-shell", os.Getenv("ROSTERX_MODEL"))
}
