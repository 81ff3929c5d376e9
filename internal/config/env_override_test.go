package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_LLM(t *testing.T) {
	t.Run("GEMINI_API_KEY applies to gemini", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "g-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "g-key", cfg.LLM.APIKey)
		assert.Equal(t, "gemini", cfg.LLM.Provider)
	})

	t.Run("GEMINI_API_KEY ignored for openai", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "g-key")

		cfg := &Config{LLM: LLMConfig{Provider: "openai", APIKey: "from-file"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "from-file", cfg.LLM.APIKey)
	})

	t.Run("ROSTERX_PROVIDER selects which key is read", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROSTERX_PROVIDER", "openai")
		t.Setenv("GEMINI_API_KEY", "g-key")
		t.Setenv("OPENAI_API_KEY", "oa-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "openai", cfg.LLM.Provider)
		assert.Equal(t, "oa-key", cfg.LLM.APIKey)
	})

	t.Run("model and base url", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROSTERX_MODEL", "llama3.1")
		t.Setenv("ROSTERX_BASE_URL", "http://localhost:11434/v1")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "llama3.1", cfg.LLM.Model)
		assert.Equal(t, "http://localhost:11434/v1", cfg.LLM.BaseURL)
	})

	t.Run("empty env leaves config alone", func(t *testing.T) {
		clearEnv(t)

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, DefaultConfig(), cfg)
	})
}
