package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when --config is not given. A missing file is not an error.
const DefaultPath = "rosterx.yaml"

// Config holds all rosterx configuration.
type Config struct {
	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Prompt shaping
	Extraction ExtractionConfig `yaml:"extraction"`

	// Side outputs written at the end of a run
	Output OutputConfig `yaml:"output"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the extraction model.
type LLMConfig struct {
	Provider        string `yaml:"provider"` // gemini, openai, rules
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	BaseURL         string `yaml:"base_url"`
	Timeout         string `yaml:"timeout"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

// ExtractionConfig configures prompt construction.
type ExtractionConfig struct {
	// Email text beyond this many characters is cut before prompting. 0 disables.
	MaxChars int `yaml:"max_chars"`
}

// OutputConfig configures optional run artifacts.
type OutputConfig struct {
	MetricsFile string `yaml:"metrics_file"` // node-exporter textfile
	TraceFile   string `yaml:"trace_file"`   // JSONL, one line per model call
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:        "gemini",
			Model:           "gemini-2.5-flash",
			Timeout:         "120s",
			MaxOutputTokens: 512,
		},

		Extraction: ExtractionConfig{
			MaxChars: 20000,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. Environment overrides are
// applied whether or not the file exists.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults if config file doesn't exist
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("ROSTERX_PROVIDER"); p != "" {
		c.LLM.Provider = p
	}
	if m := os.Getenv("ROSTERX_MODEL"); m != "" {
		c.LLM.Model = m
	}
	if u := os.Getenv("ROSTERX_BASE_URL"); u != "" {
		c.LLM.BaseURL = u
	}

	// API key for the selected provider only
	switch c.LLM.Provider {
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.LLM.APIKey = key
		}
	case "openai":
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.LLM.APIKey = key
		}
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"gemini", "openai", "rules"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("LLM API key not configured (set GEMINI_API_KEY)")
		}
	case "openai":
		// Local OpenAI-compatible servers (Ollama, vLLM) need no key.
		if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
			return fmt.Errorf("LLM API key not configured (set OPENAI_API_KEY or ROSTERX_BASE_URL)")
		}
	}

	if c.LLM.Provider != "rules" && c.LLM.Model == "" {
		return fmt.Errorf("LLM model not configured")
	}
	if c.LLM.MaxOutputTokens < 0 {
		return fmt.Errorf("max_output_tokens must not be negative")
	}
	if c.Extraction.MaxChars < 0 {
		return fmt.Errorf("max_chars must not be negative")
	}
	if c.LLM.Timeout != "" {
		if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
			return fmt.Errorf("invalid LLM timeout %q: %w", c.LLM.Timeout, err)
		}
	}

	return nil
}
