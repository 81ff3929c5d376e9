// Package llm wraps the text-generation providers used for extraction behind
// a single prompt-in, text-out interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rosterx/internal/config"
)

// Generator turns a prompt into model text. Implementations block until the
// model answers or ctx is done.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// SystemPrompt is sent as the system message by providers that support one.
const SystemPrompt = "You are a structured-extraction model. You read roster update emails and answer with strict JSON only, never commentary."

// ErrNoAPIKey is returned when a hosted provider has no credentials.
var ErrNoAPIKey = errors.New("API key not configured")

// NewClientFromConfig builds the provider named in cfg. The offline "rules"
// provider is not built here since it needs the prompt format.
func NewClientFromConfig(ctx context.Context, cfg config.LLMConfig, timeout time.Duration, log *zap.Logger) (Generator, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:          cfg.APIKey,
			Model:           cfg.Model,
			BaseURL:         cfg.BaseURL,
			Timeout:         timeout,
			MaxOutputTokens: cfg.MaxOutputTokens,
		}, log)
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			Timeout:   timeout,
			MaxTokens: cfg.MaxOutputTokens,
		}, log)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// withDefaultTimeout applies d when ctx carries no deadline.
func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
