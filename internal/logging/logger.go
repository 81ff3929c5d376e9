// Package logging builds the zap loggers used across rosterx.
// Each pipeline stage logs through a named child of the run logger so
// output can be filtered by category.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a pipeline stage.
type Category string

const (
	CategoryBoot      Category = "boot"      // Config, discovery, template loading
	CategoryNormalize Category = "normalize" // Email -> text
	CategoryExtract   Category = "extract"   // Prompting and repair
	CategoryLLM       Category = "llm"       // Provider calls
	CategoryRoster    Category = "roster"    // Spreadsheet I/O
	CategoryBatch     Category = "batch"     // Driver state machine
	CategoryMetrics   Category = "metrics"
)

// Options controls logger construction.
type Options struct {
	Verbose bool   // forces debug level
	Level   string // debug, info, warn, error
	Format  string // json, console
	File    string // extra output path, optional
}

// New builds a production logger. Verbose overrides Level.
func New(opts Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)
	if level == zapcore.DebugLevel {
		// Raw model output is logged once per call; none of it may be dropped.
		config.Sampling = nil
	}

	switch strings.ToLower(opts.Format) {
	case "", "json":
	case "console", "text":
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	if opts.File != "" {
		config.OutputPaths = append(config.OutputPaths, opts.File)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// For returns the child logger for a category. A nil logger yields a no-op.
func For(l *zap.Logger, c Category) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.Named(string(c))
}

// WithRun tags every entry with the run id.
func WithRun(l *zap.Logger, runID string) *zap.Logger {
	return l.With(zap.String("run_id", runID))
}
