package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rosterx/internal/batch"
	"rosterx/internal/extract"
	"rosterx/internal/llm"
	"rosterx/internal/logging"
	"rosterx/internal/mailtext"
	"rosterx/internal/metrics"
	"rosterx/internal/roster"
	"rosterx/internal/schema"
)

// runExtract processes every input email and saves the output table.
func runExtract(cmd *cobra.Command, args []string) error {
	inputPath, templatePath, outputPath := args[0], args[1], args[2]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if batchSize < 1 {
		return fmt.Errorf("--batch must be a positive integer, got %d", batchSize)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	boot := logging.For(logger, logging.CategoryBoot)
	s := schema.Roster()

	paths, err := batch.Discover(inputPath)
	if err != nil {
		return err
	}
	boot.Info("Inputs discovered", zap.String("input", inputPath), zap.Int("count", len(paths)))

	if err := roster.CheckOutputPath(templatePath, outputPath); err != nil {
		return err
	}
	table, err := roster.OpenTemplate(templatePath, s, logging.For(logger, logging.CategoryRoster))
	if err != nil {
		return err
	}
	defer table.Close()

	m := metrics.New()
	gen, closeTrace, err := buildGenerator(ctx, s, m)
	if err != nil {
		return err
	}
	defer closeTrace()

	extractor := extract.New(s, gen,
		extract.WithMaxChars(cfg.Extraction.MaxChars),
		extract.WithLogger(logging.For(logger, logging.CategoryExtract)))

	driver := batch.NewDriver(
		mailtext.NewNormalizer(logging.For(logger, logging.CategoryNormalize)),
		extractor,
		table,
		batch.WithBatchSize(batchSize),
		batch.WithMetrics(m),
		batch.WithLogger(logging.For(logger, logging.CategoryBatch)),
	)

	summary, err := driver.Run(ctx, paths)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted after %d of %d emails; output not written", summary.Processed, len(paths))
		}
		return err
	}

	if err := table.Save(outputPath); err != nil {
		return err
	}

	if cfg.Output.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			logging.For(logger, logging.CategoryMetrics).Warn("Metrics not written", zap.Error(err))
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary, outputPath))
	return nil
}

// buildGenerator picks the configured provider and wraps it for tracing. The
// returned func closes the trace file, if any.
func buildGenerator(ctx context.Context, s *schema.Schema, m *metrics.Metrics) (llm.Generator, func(), error) {
	llmLog := logging.For(logger, logging.CategoryLLM)

	var gen llm.Generator
	if cfg.LLM.Provider == "rules" {
		gen = extract.NewRulesGenerator(s)
	} else {
		client, err := llm.NewClientFromConfig(ctx, cfg.LLM, cfg.GetLLMTimeout(), llmLog)
		if err != nil {
			return nil, nil, err
		}
		gen = client
	}

	closeTrace := func() {}
	var store llm.TraceStore
	if cfg.Output.TraceFile != "" {
		fileStore, err := llm.OpenFileTraceStore(cfg.Output.TraceFile)
		if err != nil {
			return nil, nil, err
		}
		store = fileStore
		closeTrace = func() {
			if err := fileStore.Close(); err != nil {
				llmLog.Warn("Failed to close trace file", zap.Error(err))
			}
		}
	}

	return llm.NewTracingClient(gen, cfg.LLM.Provider, runID, store, m, llmLog), closeTrace, nil
}
