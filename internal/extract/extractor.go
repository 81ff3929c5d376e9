// Package extract builds extraction prompts, calls the model and repairs its
// answer into schema records.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"rosterx/internal/llm"
	"rosterx/internal/schema"
)

// ErrExtractionFailure covers a failed model call and output that could not
// be repaired into JSON.
var ErrExtractionFailure = errors.New("extraction failure")

// Extractor turns normalized email text into records.
type Extractor struct {
	schema   *schema.Schema
	gen      llm.Generator
	maxChars int
	log      *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxChars truncates email text to n characters before prompting.
func WithMaxChars(n int) Option {
	return func(e *Extractor) { e.maxChars = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an extractor for s backed by gen.
func New(s *schema.Schema, gen llm.Generator, opts ...Option) *Extractor {
	e := &Extractor{schema: s, gen: gen, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Outcome is the result for one email of a batch.
type Outcome struct {
	Record schema.Record
	Err    error
}

// Extract runs one model call for text. Empty text yields an all-sentinel
// record without calling the model.
func (e *Extractor) Extract(ctx context.Context, text string) (schema.Record, error) {
	text = e.clip(text)
	if strings.TrimSpace(text) == "" {
		e.log.Debug("Empty email text, skipping model call")
		return e.schema.Empty(), nil
	}

	raw, err := e.gen.Generate(ctx, BuildPrompt(e.schema, text))
	if err != nil {
		return schema.Record{}, fmt.Errorf("%w: model call: %w", ErrExtractionFailure, err)
	}

	switch r := Parse(raw).(type) {
	case Valid:
		return e.schema.Normalize(r.Fields), nil
	case ValidList:
		for _, item := range r.Items {
			if fields, ok := item.(map[string]any); ok {
				return e.schema.Normalize(fields), nil
			}
		}
		e.log.Debug("Model returned a list without objects", zap.String("raw_response", raw))
		return schema.Record{}, fmt.Errorf("%w: list without objects", ErrExtractionFailure)
	case Malformed:
		e.log.Debug("Unrepairable model output", zap.String("raw_response", r.Raw), zap.Error(r.Err))
		return schema.Record{}, fmt.Errorf("%w: %w", ErrExtractionFailure, r.Err)
	}
	return schema.Record{}, ErrExtractionFailure
}

// ExtractBatch shares one model call across texts and demultiplexes the
// answer by position. Each outcome fails or succeeds on its own.
func (e *Extractor) ExtractBatch(ctx context.Context, texts []string) []Outcome {
	out := make([]Outcome, len(texts))

	clipped := make([]string, len(texts))
	var pending []int
	for i, text := range texts {
		clipped[i] = e.clip(text)
		if strings.TrimSpace(clipped[i]) == "" {
			out[i] = Outcome{Record: e.schema.Empty()}
			continue
		}
		pending = append(pending, i)
	}

	switch len(pending) {
	case 0:
		return out
	case 1:
		i := pending[0]
		rec, err := e.Extract(ctx, clipped[i])
		out[i] = Outcome{Record: rec, Err: err}
		return out
	}

	prompts := make([]string, len(pending))
	for j, i := range pending {
		prompts[j] = clipped[i]
	}

	fail := func(err error) []Outcome {
		for _, i := range pending {
			out[i] = Outcome{Err: err}
		}
		return out
	}

	raw, err := e.gen.Generate(ctx, BuildBatchPrompt(e.schema, prompts))
	if err != nil {
		return fail(fmt.Errorf("%w: model call: %w", ErrExtractionFailure, err))
	}

	resp := Parse(raw)
	items, ok := batchItems(resp)
	if !ok {
		e.log.Debug("Batch answer is not a list", zap.String("raw_response", compact(resp)))
		if m, isBad := resp.(Malformed); isBad {
			return fail(fmt.Errorf("%w: %w", ErrExtractionFailure, m.Err))
		}
		return fail(fmt.Errorf("%w: expected a JSON array of %d objects", ErrExtractionFailure, len(pending)))
	}
	if len(items) != len(pending) {
		e.log.Debug("Batch answer length mismatch",
			zap.Int("want", len(pending)),
			zap.Int("got", len(items)))
	}

	for j, i := range pending {
		if j >= len(items) {
			out[i] = Outcome{Err: fmt.Errorf("%w: no answer for email %d of batch", ErrExtractionFailure, j+1)}
			continue
		}
		fields, ok := items[j].(map[string]any)
		if !ok {
			out[i] = Outcome{Err: fmt.Errorf("%w: answer %d is not an object", ErrExtractionFailure, j+1)}
			continue
		}
		out[i] = Outcome{Record: e.schema.Normalize(fields)}
	}
	return out
}

// batchItems accepts a bare array or an object wrapping exactly one array,
// e.g. {"emails": [...]}.
func batchItems(r Response) ([]any, bool) {
	switch v := r.(type) {
	case ValidList:
		return v.Items, true
	case Valid:
		if len(v.Fields) != 1 {
			return nil, false
		}
		for _, val := range v.Fields {
			if items, ok := val.([]any); ok {
				return items, true
			}
		}
	}
	return nil, false
}

func (e *Extractor) clip(text string) string {
	if e.maxChars <= 0 || utf8.RuneCountInString(text) <= e.maxChars {
		return text
	}
	e.log.Debug("Truncating email text", zap.Int("max_chars", e.maxChars))
	runes := []rune(text)
	return string(runes[:e.maxChars])
}
