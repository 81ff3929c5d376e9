// Package batch drives emails through normalization, extraction and the
// output table, one batch of model work at a time.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"rosterx/internal/extract"
	"rosterx/internal/metrics"
	"rosterx/internal/schema"
)

// ErrEmailUnparseable marks an input that could not be read as an email.
var ErrEmailUnparseable = errors.New("email unparseable")

// State is the lifecycle of one input.
type State int

const (
	StatePending State = iota
	StateProcessing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateProcessing:
		return "processing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Item tracks one input file.
type Item struct {
	Path  string
	State State
	Err   error
}

// Summary is the outcome of a run.
type Summary struct {
	Processed int
	Succeeded int
	Failed    int
	Items     []Item
}

// Normalizer turns raw email bytes into text.
type Normalizer interface {
	Normalize(raw []byte) (string, error)
}

// Extractor extracts records for a group of texts with one model call.
type Extractor interface {
	ExtractBatch(ctx context.Context, texts []string) []extract.Outcome
}

// Appender receives every successfully extracted record, in input order.
type Appender interface {
	Append(rec schema.Record) error
}

// Driver runs inputs through the pipeline sequentially.
type Driver struct {
	normalizer Normalizer
	extractor  Extractor
	appender   Appender
	batchSize  int
	metrics    *metrics.Metrics
	log        *zap.Logger
	readFile   func(string) ([]byte, error)
}

// Option configures a Driver.
type Option func(*Driver)

// WithBatchSize groups n emails per model call. Values below 1 mean 1.
func WithBatchSize(n int) Option {
	return func(d *Driver) { d.batchSize = n }
}

// WithMetrics records outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.log = l
		}
	}
}

// NewDriver wires the three stages.
func NewDriver(n Normalizer, e Extractor, a Appender, opts ...Option) *Driver {
	d := &Driver{
		normalizer: n,
		extractor:  e,
		appender:   a,
		batchSize:  1,
		log:        zap.NewNop(),
		readFile:   os.ReadFile,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.batchSize < 1 {
		d.batchSize = 1
	}
	return d
}

// Run processes paths in order. Per-email failures are recorded in the
// summary and never stop the run; an append failure or a cancelled ctx does.
func (d *Driver) Run(ctx context.Context, paths []string) (Summary, error) {
	items := make([]Item, len(paths))
	for i, p := range paths {
		items[i] = Item{Path: p, State: StatePending}
	}

	for start := 0; start < len(items); start += d.batchSize {
		if err := ctx.Err(); err != nil {
			return summarize(items), err
		}
		end := min(start+d.batchSize, len(items))
		d.log.Debug("Processing batch",
			zap.Int("batch", start/d.batchSize+1),
			zap.Int("size", end-start))

		if err := d.runBatch(ctx, items[start:end]); err != nil {
			return summarize(items), err
		}
	}

	return summarize(items), nil
}

func (d *Driver) runBatch(ctx context.Context, batch []Item) error {
	var texts []string
	var idx []int
	for i := range batch {
		it := &batch[i]
		it.State = StateProcessing

		raw, err := d.readFile(it.Path)
		if err != nil {
			d.fail(it, "unparseable", fmt.Errorf("%w: %w", ErrEmailUnparseable, err))
			continue
		}
		text, err := d.normalizer.Normalize(raw)
		if err != nil {
			d.fail(it, "unparseable", fmt.Errorf("%w: %w", ErrEmailUnparseable, err))
			continue
		}
		d.log.Debug("Email normalized", zap.String("path", it.Path), zap.Int("chars", len(text)))
		texts = append(texts, text)
		idx = append(idx, i)
	}
	if len(texts) == 0 {
		return nil
	}

	outcomes := d.extractor.ExtractBatch(ctx, texts)
	for j, i := range idx {
		it := &batch[i]
		if j >= len(outcomes) {
			d.fail(it, "extraction", extract.ErrExtractionFailure)
			continue
		}
		if outcomes[j].Err != nil {
			d.fail(it, "extraction", outcomes[j].Err)
			continue
		}
		if err := d.appender.Append(outcomes[j].Record); err != nil {
			it.State = StateFailed
			it.Err = err
			return err
		}
		it.State = StateDone
		d.metrics.RecordRow()
		d.metrics.RecordEmail(metrics.StatusSucceeded)
		d.log.Info("Processed", zap.String("path", it.Path), zap.Int("fields_found", outcomes[j].Record.Found()))
	}
	return nil
}

func (d *Driver) fail(it *Item, kind string, err error) {
	it.State = StateFailed
	it.Err = err
	d.metrics.RecordEmail(metrics.StatusFailed)
	d.metrics.RecordFailure(kind)
	d.log.Warn("Email failed", zap.String("path", it.Path), zap.Error(err))
}

func summarize(items []Item) Summary {
	s := Summary{Items: items}
	for _, it := range items {
		switch it.State {
		case StateDone:
			s.Succeeded++
			s.Processed++
		case StateFailed:
			s.Failed++
			s.Processed++
		}
	}
	return s
}
