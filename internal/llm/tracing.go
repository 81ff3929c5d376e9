package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rosterx/internal/metrics"
)

// Trace captures one model call.
type Trace struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id,omitempty"`
	Provider   string    `json:"provider"`
	Prompt     string    `json:"prompt"`
	Response   string    `json:"response"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TraceStore persists traces.
type TraceStore interface {
	StoreTrace(trace *Trace) error
}

// TracingClient wraps a Generator, logging every call, observing its latency
// and optionally storing a trace.
type TracingClient struct {
	underlying Generator
	provider   string
	runID      string
	store      TraceStore       // optional
	metrics    *metrics.Metrics // optional
	log        *zap.Logger
}

// NewTracingClient wraps underlying. store and m may be nil.
func NewTracingClient(underlying Generator, provider, runID string, store TraceStore, m *metrics.Metrics, log *zap.Logger) *TracingClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &TracingClient{
		underlying: underlying,
		provider:   provider,
		runID:      runID,
		store:      store,
		metrics:    m,
		log:        log,
	}
}

// Generate implements Generator.
func (tc *TracingClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	tc.log.Debug("Model call started",
		zap.String("provider", tc.provider),
		zap.Int("prompt_len", len(prompt)),
		zap.String("prompt", prompt))

	response, err := tc.underlying.Generate(ctx, prompt)

	duration := time.Since(start)
	tc.metrics.RecordModelCall(tc.provider, err, duration)

	if err != nil {
		tc.log.Debug("Model call failed", zap.Duration("duration", duration), zap.Error(err))
	} else {
		tc.log.Debug("Model call completed",
			zap.Duration("duration", duration),
			zap.String("raw_response", response))
	}

	if tc.store != nil {
		trace := &Trace{
			ID:         uuid.NewString(),
			RunID:      tc.runID,
			Provider:   tc.provider,
			Prompt:     prompt,
			Response:   response,
			DurationMs: duration.Milliseconds(),
			Success:    err == nil,
			Timestamp:  start.UTC(),
		}
		if err != nil {
			trace.Error = err.Error()
		}
		if serr := tc.store.StoreTrace(trace); serr != nil {
			tc.log.Warn("Failed to store trace", zap.Error(serr))
		}
	}

	return response, err
}

// FileTraceStore appends traces to a JSONL file.
type FileTraceStore struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// OpenFileTraceStore opens (or creates) path for appending.
func OpenFileTraceStore(path string) (*FileTraceStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	return &FileTraceStore{file: f, enc: json.NewEncoder(f)}, nil
}

// StoreTrace writes one line.
func (s *FileTraceStore) StoreTrace(trace *Trace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(trace)
}

// Close closes the underlying file.
func (s *FileTraceStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
