package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/localrivet/chatcycle/internal/errortypes"
	"github.com/localrivet/chatcycle/internal/generate"
	"github.com/localrivet/chatcycle/internal/telemetry"
)

// ChunkedSummarizerConfig holds configuration for the ChunkedSummarizer
type ChunkedSummarizerConfig struct {
	// Model is sent with every request. Empty lets the provider choose.
	Model string

	// ChunkSize is the number of characters per chunk.
	ChunkSize int

	// Threshold is the largest document, in characters, summarized with a
	// single call. It must not be smaller than ChunkSize.
	Threshold int

	// ChunkDelay is the pause between consecutive chunk submissions.
	// Negative disables it.
	ChunkDelay time.Duration

	// PromptTemplate must contain exactly one {text} placeholder.
	PromptTemplate string

	// Progress, when set, is called after each chunk with the number of
	// chunks done so far and the total.
	Progress func(done, total int)

	Logger  *slog.Logger
	Metrics *telemetry.MetricsCollector
}

// ChunkedSummarizer summarizes small documents in one call and large ones
// chunk by chunk, strictly in order and one call at a time.
type ChunkedSummarizer struct {
	generator generate.Generator
	model     string
	chunkSize int
	threshold int
	delay     time.Duration
	template  PromptTemplate
	progress  func(done, total int)
	logger    *slog.Logger
	metrics   *telemetry.MetricsCollector

	// sleep waits between chunks; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	// mu keeps calls from concurrent Summarize invocations from overlapping.
	mu sync.Mutex
}

// NewChunkedSummarizer creates a ChunkedSummarizer. Zero values in config
// fall back to the package defaults.
func NewChunkedSummarizer(generator generate.Generator, config *ChunkedSummarizerConfig) (*ChunkedSummarizer, error) {
	if config == nil {
		config = &ChunkedSummarizerConfig{}
	}
	if generator == nil {
		return nil, errortypes.ConfigError(fmt.Errorf("generator is nil"), "summarizer misconfigured")
	}

	chunkSize := config.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	threshold := config.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if threshold < chunkSize {
		return nil, errortypes.ValidationError(
			fmt.Errorf("threshold %d is smaller than chunk size %d", threshold, chunkSize),
			"summarizer misconfigured")
	}

	delay := config.ChunkDelay
	if delay == 0 {
		delay = DefaultChunkDelay
	}
	if delay < 0 {
		delay = 0
	}

	tpl := config.PromptTemplate
	if tpl == "" {
		tpl = DefaultPromptTemplate
	}
	template, err := ParseTemplate(tpl)
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetricsCollector()
	}

	return &ChunkedSummarizer{
		generator: generator,
		model:     config.Model,
		chunkSize: chunkSize,
		threshold: threshold,
		delay:     delay,
		template:  template,
		progress:  config.Progress,
		logger:    logger,
		metrics:   metrics,
		sleep:     sleepCtx,
	}, nil
}

// Summarize returns a summary of document. A document of at most Threshold
// characters is summarized with one call. A longer one is split into
// chunks whose partial summaries are joined with a blank line. If any chunk
// fails the whole call fails with a chunk_failure error naming the 1-based
// chunk index, and no partial output is returned.
func (s *ChunkedSummarizer) Summarize(ctx context.Context, document string) (string, error) {
	if strings.TrimSpace(document) == "" {
		s.metrics.IncrementCounter(telemetry.MetricEmptyInputRejected, 1)
		return "", errortypes.EmptyInputError("document rejected")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	startTime := time.Now()
	defer func() {
		s.metrics.RecordTimer(telemetry.MetricSummarizeTotal, time.Since(startTime))
		s.metrics.RecordTimestamp(telemetry.MetricSummarizeTotal)
	}()

	length := utf8.RuneCountInString(document)
	if length <= s.threshold {
		s.metrics.IncrementCounter(telemetry.MetricSummariesDirect, 1)
		s.logger.Debug("Summarizing document directly", "length", length)
		summary, err := s.call(ctx, document)
		if err != nil {
			s.logger.Warn("Direct summary failed", "type", errortypes.TypeOf(err), "error", err)
			return "", err
		}
		s.reportProgress(1, 1)
		return summary, nil
	}

	chunks := SplitChunks(document, s.chunkSize)
	s.metrics.IncrementCounter(telemetry.MetricSummariesChunked, 1)
	s.logger.Info("Summarizing document in chunks", "length", length, "chunks", len(chunks), "chunk_size", s.chunkSize)

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if i > 0 && s.delay > 0 {
			if err := s.sleep(ctx, s.delay); err != nil {
				s.metrics.IncrementCounter(telemetry.MetricChunkFailures, 1)
				return "", errortypes.ChunkFailureError(generate.Normalize(err), i+1, len(chunks))
			}
		}

		summary, err := s.call(ctx, chunk)
		if err != nil {
			s.metrics.IncrementCounter(telemetry.MetricChunkFailures, 1)
			err = errortypes.ChunkFailureError(err, i+1, len(chunks))
			errortypes.LogError(s.logger, err)
			return "", err
		}

		partials = append(partials, summary)
		s.metrics.IncrementCounter(telemetry.MetricChunksProcessed, 1)
		s.reportProgress(i+1, len(chunks))
	}

	return strings.Join(partials, PartialSeparator), nil
}

// call renders content into the template and performs one generate call.
func (s *ChunkedSummarizer) call(ctx context.Context, content string) (string, error) {
	req := generate.Request{
		Model:  s.model,
		Prompt: s.template.Render(content),
	}

	start := time.Now()
	s.metrics.IncrementCounter(telemetry.MetricGenerateCalls, 1)
	text, err := s.generator.Generate(ctx, req)
	s.metrics.RecordTimer(telemetry.MetricGenerateLatency, time.Since(start))
	if err != nil {
		err = generate.Normalize(err)
		s.metrics.IncrementCounter(telemetry.FailureMetric(errortypes.TypeOf(err)), 1)
		return "", err
	}

	s.metrics.IncrementCounter(telemetry.MetricGenerateSuccess, 1)
	return text, nil
}

func (s *ChunkedSummarizer) reportProgress(done, total int) {
	if s.progress != nil {
		s.progress(done, total)
	}
}

// ChunkCount returns how many generate calls Summarize makes for document.
func (s *ChunkedSummarizer) ChunkCount(document string) int {
	length := utf8.RuneCountInString(document)
	switch {
	case strings.TrimSpace(document) == "":
		return 0
	case length <= s.threshold:
		return 1
	default:
		return (length + s.chunkSize - 1) / s.chunkSize
	}
}

// Generator returns the provider used by the summarizer.
func (s *ChunkedSummarizer) Generator() generate.Generator {
	return s.generator
}

// GetMetrics returns the metrics collector for this summarizer
func (s *ChunkedSummarizer) GetMetrics() *telemetry.MetricsCollector {
	return s.metrics
}

// sleepCtx waits for d or until ctx is done, in steps of at most 200ms.
func sleepCtx(ctx context.Context, d time.Duration) error {
	const step = 200 * time.Millisecond
	for d > 0 {
		s := d
		if s > step {
			s = step
		}
		t := time.NewTimer(s)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		d -= s
	}
	return nil
}
