// Package conversation implements the request cycle of a chat session: every
// user turn is appended to a transcript, the whole transcript is sent to the
// text-generation provider, and the generated text is handed back.
package conversation

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/localrivet/chatcycle/internal/errortypes"
	"github.com/localrivet/chatcycle/internal/generate"
	"github.com/localrivet/chatcycle/internal/telemetry"
)

// Options configures a Cycle.
type Options struct {
	// Model is sent with every envelope. Empty lets the provider choose.
	Model   string
	Logger  *slog.Logger
	Metrics *telemetry.MetricsCollector
}

// Cycle owns one conversation transcript. A Cycle serializes its calls, so
// at most one generate request is outstanding per instance.
type Cycle struct {
	generator generate.Generator
	model     string
	logger    *slog.Logger
	metrics   *telemetry.MetricsCollector

	mu         sync.Mutex
	transcript []string
}

// NewCycle creates a Cycle with an empty transcript.
func NewCycle(generator generate.Generator, opts Options) *Cycle {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetricsCollector()
	}
	return &Cycle{
		generator: generator,
		model:     opts.Model,
		logger:    logger,
		metrics:   metrics,
	}
}

// BuildEnvelope joins the transcript with newlines into a request for model.
// Streaming is never requested.
func BuildEnvelope(transcript []string, model string) generate.Request {
	return generate.Request{
		Model:  model,
		Prompt: strings.Join(transcript, "\n"),
		Stream: false,
	}
}

// Submit appends userInput to the transcript, sends the full transcript and
// returns the generated text. Blank input is rejected with an empty_input
// error before the transcript is touched. Provider failures are returned as
// network, remote_status or payload_shape errors and are not retried; the
// turn stays in the transcript.
func (c *Cycle) Submit(ctx context.Context, userInput string) (string, error) {
	if strings.TrimSpace(userInput) == "" {
		c.metrics.IncrementCounter(telemetry.MetricEmptyInputRejected, 1)
		return "", errortypes.EmptyInputError("prompt rejected")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.transcript = append(c.transcript, userInput)
	envelope := BuildEnvelope(c.transcript, c.model)

	c.logger.Debug("Submitting conversation turn",
		"turn", len(c.transcript), "prompt_length", len(envelope.Prompt), "provider", c.generator.Name())

	start := time.Now()
	c.metrics.IncrementCounter(telemetry.MetricGenerateCalls, 1)
	text, err := c.generator.Generate(ctx, envelope)
	c.metrics.RecordTimer(telemetry.MetricGenerateLatency, time.Since(start))
	if err != nil {
		err = generate.Normalize(err)
		c.metrics.IncrementCounter(telemetry.FailureMetric(errortypes.TypeOf(err)), 1)
		c.logger.Warn("Conversation turn failed", "turn", len(c.transcript), "type", errortypes.TypeOf(err), "error", err)
		return "", err
	}

	c.metrics.IncrementCounter(telemetry.MetricGenerateSuccess, 1)
	return text, nil
}

// Transcript returns a copy of the user turns submitted so far.
func (c *Cycle) Transcript() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.transcript...)
}

// Len returns the number of turns in the transcript.
func (c *Cycle) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.transcript)
}
