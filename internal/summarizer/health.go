package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/localrivet/chatcycle/internal/generate"
	"github.com/localrivet/chatcycle/internal/telemetry"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	// StatusHealthy indicates a component is fully operational
	StatusHealthy HealthStatus = "healthy"

	// StatusDegraded indicates the generator answers but recent calls fail often
	StatusDegraded HealthStatus = "degraded"

	// StatusUnhealthy indicates a component is not operational
	StatusUnhealthy HealthStatus = "unhealthy"

	// healthProbe is sent to the generator by CheckGenerator.
	healthProbe = "This is a brief health check. Reply with OK."

	// degradedSuccessRate is the success rate below which a reachable
	// generator is reported as degraded.
	degradedSuccessRate = 50.0
)

// HealthReport contains information about the current health of the generator
type HealthReport struct {
	Status         HealthStatus       `json:"status"`
	Timestamp      time.Time          `json:"timestamp"`
	Provider       string             `json:"provider"`
	ProviderError  string             `json:"provider_error,omitempty"`
	ResponseTimes  map[string]float64 `json:"response_times_ms"`
	Failures       map[string]int64   `json:"failures"`
	ChunkStats     map[string]int64   `json:"chunk_stats"`
	SuccessRate    float64            `json:"success_rate"`
	TotalRequests  int64              `json:"total_requests"`
	ActiveSessions int64              `json:"active_sessions"`
}

// CheckGenerator sends a short probe to gen and reports whether it answered.
func CheckGenerator(ctx context.Context, gen generate.Generator, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := gen.Generate(ctx, generate.Request{Prompt: healthProbe})
	return generate.Normalize(err)
}

// CreateHealthReport probes the summarizer's generator and summarizes the
// collected metrics.
func CreateHealthReport(ctx context.Context, s *ChunkedSummarizer) (*HealthReport, error) {
	if s == nil {
		return nil, fmt.Errorf("summarizer is nil")
	}

	m := s.GetMetrics()
	if m == nil {
		return nil, fmt.Errorf("metrics collector is nil")
	}

	probeErr := CheckGenerator(ctx, s.generator, 10*time.Second)
	if probeErr == nil {
		m.SetGauge(telemetry.MetricGeneratorHealth, 1)
	} else {
		m.SetGauge(telemetry.MetricGeneratorHealth, 0)
	}

	totalSuccess := m.GetCounter(telemetry.MetricGenerateSuccess)
	totalRequests := m.GetCounter(telemetry.MetricGenerateCalls)

	var successRate float64
	if totalRequests > 0 {
		successRate = float64(totalSuccess) / float64(totalRequests) * 100.0
	}

	status := StatusHealthy
	switch {
	case probeErr != nil:
		status = StatusUnhealthy
	case totalRequests > 0 && successRate < degradedSuccessRate:
		status = StatusDegraded
	}

	report := &HealthReport{
		Status:    status,
		Timestamp: time.Now(),
		Provider:  s.generator.Name(),
		ResponseTimes: map[string]float64{
			"generate_avg": float64(m.GetTimerAverage(telemetry.MetricGenerateLatency)) / float64(time.Millisecond),
			"generate_p95": float64(m.GetTimerP95(telemetry.MetricGenerateLatency)) / float64(time.Millisecond),
			"summarize":    float64(m.GetTimerAverage(telemetry.MetricSummarizeTotal)) / float64(time.Millisecond),
		},
		Failures: map[string]int64{
			"network":       m.GetCounter(telemetry.MetricFailureNetwork),
			"remote_status": m.GetCounter(telemetry.MetricFailureRemoteStatus),
			"payload_shape": m.GetCounter(telemetry.MetricFailurePayloadShape),
			"other":         m.GetCounter(telemetry.MetricFailureOther),
			"empty_input":   m.GetCounter(telemetry.MetricEmptyInputRejected),
		},
		ChunkStats: map[string]int64{
			"direct":    m.GetCounter(telemetry.MetricSummariesDirect),
			"chunked":   m.GetCounter(telemetry.MetricSummariesChunked),
			"processed": m.GetCounter(telemetry.MetricChunksProcessed),
			"failed":    m.GetCounter(telemetry.MetricChunkFailures),
		},
		SuccessRate:    successRate,
		TotalRequests:  totalRequests,
		ActiveSessions: int64(m.GetGauge(telemetry.MetricActiveSessions)),
	}
	if probeErr != nil {
		report.ProviderError = probeErr.Error()
	}
	return report, nil
}

// CreateHealthReportJSON generates a JSON health report for the summarizer
func CreateHealthReportJSON(ctx context.Context, s *ChunkedSummarizer) (string, error) {
	report, err := CreateHealthReport(ctx, s)
	if err != nil {
		return "", err
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal health report: %w", err)
	}

	return string(reportJSON), nil
}

// ResetMetrics resets all metrics for the summarizer
func ResetMetrics(s *ChunkedSummarizer) error {
	if s == nil {
		return fmt.Errorf("summarizer is nil")
	}

	m := s.GetMetrics()
	if m == nil {
		return fmt.Errorf("metrics collector is nil")
	}

	m.Reset()
	return nil
}
