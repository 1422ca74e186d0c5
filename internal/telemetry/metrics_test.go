package telemetry

import (
	"strings"
	"testing"
	"time"
)

type reason string

func TestMetricsCollector(t *testing.T) {
	m := NewMetricsCollector()

	m.IncrementCounter(MetricGenerateCalls, 2)
	m.IncrementCounter(MetricGenerateCalls, 1)
	m.SetGauge(MetricActiveSessions, 4)
	m.RecordTimer(MetricGenerateLatency, 100*time.Millisecond)
	m.RecordTimer(MetricGenerateLatency, 300*time.Millisecond)
	m.RecordTimestamp(MetricSummarizeTotal)

	if got := m.GetCounter(MetricGenerateCalls); got != 3 {
		t.Errorf("counter = %d, want 3", got)
	}
	if got := m.GetGauge(MetricActiveSessions); got != 4 {
		t.Errorf("gauge = %v, want 4", got)
	}
	if got := m.GetTimerAverage(MetricGenerateLatency); got != 200*time.Millisecond {
		t.Errorf("average = %v, want 200ms", got)
	}
	if got := m.GetTimerP95(MetricGenerateLatency); got != 300*time.Millisecond {
		t.Errorf("p95 = %v, want 300ms", got)
	}
	if m.GetTimeSince("missing") != 0 {
		t.Errorf("time since an unrecorded event should be zero")
	}

	report := m.GetReport()
	for _, want := range []string{MetricGenerateCalls + ": 3", MetricActiveSessions, "count=2"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}

	m.Reset()
	if m.GetCounter(MetricGenerateCalls) != 0 || m.GetTimerAverage(MetricGenerateLatency) != 0 {
		t.Errorf("metrics not reset")
	}
}

func TestTimerWindow(t *testing.T) {
	m := NewMetricsCollector()
	for i := 0; i < 150; i++ {
		m.RecordTimer("t", time.Duration(i)*time.Millisecond)
	}
	// Only the last 100 samples (50..149) are kept.
	if got := m.GetTimerAverage("t"); got != 99500*time.Microsecond {
		t.Errorf("average = %v, want 99.5ms", got)
	}
}

func TestFailureMetric(t *testing.T) {
	tests := map[reason]string{
		"network":       MetricFailureNetwork,
		"remote_status": MetricFailureRemoteStatus,
		"payload_shape": MetricFailurePayloadShape,
		"config":        MetricFailureOther,
	}
	for in, want := range tests {
		if got := FailureMetric(in); got != want {
			t.Errorf("FailureMetric(%q) = %q, want %q", in, got, want)
		}
	}
}
