package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/localrivet/chatcycle/internal/errortypes"
	"github.com/localrivet/chatcycle/internal/generate"
	"github.com/localrivet/chatcycle/internal/telemetry"
)

// bareTemplate sends chunks to the generator unchanged.
const bareTemplate = "{text}"

type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
	err   error
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, d)
	return r.err
}

func newTestSummarizer(t *testing.T, gen generate.Generator, config ChunkedSummarizerConfig) (*ChunkedSummarizer, *sleepRecorder) {
	t.Helper()
	if config.PromptTemplate == "" {
		config.PromptTemplate = bareTemplate
	}
	s, err := NewChunkedSummarizer(gen, &config)
	if err != nil {
		t.Fatalf("NewChunkedSummarizer() error = %v", err)
	}
	rec := &sleepRecorder{}
	s.sleep = rec.sleep
	return s, rec
}

func TestSummarize_DirectPath(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"short", 10},
		{"exactly threshold", 2000},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			gen := &generate.CapturingGenerator{Respond: func(req generate.Request) (string, error) {
				return "summary", nil
			}}
			s, rec := newTestSummarizer(t, gen, ChunkedSummarizerConfig{})

			doc := strings.Repeat("a", test.length)
			got, err := s.Summarize(context.Background(), doc)
			if err != nil {
				t.Fatalf("Summarize() error = %v", err)
			}

			if got != "summary" {
				t.Errorf("Summarize() = %q", got)
			}
			if n := len(gen.Requests()); n != 1 {
				t.Errorf("generate calls = %d, want 1", n)
			}
			if gen.Prompts()[0] != doc {
				t.Errorf("direct path should send the whole document")
			}
			if len(rec.calls) != 0 {
				t.Errorf("direct path should not sleep")
			}
		})
	}
}

func TestSummarize_ChunkCounts(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		chunkSize int
		threshold int
		wantLens  []int
	}{
		{"one over threshold", 2001, 2000, 2000, []int{2000, 1}},
		{"exact multiple", 6000, 2000, 2000, []int{2000, 2000, 2000}},
		{"remainder", 4500, 2000, 2000, []int{2000, 2000, 500}},
		{"threshold above chunk size", 25, 10, 20, []int{10, 10, 5}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			gen := &generate.CapturingGenerator{}
			s, rec := newTestSummarizer(t, gen, ChunkedSummarizerConfig{
				ChunkSize: test.chunkSize,
				Threshold: test.threshold,
			})

			doc := strings.Repeat("x", test.length)
			if _, err := s.Summarize(context.Background(), doc); err != nil {
				t.Fatalf("Summarize() error = %v", err)
			}

			prompts := gen.Prompts()
			want := (test.length + test.chunkSize - 1) / test.chunkSize
			if len(prompts) != want || len(prompts) != len(test.wantLens) {
				t.Fatalf("generate calls = %d, want %d", len(prompts), want)
			}
			for i, p := range prompts {
				if len(p) != test.wantLens[i] {
					t.Errorf("chunk %d length = %d, want %d", i+1, len(p), test.wantLens[i])
				}
			}
			if len(rec.calls) != want-1 {
				t.Errorf("sleeps = %d, want %d", len(rec.calls), want-1)
			}
			for _, d := range rec.calls {
				if d != DefaultChunkDelay {
					t.Errorf("delay = %v, want %v", d, DefaultChunkDelay)
				}
			}
		})
	}
}

func TestSummarize_OrderPreserved(t *testing.T) {
	gen := &generate.CapturingGenerator{Respond: func(req generate.Request) (string, error) {
		return "S(" + req.Prompt + ")", nil
	}}
	s, _ := newTestSummarizer(t, gen, ChunkedSummarizerConfig{ChunkSize: 3, Threshold: 3})

	got, err := s.Summarize(context.Background(), "aaabbbcccd")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	want := "S(aaa)\n\nS(bbb)\n\nS(ccc)\n\nS(d)"
	if got != want {
		t.Errorf("Summarize() = %q, want %q", got, want)
	}
	if strings.Join(gen.Prompts(), "") != "aaabbbcccd" {
		t.Errorf("chunks do not reassemble the document: %q", gen.Prompts())
	}
}

func TestSummarize_ChunkFailure(t *testing.T) {
	metrics := telemetry.NewMetricsCollector()
	gen := &generate.CapturingGenerator{Replies: []generate.Reply{
		{Text: "first"},
		{Err: errortypes.RemoteStatusError(500, "internal", "rejected")},
		{Text: "third"},
	}}
	s, _ := newTestSummarizer(t, gen, ChunkedSummarizerConfig{ChunkSize: 4, Threshold: 4, Metrics: metrics})

	got, err := s.Summarize(context.Background(), "aaaabbbbcccc")

	if got != "" {
		t.Errorf("partial output returned: %q", got)
	}
	if !errortypes.IsChunkFailureError(err) {
		t.Fatalf("expected chunk failure, got %v", err)
	}
	if idx, _ := errortypes.ChunkIndex(err); idx != 2 {
		t.Errorf("chunk index = %d, want 2", idx)
	}
	if errortypes.CauseType(err) != errortypes.ErrorTypeRemoteStatus {
		t.Errorf("cause = %s, want remote_status", errortypes.CauseType(err))
	}
	if status, _ := errortypes.StatusCode(err); status != 500 {
		t.Errorf("status = %d, want 500", status)
	}
	if n := len(gen.Requests()); n != 2 {
		t.Errorf("generate calls = %d, want 2 (stop at the failing chunk)", n)
	}
	if metrics.GetCounter(telemetry.MetricChunkFailures) != 1 {
		t.Errorf("chunk failure not counted")
	}
}

func TestSummarize_DirectFailureKeepsReason(t *testing.T) {
	gen := &generate.CapturingGenerator{Replies: []generate.Reply{
		{Err: errortypes.PayloadShapeError(errors.New("no response field"), "bad payload")},
	}}
	s, _ := newTestSummarizer(t, gen, ChunkedSummarizerConfig{})

	_, err := s.Summarize(context.Background(), "short document")
	if !errortypes.IsPayloadShapeError(err) {
		t.Errorf("expected payload shape error, got %v", err)
	}
}

func TestSummarize_EmptyDocument(t *testing.T) {
	gen := &generate.CapturingGenerator{}
	s, _ := newTestSummarizer(t, gen, ChunkedSummarizerConfig{})

	for _, doc := range []string{"", "   ", "\n\n\t"} {
		_, err := s.Summarize(context.Background(), doc)
		if !errortypes.IsEmptyInputError(err) {
			t.Errorf("Summarize(%q) error = %v, want empty input", doc, err)
		}
	}
	if len(gen.Requests()) != 0 {
		t.Errorf("no generate call expected for empty documents")
	}
}

func TestSummarize_Idempotent(t *testing.T) {
	gen := &generate.CapturingGenerator{Respond: func(req generate.Request) (string, error) {
		return fmt.Sprintf("len=%d", len(req.Prompt)), nil
	}}
	s, _ := newTestSummarizer(t, gen, ChunkedSummarizerConfig{ChunkSize: 7, Threshold: 7})

	doc := strings.Repeat("lorem ipsum ", 5)
	first, err1 := s.Summarize(context.Background(), doc)
	second, err2 := s.Summarize(context.Background(), doc)

	if err1 != nil || err2 != nil {
		t.Fatalf("errors: %v, %v", err1, err2)
	}
	if first != second {
		t.Errorf("outputs differ: %q vs %q", first, second)
	}
}

func TestSummarize_TemplateApplied(t *testing.T) {
	gen := &generate.CapturingGenerator{}
	s, err := NewChunkedSummarizer(gen, &ChunkedSummarizerConfig{Model: "llama3-8b-8192"})
	if err != nil {
		t.Fatalf("NewChunkedSummarizer() error = %v", err)
	}

	if _, err := s.Summarize(context.Background(), "Go is a language."); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	req := gen.Requests()[0]
	if !strings.Contains(req.Prompt, "Content:Go is a language.") || !strings.Contains(req.Prompt, "about 300 words") {
		t.Errorf("prompt = %q", req.Prompt)
	}
	if req.Model != "llama3-8b-8192" {
		t.Errorf("model = %q", req.Model)
	}
}

func TestSummarize_MultibyteChunks(t *testing.T) {
	gen := &generate.CapturingGenerator{}
	s, _ := newTestSummarizer(t, gen, ChunkedSummarizerConfig{ChunkSize: 2, Threshold: 2})

	if _, err := s.Summarize(context.Background(), "çğıöşü"); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	want := []string{"çğ", "ıö", "şü"}
	got := gen.Prompts()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("chunks = %q, want %q", got, want)
	}
}

func TestSummarize_Progress(t *testing.T) {
	var seen []string
	gen := &generate.CapturingGenerator{}
	s, _ := newTestSummarizer(t, gen, ChunkedSummarizerConfig{
		ChunkSize: 2,
		Threshold: 2,
		Progress:  func(done, total int) { seen = append(seen, fmt.Sprintf("%d/%d", done, total)) },
	})

	s.Summarize(context.Background(), "abcde")

	if strings.Join(seen, ",") != "1/3,2/3,3/3" {
		t.Errorf("progress = %v", seen)
	}
}

func TestSummarize_DelayInterrupted(t *testing.T) {
	gen := &generate.CapturingGenerator{}
	s, rec := newTestSummarizer(t, gen, ChunkedSummarizerConfig{ChunkSize: 2, Threshold: 2})
	rec.err = context.Canceled

	_, err := s.Summarize(context.Background(), "abcd")

	if idx, _ := errortypes.ChunkIndex(err); idx != 2 {
		t.Errorf("chunk index = %d, want 2 (%v)", idx, err)
	}
	if len(gen.Requests()) != 1 {
		t.Errorf("generate calls = %d, want 1", len(gen.Requests()))
	}
}

func TestSummarize_NoConcurrentCalls(t *testing.T) {
	gen := &generate.CapturingGenerator{}
	s, _ := newTestSummarizer(t, gen, ChunkedSummarizerConfig{ChunkSize: 5, Threshold: 5})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Summarize(context.Background(), strings.Repeat("z", 23))
		}()
	}
	wg.Wait()

	if gen.MaxInFlight() != 1 {
		t.Errorf("max in-flight = %d, want 1", gen.MaxInFlight())
	}
}

func TestNewChunkedSummarizer_Validation(t *testing.T) {
	gen := &generate.CapturingGenerator{}

	tests := []struct {
		name   string
		config ChunkedSummarizerConfig
	}{
		{"threshold below chunk size", ChunkedSummarizerConfig{ChunkSize: 3000, Threshold: 2000}},
		{"template without placeholder", ChunkedSummarizerConfig{PromptTemplate: "Summarize this"}},
		{"template with two placeholders", ChunkedSummarizerConfig{PromptTemplate: "{text} and {text}"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := test.config
			if _, err := NewChunkedSummarizer(gen, &config); !errortypes.IsValidationError(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	if _, err := NewChunkedSummarizer(nil, nil); err == nil {
		t.Errorf("expected error for nil generator")
	}
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepCtx() = %v, want context.Canceled", err)
	}
	if err := sleepCtx(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepCtx() = %v", err)
	}
}

func TestChunkCount(t *testing.T) {
	s, _ := newTestSummarizer(t, &generate.CapturingGenerator{}, ChunkedSummarizerConfig{ChunkSize: 10, Threshold: 20})

	tests := []struct {
		document string
		want     int
	}{
		{"   ", 0},
		{strings.Repeat("a", 20), 1},
		{strings.Repeat("a", 21), 3},
		{strings.Repeat("a", 30), 3},
		{strings.Repeat("a", 31), 4},
	}
	for _, test := range tests {
		if got := s.ChunkCount(test.document); got != test.want {
			t.Errorf("ChunkCount(len %d) = %d, want %d", len(test.document), got, test.want)
		}
		if test.want > 1 {
			if n := len(SplitChunks(test.document, 10)); n != test.want {
				t.Errorf("SplitChunks disagrees with ChunkCount: %d vs %d", n, test.want)
			}
		}
	}
}
