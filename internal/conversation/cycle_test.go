package conversation

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/localrivet/chatcycle/internal/errortypes"
	"github.com/localrivet/chatcycle/internal/generate"
	"github.com/localrivet/chatcycle/internal/telemetry"
)

func echo(req generate.Request) (string, error) {
	return "ECHO:" + req.Prompt, nil
}

func TestSubmit_EchoRoundTrip(t *testing.T) {
	gen := &generate.CapturingGenerator{Respond: echo}
	cycle := NewCycle(gen, Options{Model: "codeguru"})

	got, err := cycle.Submit(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got != "ECHO:hello" {
		t.Errorf("Submit(hello) = %q, want %q", got, "ECHO:hello")
	}

	got, err = cycle.Submit(context.Background(), "world")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got != "ECHO:hello\nworld" {
		t.Errorf("Submit(world) = %q, want %q", got, "ECHO:hello\nworld")
	}

	for _, req := range gen.Requests() {
		if req.Model != "codeguru" {
			t.Errorf("model = %q, want codeguru", req.Model)
		}
		if req.Stream {
			t.Errorf("stream should be false")
		}
	}
}

func TestSubmit_PromptIsWholeTranscript(t *testing.T) {
	gen := &generate.CapturingGenerator{}
	cycle := NewCycle(gen, Options{})
	inputs := []string{"u1", "u2 with spaces", "  u3 padded  ", "u4\nmultiline"}

	for _, in := range inputs {
		if _, err := cycle.Submit(context.Background(), in); err != nil {
			t.Fatalf("Submit(%q) error = %v", in, err)
		}
	}

	prompts := gen.Prompts()
	if len(prompts) != len(inputs) {
		t.Fatalf("got %d calls, want %d", len(prompts), len(inputs))
	}
	for k := range inputs {
		want := strings.Join(inputs[:k+1], "\n")
		if prompts[k] != want {
			t.Errorf("call %d prompt = %q, want %q", k+1, prompts[k], want)
		}
	}

	if got := cycle.Transcript(); len(got) != len(inputs) || got[2] != "  u3 padded  " {
		t.Errorf("Transcript() = %q", got)
	}
}

func TestSubmit_EmptyInputRejected(t *testing.T) {
	metrics := telemetry.NewMetricsCollector()
	gen := &generate.CapturingGenerator{}
	cycle := NewCycle(gen, Options{Metrics: metrics})

	if _, err := cycle.Submit(context.Background(), "first"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	for _, in := range []string{"", " ", "\n\t  "} {
		_, err := cycle.Submit(context.Background(), in)
		if !errortypes.IsEmptyInputError(err) {
			t.Errorf("Submit(%q) error = %v, want empty input error", in, err)
		}
	}

	if cycle.Len() != 1 {
		t.Errorf("transcript length = %d, want 1", cycle.Len())
	}
	if n := len(gen.Requests()); n != 1 {
		t.Errorf("generate calls = %d, want 1", n)
	}
	if got := metrics.GetCounter(telemetry.MetricEmptyInputRejected); got != 3 {
		t.Errorf("empty input counter = %d, want 3", got)
	}
}

func TestSubmit_Failures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType errortypes.ErrorType
	}{
		{"remote status", errortypes.RemoteStatusError(500, "boom", "rejected"), errortypes.ErrorTypeRemoteStatus},
		{"payload shape", errortypes.PayloadShapeError(errors.New("no field"), "bad"), errortypes.ErrorTypePayloadShape},
		{"network", errortypes.NetworkError(errors.New("refused"), "down"), errortypes.ErrorTypeNetwork},
		{"untyped", errors.New("socket closed"), errortypes.ErrorTypeNetwork},
		{"deadline", context.DeadlineExceeded, errortypes.ErrorTypeNetwork},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			metrics := telemetry.NewMetricsCollector()
			gen := &generate.CapturingGenerator{Replies: []generate.Reply{{Err: test.err}}}
			cycle := NewCycle(gen, Options{Metrics: metrics})

			got, err := cycle.Submit(context.Background(), "question")
			if got != "" {
				t.Errorf("Submit() text = %q, want empty", got)
			}
			if errortypes.TypeOf(err) != test.wantType {
				t.Errorf("error type = %s, want %s", errortypes.TypeOf(err), test.wantType)
			}
			if len(gen.Requests()) != 1 {
				t.Errorf("expected exactly one call, no retries")
			}
			if metrics.GetCounter(telemetry.FailureMetric(test.wantType)) != 1 {
				t.Errorf("failure counter not incremented")
			}
		})
	}
}

func TestSubmit_FailedTurnStaysInTranscript(t *testing.T) {
	gen := &generate.CapturingGenerator{Replies: []generate.Reply{
		{Err: errortypes.RemoteStatusError(503, "busy", "rejected")},
	}}
	cycle := NewCycle(gen, Options{})

	cycle.Submit(context.Background(), "one")
	if _, err := cycle.Submit(context.Background(), "two"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if got := gen.Prompts()[1]; got != "one\ntwo" {
		t.Errorf("second prompt = %q, want %q", got, "one\ntwo")
	}
}

func TestSubmit_OneCallAtATime(t *testing.T) {
	gen := &generate.CapturingGenerator{}
	cycle := NewCycle(gen, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cycle.Submit(context.Background(), "turn")
		}()
	}
	wg.Wait()

	if gen.MaxInFlight() != 1 {
		t.Errorf("max in-flight generate calls = %d, want 1", gen.MaxInFlight())
	}
	if cycle.Len() != 16 {
		t.Errorf("transcript length = %d, want 16", cycle.Len())
	}
}

func TestSubmit_IndependentCycles(t *testing.T) {
	gen := &generate.CapturingGenerator{Respond: echo}
	a := NewCycle(gen, Options{})
	b := NewCycle(gen, Options{})

	a.Submit(context.Background(), "alpha")
	got, _ := b.Submit(context.Background(), "beta")

	if got != "ECHO:beta" {
		t.Errorf("second cycle saw another transcript: %q", got)
	}
}

func TestSubmit_AgainstOllamaServer(t *testing.T) {
	srv := generate.MockServer(t, generate.MockResponseConfig{
		StatusCode:   http.StatusOK,
		ResponseBody: map[string]interface{}{"response": "done", "done": true},
	})
	defer srv.Close()

	cycle := NewCycle(generate.NewOllamaProvider(generate.Config{EndpointURL: srv.URL}), Options{})
	got, err := cycle.Submit(context.Background(), "hi")
	if err != nil || got != "done" {
		t.Errorf("Submit() = %q, %v", got, err)
	}
}

func TestBuildEnvelope(t *testing.T) {
	env := BuildEnvelope([]string{"a", "b"}, "m")
	if env.Prompt != "a\nb" || env.Model != "m" || env.Stream {
		t.Errorf("BuildEnvelope() = %+v", env)
	}
	if env := BuildEnvelope(nil, ""); env.Prompt != "" {
		t.Errorf("empty transcript prompt = %q", env.Prompt)
	}
}
