package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockResponseConfig holds configuration for mock API responses
type MockResponseConfig struct {
	StatusCode   int
	ResponseBody interface{}
	Headers      map[string]string
}

// MockServer creates a test server that returns the configured response
func MockServer(t *testing.T, config MockResponseConfig) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range config.Headers {
			w.Header().Set(k, v)
		}

		if _, exists := config.Headers["Content-Type"]; !exists {
			w.Header().Set("Content-Type", "application/json")
		}

		w.WriteHeader(config.StatusCode)

		if config.ResponseBody != nil {
			var respBytes []byte
			var err error

			switch body := config.ResponseBody.(type) {
			case string:
				respBytes = []byte(body)
			case []byte:
				respBytes = body
			default:
				respBytes, err = json.Marshal(body)
				if err != nil {
					t.Errorf("Failed to marshal mock response: %v", err)
					return
				}
			}

			if _, err := w.Write(respBytes); err != nil {
				t.Errorf("Failed to write response body: %v", err)
			}
		}
	}))
}

// Reply is one scripted answer of a CapturingGenerator.
type Reply struct {
	Text string
	Err  error
}

// CapturingGenerator records every request it receives. Replies are served
// in order; once they run out, Respond is used, and without Respond the
// prompt is echoed back.
type CapturingGenerator struct {
	Replies []Reply
	Respond func(req Request) (string, error)

	mu          sync.Mutex
	requests    []Request
	inFlight    int
	maxInFlight int
}

// Name returns the provider name
func (g *CapturingGenerator) Name() string {
	return "capturing"
}

// Generate captures req and returns the next scripted reply.
func (g *CapturingGenerator) Generate(_ context.Context, req Request) (string, error) {
	g.mu.Lock()
	g.inFlight++
	if g.inFlight > g.maxInFlight {
		g.maxInFlight = g.inFlight
	}
	idx := len(g.requests)
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.inFlight--
		g.mu.Unlock()
	}()

	if idx < len(g.Replies) {
		return g.Replies[idx].Text, g.Replies[idx].Err
	}
	if g.Respond != nil {
		return g.Respond(req)
	}
	return req.Prompt, nil
}

// Requests returns a copy of the captured requests.
func (g *CapturingGenerator) Requests() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Request(nil), g.requests...)
}

// Prompts returns the prompts of the captured requests.
func (g *CapturingGenerator) Prompts() []string {
	reqs := g.Requests()
	prompts := make([]string, len(reqs))
	for i, r := range reqs {
		prompts[i] = r.Prompt
	}
	return prompts
}

// MaxInFlight returns the highest number of concurrent Generate calls seen.
func (g *CapturingGenerator) MaxInFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxInFlight
}
