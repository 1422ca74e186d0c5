// Package generate contains the text-generation providers that back the
// conversation cycle and the chunked summarizer.
package generate

import (
	"context"
	"time"
)

const (
	// Provider constants
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderBasic  = "basic"

	// Default settings
	DefaultTimeout        = 120 * time.Second
	DefaultOllamaEndpoint = "http://localhost:11434/api/generate"
	DefaultOllamaModel    = "codeguru"
	DefaultOpenAIEndpoint = "https://api.groq.com/openai/v1/chat/completions"
	DefaultOpenAIModel    = "llama3-8b-8192"
	DefaultTemperature    = 0.3
	DefaultMaxTokens      = 1024

	// maxErrorBody bounds how much of a failed response body is kept.
	maxErrorBody = 4096
)

// Request is the prompt envelope sent for one generate call.
type Request struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// Generator is a synchronous text-generation capability.
type Generator interface {
	// Generate submits req and returns the generated text.
	Generate(ctx context.Context, req Request) (string, error)

	// Name returns the provider name
	Name() string
}

// Config holds common configuration for providers
type Config struct {
	EndpointURL string
	APIKey      string
	ModelID     string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}
