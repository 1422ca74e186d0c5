package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/localrivet/chatcycle/internal/errortypes"
)

// OllamaProvider implements Generator for an Ollama style /api/generate
// endpoint.
type OllamaProvider struct {
	Config
	httpClient *http.Client
}

type ollamaResponse struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// NewOllamaProvider creates a new instance of the Ollama provider
func NewOllamaProvider(config Config) *OllamaProvider {
	if config.EndpointURL == "" {
		config.EndpointURL = DefaultOllamaEndpoint
	}
	if config.ModelID == "" {
		config.ModelID = DefaultOllamaModel
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &OllamaProvider{
		Config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return ProviderOllama
}

// Generate posts the envelope and extracts the response field.
func (p *OllamaProvider) Generate(ctx context.Context, req Request) (string, error) {
	if req.Model == "" {
		req.Model = p.ModelID
	}
	// Streaming replies are newline-delimited and are not parsed here.
	req.Stream = false

	respBody, err := postJSON(ctx, p.httpClient, p.EndpointURL, nil, req)
	if err != nil {
		return "", err
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", errortypes.PayloadShapeError(err, "error unmarshaling response").
			WithField(errortypes.FieldBody, string(respBody))
	}

	if parsed.Response == nil {
		return "", errortypes.PayloadShapeError(
			fmt.Errorf("%w: response", errortypes.ErrMissingField), "invalid ollama response").
			WithField(errortypes.FieldBody, string(respBody))
	}

	return *parsed.Response, nil
}
