package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/localrivet/chatcycle/internal/errortypes"
)

// OpenAIProvider implements Generator for OpenAI compatible chat completion
// endpoints such as Groq.
type OpenAIProvider struct {
	Config
	httpClient *http.Client
}

// OpenAIMessage represents a message in OpenAI's chat format
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIRequest represents a request to OpenAI's API
type OpenAIRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
	Stream      bool            `json:"stream"`
}

// OpenAIResponse represents a response from OpenAI's API
type OpenAIResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIProvider creates a new instance of the OpenAI provider
func NewOpenAIProvider(config Config) *OpenAIProvider {
	if config.EndpointURL == "" {
		config.EndpointURL = DefaultOpenAIEndpoint
	}
	if config.ModelID == "" {
		config.ModelID = DefaultOpenAIModel
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	return &OpenAIProvider{
		Config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

// Generate sends the prompt as a single user message.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	if p.APIKey == "" {
		return "", errortypes.ConfigError(errors.New("api key not provided"), "openai provider misconfigured")
	}

	model := req.Model
	if model == "" {
		model = p.ModelID
	}

	reqBody := OpenAIRequest{
		Model: model,
		Messages: []OpenAIMessage{
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	}

	headers := map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", p.APIKey),
	}

	respBody, err := postJSON(ctx, p.httpClient, p.EndpointURL, headers, reqBody)
	if err != nil {
		return "", err
	}

	var openaiResponse OpenAIResponse
	if err := json.Unmarshal(respBody, &openaiResponse); err != nil {
		return "", errortypes.PayloadShapeError(err, "error unmarshaling response").
			WithField(errortypes.FieldBody, string(respBody))
	}

	// Some compatible servers report errors with a 200 status.
	if openaiResponse.Error != nil {
		return "", errortypes.PayloadShapeError(
			fmt.Errorf("%s: %s", openaiResponse.Error.Type, openaiResponse.Error.Message),
			"openai api error").
			WithField(errortypes.FieldBody, string(respBody))
	}

	if len(openaiResponse.Choices) == 0 || openaiResponse.Choices[0].Message.Content == nil {
		return "", errortypes.PayloadShapeError(
			fmt.Errorf("%w: choices[0].message.content", errortypes.ErrMissingField),
			"invalid openai response").
			WithField(errortypes.FieldBody, string(respBody))
	}

	return *openaiResponse.Choices[0].Message.Content, nil
}
