package generate

import (
	"context"
	"strings"
)

// DefaultBasicMaxLength bounds the output of the basic provider.
const DefaultBasicMaxLength = 500

// BasicProvider is an offline Generator. It answers with the leading
// sentences of the prompt, which is enough to exercise the service without a
// model server.
type BasicProvider struct {
	maxLength int
}

// NewBasicProvider creates a new BasicProvider instance.
func NewBasicProvider(maxLength int) *BasicProvider {
	if maxLength <= 0 {
		maxLength = DefaultBasicMaxLength
	}
	return &BasicProvider{
		maxLength: maxLength,
	}
}

// Name returns the provider name
func (p *BasicProvider) Name() string {
	return ProviderBasic
}

// Generate truncates the prompt to the configured length, preferring to end
// at a sentence boundary and then at a word boundary.
func (p *BasicProvider) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return truncateAtBoundary(strings.TrimSpace(req.Prompt), p.maxLength), nil
}

func truncateAtBoundary(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}

	const ellipsis = "..."
	truncated := text[:maxLen]

	lastSentenceBoundary := max(
		strings.LastIndex(truncated, "."),
		strings.LastIndex(truncated, "?"),
		strings.LastIndex(truncated, "!"),
	)
	if lastSentenceBoundary > 0 {
		return text[:lastSentenceBoundary+1]
	}

	truncateLen := maxLen - len(ellipsis)
	if truncateLen < 0 {
		truncateLen = 0
	}
	truncated = text[:truncateLen]

	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		return text[:lastSpace] + ellipsis
	}

	return truncated + ellipsis
}
