// Package summarizer produces one summary for a document of any size by
// summarizing it piecewise through a text-generation provider.
package summarizer

import (
	"context"
	"time"
)

const (
	// DefaultChunkSize is the number of characters per chunk.
	DefaultChunkSize = 2000

	// DefaultThreshold is the largest document summarized with a single call.
	DefaultThreshold = 2000

	// DefaultChunkDelay separates consecutive chunk submissions.
	DefaultChunkDelay = time.Second

	// PartialSeparator joins the partial summaries.
	PartialSeparator = "\n\n"
)

// Summarizer defines the interface for summarizing text content.
type Summarizer interface {
	// Summarize takes a document and returns a condensed summary.
	Summarize(ctx context.Context, document string) (string, error)
}
