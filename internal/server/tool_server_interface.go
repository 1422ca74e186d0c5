// Package server exposes the chatcycle conversation and summarization
// operations as MCP tools.
package server

import "context"

// ToolServer defines the interface for the MCP server that handles
// conversation and summarization tool calls from MCP clients.
type ToolServer interface {
	// Initialize registers the tools with the MCP server.
	Initialize() error

	// Start serves tool calls on the stdio transport until stdin closes.
	Start() error

	// Stop cancels in-flight generate calls and drops every session.
	Stop() error

	// SummarizeDocument summarizes document and archives the result when an
	// archive is configured.
	SummarizeDocument(ctx context.Context, source, document string) (SummaryResult, error)
}
