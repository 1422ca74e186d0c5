// Package tools defines the MCP tool names and the request and response
// schemas of the chatcycle service.
package tools

const (
	// ToolSubmitPrompt is the name of the submit_prompt MCP tool
	ToolSubmitPrompt = "submit_prompt"

	// ToolResetSession is the name of the reset_session MCP tool
	ToolResetSession = "reset_session"

	// ToolSummarizeDocument is the name of the summarize_document MCP tool
	ToolSummarizeDocument = "summarize_document"

	// ToolListSummaries is the name of the list_summaries MCP tool
	ToolListSummaries = "list_summaries"

	// ToolDeleteSummary is the name of the delete_summary MCP tool
	ToolDeleteSummary = "delete_summary"

	// ToolClearSummaries is the name of the clear_summaries MCP tool
	ToolClearSummaries = "clear_summaries"

	// ToolHealth is the name of the health MCP tool
	ToolHealth = "health"

	// DefaultSessionID is used when a submit_prompt request names no session
	DefaultSessionID = "default"

	// DefaultListLimit is the default number of records returned by
	// list_summaries when no limit is specified
	DefaultListLimit = 20

	// ClearConfirmation must be sent with clear_summaries
	ClearConfirmation = "confirm"

	StatusSuccess = "success"
	StatusError   = "error"
)

// ToolError describes a failed tool call. Code is stable across releases;
// Details carries structured context such as the failed chunk index or the
// remote status code.
type ToolError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SubmitPromptRequest defines the input schema for submit_prompt tool
type SubmitPromptRequest struct {
	// SessionID selects the conversation. Each session keeps its own
	// transcript. Empty selects DefaultSessionID.
	SessionID string `json:"session_id,omitempty"`

	// Prompt is the user's next turn
	Prompt string `json:"prompt"`
}

// SubmitPromptResponse defines the output schema for submit_prompt tool
type SubmitPromptResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	SessionID string `json:"session_id"`

	// Reply is the generated text
	Reply string `json:"reply,omitempty"`

	// Turns is the number of user turns in the session transcript
	Turns int `json:"turns"`

	Error *ToolError `json:"error,omitempty"`
}

// ResetSessionRequest defines the input schema for reset_session tool
type ResetSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// ResetSessionResponse defines the output schema for reset_session tool
type ResetSessionResponse struct {
	Status string `json:"status"`

	// Existed reports whether the session had any state to discard
	Existed bool `json:"existed"`

	Error *ToolError `json:"error,omitempty"`
}

// SummarizeDocumentRequest defines the input schema for summarize_document tool
type SummarizeDocumentRequest struct {
	// Document is the text to summarize
	Document string `json:"document"`

	// Source is an optional label stored with the archived summary
	Source string `json:"source,omitempty"`
}

// SummarizeDocumentResponse defines the output schema for summarize_document tool
type SummarizeDocumentResponse struct {
	Status string `json:"status"`

	Summary string `json:"summary,omitempty"`

	// ChunkCount is the number of generate calls used
	ChunkCount int `json:"chunk_count,omitempty"`

	// ID is the archive record id, empty when archiving is disabled
	ID string `json:"id,omitempty"`

	Error *ToolError `json:"error,omitempty"`
}

// ListSummariesRequest defines the input schema for list_summaries tool
type ListSummariesRequest struct {
	// Limit is the maximum number of records to return
	// If not specified, DefaultListLimit will be used
	Limit int `json:"limit,omitempty"`
}

// SummaryEntry is one archived summary
type SummaryEntry struct {
	ID           string `json:"id"`
	Source       string `json:"source,omitempty"`
	DocumentHash string `json:"document_hash"`
	Summary      string `json:"summary"`
	ChunkCount   int    `json:"chunk_count"`
	CreatedAt    string `json:"created_at"`
}

// ListSummariesResponse defines the output schema for list_summaries tool
type ListSummariesResponse struct {
	Status    string         `json:"status"`
	Summaries []SummaryEntry `json:"summaries"`
	Error     *ToolError     `json:"error,omitempty"`
}

// DeleteSummaryRequest defines the input schema for delete_summary tool
type DeleteSummaryRequest struct {
	ID string `json:"id"`
}

// DeleteSummaryResponse defines the output schema for delete_summary tool
type DeleteSummaryResponse struct {
	Status string     `json:"status"`
	Error  *ToolError `json:"error,omitempty"`
}

// ClearSummariesRequest defines the input schema for clear_summaries tool
type ClearSummariesRequest struct {
	// Confirmation must be set to ClearConfirmation
	Confirmation string `json:"confirmation"`
}

// ClearSummariesResponse defines the output schema for clear_summaries tool
type ClearSummariesResponse struct {
	Status       string     `json:"status"`
	DeletedCount int        `json:"deleted_count"`
	Error        *ToolError `json:"error,omitempty"`
}

// HealthRequest defines the input schema for health tool
type HealthRequest struct{}

// HealthResponse defines the output schema for health tool
type HealthResponse struct {
	Status string `json:"status"`

	// Health is "healthy", "degraded" or "unhealthy"
	Health         string             `json:"health,omitempty"`
	Provider       string             `json:"provider,omitempty"`
	ProviderError  string             `json:"provider_error,omitempty"`
	SuccessRate    float64            `json:"success_rate"`
	TotalRequests  int64              `json:"total_requests"`
	ActiveSessions int64              `json:"active_sessions"`
	Failures       map[string]int64   `json:"failures,omitempty"`
	ChunkStats     map[string]int64   `json:"chunk_stats,omitempty"`
	ResponseTimes  map[string]float64 `json:"response_times_ms,omitempty"`

	Error *ToolError `json:"error,omitempty"`
}
