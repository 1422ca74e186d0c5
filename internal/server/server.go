package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/localrivet/gomcp/server"

	"github.com/localrivet/chatcycle/internal/archive"
	"github.com/localrivet/chatcycle/internal/conversation"
	"github.com/localrivet/chatcycle/internal/errortypes"
	"github.com/localrivet/chatcycle/internal/generate"
	"github.com/localrivet/chatcycle/internal/summarizer"
	"github.com/localrivet/chatcycle/internal/telemetry"
	"github.com/localrivet/chatcycle/internal/tools"
)

// Common server error types
var (
	ErrServerNotInitialized = errors.New("server not initialized")
	ErrMissingDependencies  = errors.New("one or more required dependencies are nil")
)

// Options holds the optional settings of an MCPToolServer.
type Options struct {
	// Model is sent with every conversation request.
	Model string

	// Archive records completed summaries. Nil disables archiving and the
	// archive tools report a config error.
	Archive archive.Store

	Logger  *slog.Logger
	Metrics *telemetry.MetricsCollector
}

// SummaryResult is the outcome of SummarizeDocument.
type SummaryResult struct {
	Summary    string
	ChunkCount int

	// Record is the archived entry, nil when archiving is disabled.
	Record *archive.Record
}

// MCPToolServer implements the ToolServer interface.
type MCPToolServer struct {
	generator  generate.Generator
	summarizer *summarizer.ChunkedSummarizer
	archive    archive.Store
	model      string
	logger     *slog.Logger
	metrics    *telemetry.MetricsCollector
	mcpServer  server.Server

	// ctx is cancelled by Stop and bounds every generate call.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*conversation.Cycle
}

// NewToolServer creates a new MCPToolServer instance.
func NewToolServer(generator generate.Generator, s *summarizer.ChunkedSummarizer, opts Options) *MCPToolServer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil && s != nil {
		metrics = s.GetMetrics()
	}
	if metrics == nil {
		metrics = telemetry.NewMetricsCollector()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &MCPToolServer{
		generator:  generator,
		summarizer: s,
		archive:    opts.Archive,
		model:      opts.Model,
		logger:     logger,
		metrics:    metrics,
		ctx:        ctx,
		cancel:     cancel,
		sessions:   make(map[string]*conversation.Cycle),
	}
}

// Initialize initializes the server with dependencies and configurations.
func (s *MCPToolServer) Initialize() error {
	s.logger.Info("Initializing MCP Tool Server")

	if s.generator == nil || s.summarizer == nil {
		return errortypes.ConfigError(ErrMissingDependencies, "server initialization failed")
	}

	srv := server.NewServer("chatcycle")

	srv = srv.Tool(tools.ToolSubmitPrompt, "Send the next user turn of a conversation and get the model's reply",
		s.handleSubmitPrompt)

	srv = srv.Tool(tools.ToolResetSession, "Discard the transcript of a conversation session",
		s.handleResetSession)

	srv = srv.Tool(tools.ToolSummarizeDocument, "Summarize a document of any length",
		s.handleSummarizeDocument)

	srv = srv.Tool(tools.ToolListSummaries, "List archived summaries, newest first",
		s.handleListSummaries)

	srv = srv.Tool(tools.ToolDeleteSummary, "Delete an archived summary by ID",
		s.handleDeleteSummary)

	srv = srv.Tool(tools.ToolClearSummaries, "Delete every archived summary",
		s.handleClearSummaries)

	srv = srv.Tool(tools.ToolHealth, "Probe the text-generation endpoint and report call statistics",
		s.handleHealth)

	s.mcpServer = srv
	s.logger.Info("MCP Tool Server initialized successfully", "tool_count", 7)
	return nil
}

// Start starts the MCP server on the stdio transport.
func (s *MCPToolServer) Start() error {
	if s.mcpServer == nil {
		return errortypes.ConfigError(ErrServerNotInitialized, "cannot start server")
	}

	s.logger.Info("Starting MCP Tool Server")
	return s.mcpServer.AsStdio().Run()
}

// Stop cancels outstanding calls and drops every session. The stdio
// transport itself exits when stdin is closed.
func (s *MCPToolServer) Stop() error {
	s.logger.Info("Stopping MCP Tool Server")
	s.cancel()

	s.mu.Lock()
	s.sessions = make(map[string]*conversation.Cycle)
	s.mu.Unlock()
	s.metrics.SetGauge(telemetry.MetricActiveSessions, 0)
	return nil
}

// session returns the cycle for id, creating it on first use.
func (s *MCPToolServer) session(id string) *conversation.Cycle {
	s.mu.Lock()
	defer s.mu.Unlock()

	cycle, ok := s.sessions[id]
	if !ok {
		cycle = conversation.NewCycle(s.generator, conversation.Options{
			Model:   s.model,
			Logger:  s.logger.With("session_id", id),
			Metrics: s.metrics,
		})
		s.sessions[id] = cycle
		s.metrics.SetGauge(telemetry.MetricActiveSessions, float64(len(s.sessions)))
	}
	return cycle
}

// SessionCount returns the number of live sessions.
func (s *MCPToolServer) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func sessionID(id string) string {
	if id = strings.TrimSpace(id); id == "" {
		return tools.DefaultSessionID
	}
	return id
}

// handleSubmitPrompt handles the submit_prompt MCP tool call.
func (s *MCPToolServer) handleSubmitPrompt(ctx *server.Context, req tools.SubmitPromptRequest) (tools.SubmitPromptResponse, error) {
	id := sessionID(req.SessionID)
	s.logger.Info("Processing submit_prompt request", "session_id", id, "prompt_length", len(req.Prompt))

	response := tools.SubmitPromptResponse{
		Status:    tools.StatusSuccess,
		SessionID: id,
	}

	cycle := s.session(id)
	reply, err := cycle.Submit(s.ctx, req.Prompt)
	response.Turns = cycle.Len()
	if err != nil {
		errortypes.LogError(s.logger, err)
		response.Status = tools.StatusError
		response.Error = errorToResponse(err)
		return response, nil
	}

	response.Reply = reply
	return response, nil
}

// handleResetSession handles the reset_session MCP tool call.
func (s *MCPToolServer) handleResetSession(ctx *server.Context, req tools.ResetSessionRequest) (tools.ResetSessionResponse, error) {
	id := sessionID(req.SessionID)
	s.logger.Info("Processing reset_session request", "session_id", id)

	s.mu.Lock()
	_, existed := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetGauge(telemetry.MetricActiveSessions, float64(count))

	return tools.ResetSessionResponse{Status: tools.StatusSuccess, Existed: existed}, nil
}

// SummarizeDocument summarizes document and archives the result when an
// archive is configured. A failed archive write is logged and does not fail
// the summary.
func (s *MCPToolServer) SummarizeDocument(ctx context.Context, source, document string) (SummaryResult, error) {
	if s.summarizer == nil {
		return SummaryResult{}, errortypes.ConfigError(ErrMissingDependencies, "summarizer unavailable")
	}

	summary, err := s.summarizer.Summarize(ctx, document)
	if err != nil {
		return SummaryResult{}, err
	}

	result := SummaryResult{
		Summary:    summary,
		ChunkCount: s.summarizer.ChunkCount(document),
	}
	if s.archive != nil {
		rec, err := s.archive.Store(source, document, summary, result.ChunkCount)
		if err != nil {
			errortypes.LogError(s.logger, err)
		} else {
			result.Record = rec
		}
	}
	return result, nil
}

// handleSummarizeDocument handles the summarize_document MCP tool call.
func (s *MCPToolServer) handleSummarizeDocument(ctx *server.Context, req tools.SummarizeDocumentRequest) (tools.SummarizeDocumentResponse, error) {
	s.logger.Info("Processing summarize_document request", "source", req.Source, "document_length", len(req.Document))

	response := tools.SummarizeDocumentResponse{
		Status: tools.StatusSuccess,
	}

	result, err := s.SummarizeDocument(s.ctx, req.Source, req.Document)
	if err != nil {
		errortypes.LogError(s.logger, err)
		response.Status = tools.StatusError
		response.Error = errorToResponse(err)
		return response, nil
	}

	response.Summary = result.Summary
	response.ChunkCount = result.ChunkCount
	if result.Record != nil {
		response.ID = result.Record.ID
	}
	s.logger.Info("Successfully summarized document", "chunks", result.ChunkCount, "id", response.ID)
	return response, nil
}

func (s *MCPToolServer) requireArchive() error {
	if s.archive == nil {
		return errortypes.ConfigError(errors.New("archive is disabled"), "archive unavailable")
	}
	return nil
}

// handleListSummaries handles the list_summaries MCP tool call.
func (s *MCPToolServer) handleListSummaries(ctx *server.Context, req tools.ListSummariesRequest) (tools.ListSummariesResponse, error) {
	s.logger.Info("Processing list_summaries request", "limit", req.Limit)

	response := tools.ListSummariesResponse{
		Status:    tools.StatusSuccess,
		Summaries: []tools.SummaryEntry{},
	}

	if err := s.requireArchive(); err != nil {
		response.Status = tools.StatusError
		response.Error = errorToResponse(err)
		return response, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = tools.DefaultListLimit
	}

	records, err := s.archive.List(limit)
	if err != nil {
		errortypes.LogError(s.logger, err)
		response.Status = tools.StatusError
		response.Error = errorToResponse(err)
		return response, nil
	}

	for _, rec := range records {
		response.Summaries = append(response.Summaries, tools.SummaryEntry{
			ID:           rec.ID,
			Source:       rec.Source,
			DocumentHash: rec.DocumentHash,
			Summary:      rec.Summary,
			ChunkCount:   rec.ChunkCount,
			CreatedAt:    rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return response, nil
}

// handleDeleteSummary handles the delete_summary MCP tool call.
func (s *MCPToolServer) handleDeleteSummary(ctx *server.Context, req tools.DeleteSummaryRequest) (tools.DeleteSummaryResponse, error) {
	s.logger.Info("Processing delete_summary request", "id", req.ID)

	response := tools.DeleteSummaryResponse{
		Status: tools.StatusSuccess,
	}

	err := s.requireArchive()
	if err == nil && strings.TrimSpace(req.ID) == "" {
		err = errortypes.ValidationError(errors.New("id cannot be empty"), "invalid delete_summary request")
	}
	if err == nil {
		err = s.archive.Delete(req.ID)
	}
	if err != nil {
		errortypes.LogError(s.logger, err)
		response.Status = tools.StatusError
		response.Error = errorToResponse(err)
		return response, nil
	}

	s.logger.Info("Successfully deleted summary", "id", req.ID)
	return response, nil
}

// handleClearSummaries handles the clear_summaries MCP tool call.
func (s *MCPToolServer) handleClearSummaries(ctx *server.Context, req tools.ClearSummariesRequest) (tools.ClearSummariesResponse, error) {
	s.logger.Info("Processing clear_summaries request")

	response := tools.ClearSummariesResponse{
		Status: tools.StatusSuccess,
	}

	if err := s.requireArchive(); err != nil {
		response.Status = tools.StatusError
		response.Error = errorToResponse(err)
		return response, nil
	}

	if req.Confirmation != tools.ClearConfirmation {
		s.logger.Warn("Clear summaries operation rejected: missing confirmation")
		response.Status = tools.StatusError
		response.Error = errorToResponse(errortypes.ValidationError(
			errors.New("confirmation required"),
			"set confirmation to 'confirm' to clear all summaries"))
		return response, nil
	}

	count, err := s.archive.Clear()
	if err != nil {
		errortypes.LogError(s.logger, err)
		response.Status = tools.StatusError
		response.Error = errorToResponse(err)
		return response, nil
	}

	s.logger.Info("Successfully cleared summaries", "count", count)
	response.DeletedCount = count
	return response, nil
}

// handleHealth handles the health MCP tool call.
func (s *MCPToolServer) handleHealth(ctx *server.Context, req tools.HealthRequest) (tools.HealthResponse, error) {
	s.logger.Debug("Processing health request")

	report, err := summarizer.CreateHealthReport(s.ctx, s.summarizer)
	if err != nil {
		return tools.HealthResponse{Status: tools.StatusError, Error: errorToResponse(err)}, nil
	}

	return tools.HealthResponse{
		Status:         tools.StatusSuccess,
		Health:         string(report.Status),
		Provider:       report.Provider,
		ProviderError:  report.ProviderError,
		SuccessRate:    report.SuccessRate,
		TotalRequests:  report.TotalRequests,
		ActiveSessions: report.ActiveSessions,
		Failures:       report.Failures,
		ChunkStats:     report.ChunkStats,
		ResponseTimes:  report.ResponseTimes,
	}, nil
}
