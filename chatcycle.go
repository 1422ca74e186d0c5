// Package chatcycle wires the conversation cycle, the chunked summarizer and
// the summary archive into one service that can run as an MCP server or be
// embedded in another program.
package chatcycle

import (
	"context"
	"errors"
	"log/slog"

	"github.com/localrivet/chatcycle/internal/archive"
	"github.com/localrivet/chatcycle/internal/config"
	"github.com/localrivet/chatcycle/internal/conversation"
	"github.com/localrivet/chatcycle/internal/errortypes"
	"github.com/localrivet/chatcycle/internal/generate"
	"github.com/localrivet/chatcycle/internal/server"
	"github.com/localrivet/chatcycle/internal/summarizer"
	"github.com/localrivet/chatcycle/internal/telemetry"
	"github.com/localrivet/chatcycle/internal/util"
)

var errArchiveDisabled = errors.New("archive is disabled")

// Config represents the configuration for the chatcycle service.
type Config = config.Config

// Conversation is one chat session with its own transcript.
type Conversation = conversation.Cycle

// SummaryResult is the outcome of Service.Summarize.
type SummaryResult = server.SummaryResult

// SummaryRecord is an archived summary.
type SummaryRecord = archive.Record

// HealthReport describes the generator's reachability and call statistics.
type HealthReport = summarizer.HealthReport

// Service represents the chatcycle service.
type Service struct {
	config     *config.Config
	generator  generate.Generator
	summarizer *summarizer.ChunkedSummarizer
	archive    archive.Store
	metrics    *telemetry.MetricsCollector
	toolServer *server.MCPToolServer
	logger     *slog.Logger
}

// Options defines the options for creating a new Service.
type Options struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. Used if Config is nil. If both are empty, DefaultConfig() is used.
	Logger     *slog.Logger // External logger. If nil, slog.Default() is used.

	// Progress, when set, is called after each summarized chunk.
	Progress func(done, total int)
}

// NewService creates a new chatcycle Service with the given options.
func NewService(opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *Config
	var err error

	if opts.Config != nil {
		cfg = opts.Config
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		logger.Info("Using provided Config object for service initialization")
	} else if opts.ConfigPath != "" {
		logger.Info("Loading configuration for service initialization", "path", opts.ConfigPath)
		cfg, err = config.LoadConfigWithPath(opts.ConfigPath)
		if err != nil {
			logger.Error("Failed to load configuration from path", "path", opts.ConfigPath, "error", err)
			return nil, errortypes.ConfigError(err, "Failed to load configuration from path: "+opts.ConfigPath)
		}
	} else {
		logger.Warn("No Config object or ConfigPath provided, using default configuration")
		cfg = DefaultConfig()
	}

	metrics := telemetry.NewMetricsCollector()
	gen, sum, store, err := createComponents(cfg, logger, metrics, opts.Progress)
	if err != nil {
		logger.Error("Failed to create components during service initialization", "error", err)
		return nil, err
	}

	toolServer := server.NewToolServer(gen, sum, server.Options{
		Model:   cfg.Generator.Model,
		Archive: store,
		Logger:  logger.With("component", "server"),
		Metrics: metrics,
	})
	if err := toolServer.Initialize(); err != nil {
		logger.Error("Failed to initialize MCP tool server component", "error", err)
		if store != nil {
			store.Close()
		}
		return nil, errortypes.ConfigError(err, "Failed to initialize MCP tool server component")
	}

	logger.Info("chatcycle service successfully initialized", "provider", gen.Name(), "archive", store != nil)
	return &Service{
		config:     cfg,
		generator:  gen,
		summarizer: sum,
		archive:    store,
		metrics:    metrics,
		toolServer: toolServer,
		logger:     logger,
	}, nil
}

// DefaultConfig returns the default configuration for the chatcycle service.
func DefaultConfig() *Config {
	return config.NewConfig()
}

// CreateComponents creates the generator, summarizer and archive described
// by cfg without creating a service. The archive is nil when disabled; the
// caller owns it and must Close it.
func CreateComponents(cfg *Config, logger *slog.Logger) (generate.Generator, *summarizer.ChunkedSummarizer, archive.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return createComponents(cfg, logger, telemetry.NewMetricsCollector(), nil)
}

func createComponents(cfg *Config, logger *slog.Logger, metrics *telemetry.MetricsCollector, progress func(done, total int)) (generate.Generator, *summarizer.ChunkedSummarizer, archive.Store, error) {
	logger.Info("Initializing generator", "provider", cfg.Generator.Provider)
	factory := generate.NewProviderFactory(map[string]generate.Config{
		cfg.Generator.Provider: cfg.GeneratorConfig(),
	})
	gen, err := factory.GetProvider(cfg.Generator.Provider)
	if err != nil {
		return nil, nil, nil, errortypes.ConfigError(err, "Failed to create generator")
	}

	sumConfig := cfg.SummarizerConfig()
	sumConfig.Logger = logger.With("component", "summarizer")
	sumConfig.Metrics = metrics
	sumConfig.Progress = progress
	sum, err := summarizer.NewChunkedSummarizer(gen, sumConfig)
	if err != nil {
		return nil, nil, nil, err
	}

	var store archive.Store
	if cfg.Archive.Enabled {
		logger.Info("Initializing SQLite summary archive", "path", cfg.Archive.SQLitePath)
		sqliteStore := archive.NewSQLiteStore()
		if err := sqliteStore.Initialize(cfg.Archive.SQLitePath); err != nil {
			logger.Error("Failed to initialize SQLite summary archive", "path", cfg.Archive.SQLitePath, "error", err)
			return nil, nil, nil, err
		}
		store = sqliteStore
	}

	return gen, sum, store, nil
}

// Start serves the MCP tools on stdio until stdin is closed.
func (s *Service) Start() error {
	s.logger.Info("Starting chatcycle service")
	return s.toolServer.Start()
}

// Stop stops the chatcycle service.
func (s *Service) Stop() error {
	s.logger.Info("Stopping chatcycle service")
	if err := s.toolServer.Stop(); err != nil {
		s.logger.Error("Error stopping tool server", "error", err)
		return err
	}

	if s.archive != nil {
		s.logger.Info("Closing archive")
		if err := s.archive.Close(); err != nil {
			s.logger.Error("Failed to close archive", "error", err)
			return err
		}
	}

	s.logger.Info("chatcycle service stopped")
	return nil
}

// NewConversation starts a conversation with an empty transcript. Each
// Conversation is independent of the MCP sessions and of every other one.
func (s *Service) NewConversation() *Conversation {
	return conversation.NewCycle(s.generator, conversation.Options{
		Model:   s.config.Generator.Model,
		Logger:  s.logger.With("component", "conversation"),
		Metrics: s.metrics,
	})
}

// Summarize summarizes document and archives the result when the archive is
// enabled. source is an optional label stored with the record.
func (s *Service) Summarize(ctx context.Context, source, document string) (SummaryResult, error) {
	return s.toolServer.SummarizeDocument(ctx, source, document)
}

// Summaries returns up to limit archived summaries, newest first.
func (s *Service) Summaries(limit int) ([]*SummaryRecord, error) {
	if s.archive == nil {
		return nil, errortypes.ConfigError(errArchiveDisabled, "archive unavailable")
	}
	return s.archive.List(limit)
}

// Health probes the generator and reports call statistics.
func (s *Service) Health(ctx context.Context) (*HealthReport, error) {
	return summarizer.CreateHealthReport(ctx, s.summarizer)
}

// Metrics returns a text report of the collected metrics.
func (s *Service) Metrics() string {
	return s.metrics.GetReport()
}

// GetConfig returns the configuration the service was built from.
func (s *Service) GetConfig() *Config {
	return s.config
}

// DocumentHash returns the hash under which a document is archived.
func DocumentHash(document string) string {
	return util.DocumentHash(document)
}
