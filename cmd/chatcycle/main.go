package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/localrivet/chatcycle"
	"github.com/localrivet/chatcycle/internal/config"
	"github.com/localrivet/chatcycle/internal/errortypes"
	"github.com/localrivet/chatcycle/internal/logger"
)

func main() {
	// Initialize logging first thing
	appLogger := setupLogging()

	appLogger.Info("chatcycle MCP Server - Starting...")

	configPath := config.DefaultConfigFilename
	if p := os.Getenv("CHATCYCLE_CONFIG"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadConfigWithPath(configPath)
	if err != nil {
		errortypes.LogError(slog.Default(), err)
		appLogger.Fatal("Failed to load configuration")
	}

	// Configure logging based on config; LOG_LEVEL from the environment wins
	if cfg.Logging.Level != "" && os.Getenv("LOG_LEVEL") == "" {
		appLogger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
		appLogger.Info("Log level set to %s", cfg.Logging.Level)
	}

	if logger.ParseFormat(cfg.Logging.Format) == logger.JSON {
		appLogger.SetFormat(logger.JSON)
		appLogger.Info("Log format set to JSON")
	}

	srvLogger := appLogger.WithContext("server")
	svc, err := chatcycle.NewService(chatcycle.Options{
		Config: cfg,
		Logger: logger.NewSlogLogger(srvLogger),
	})
	if err != nil {
		errortypes.LogError(slog.Default(), err)
		appLogger.Fatal("Failed to initialize chatcycle service")
	}
	srvLogger.Info("Service initialized with %s provider", cfg.Generator.Provider)

	// Handle graceful shutdown
	setupSignalHandler(svc, appLogger)

	// Start the MCP server (this will block until stdin is closed)
	srvLogger.Info("Starting MCP server...")
	if err := svc.Start(); err != nil {
		errortypes.LogError(slog.Default(), errortypes.InternalError(err, "MCP server failed"))
		appLogger.Fatal("Failed to start MCP server")
	}

	if err := svc.Stop(); err != nil {
		errortypes.LogError(slog.Default(), err)
	}
}

// setupLogging configures and returns the application logger. slog's
// default logger writes through it as well.
func setupLogging() *logger.Logger {
	cfg := logger.DefaultConfig()

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		cfg.Level = logger.ParseLevel(levelStr)
	}

	appLogger := logger.New(cfg)
	logger.SetDefaultLogger(appLogger)
	slog.SetDefault(logger.NewSlogLogger(appLogger))

	return appLogger
}

// setupSignalHandler sets up a signal handler for graceful shutdown.
func setupSignalHandler(svc *chatcycle.Service, log *logger.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Received shutdown signal, terminating gracefully...")

		// Cancels in-flight generate calls and closes the archive
		if err := svc.Stop(); err != nil {
			errortypes.LogError(slog.Default(), errortypes.DatabaseError(err, "Error stopping service during shutdown"))
		} else {
			log.Info("Service stopped successfully")
		}

		log.Info("Shutdown complete")
		os.Exit(0)
	}()
}
