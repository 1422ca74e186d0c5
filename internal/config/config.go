package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/localrivet/configurator"

	"github.com/localrivet/chatcycle/internal/errortypes"
	"github.com/localrivet/chatcycle/internal/generate"
	"github.com/localrivet/chatcycle/internal/summarizer"
)

// Config represents the chatcycle configuration
type Config struct {
	// Generator selects and configures the text-generation endpoint.
	Generator struct {
		// Provider is the name of the generator provider ("ollama", "openai", "basic").
		Provider string `json:"provider" env:"GENERATOR_PROVIDER" validate:"required"`

		// EndpointURL overrides the provider's default endpoint.
		EndpointURL string `json:"endpoint_url" env:"GENERATOR_ENDPOINT_URL"`

		// Model is the fixed model identifier sent with every request.
		Model string `json:"model" env:"GENERATOR_MODEL"`

		// APIKey is the bearer key for hosted providers.
		APIKey string `json:"api_key" env:"GENERATOR_API_KEY"`

		// TimeoutSeconds bounds a single generate call.
		TimeoutSeconds int `json:"timeout_seconds" env:"GENERATOR_TIMEOUT_SECONDS" validate:"min:1"`

		// Streaming is accepted for compatibility and always forced off.
		Streaming bool `json:"streaming" env:"GENERATOR_STREAMING"`

		Temperature float64 `json:"temperature" env:"GENERATOR_TEMPERATURE"`
		MaxTokens   int     `json:"max_tokens" env:"GENERATOR_MAX_TOKENS"`
	} `json:"generator"`

	// Summarizer contains chunked summarization settings.
	Summarizer struct {
		ChunkSize int `json:"chunk_size" env:"SUMMARIZER_CHUNK_SIZE" validate:"min:1"`
		Threshold int `json:"threshold" env:"SUMMARIZER_THRESHOLD" validate:"min:1"`

		// ChunkDelayMs is the pause between chunk submissions. Negative disables it.
		ChunkDelayMs int `json:"chunk_delay_ms" env:"SUMMARIZER_CHUNK_DELAY_MS"`

		// PromptTemplate must contain exactly one {text} placeholder.
		PromptTemplate string `json:"prompt_template" env:"SUMMARIZER_PROMPT_TEMPLATE"`
	} `json:"summarizer"`

	// Archive contains the summary history settings.
	Archive struct {
		Enabled bool `json:"enabled" env:"ARCHIVE_ENABLED"`

		// SQLitePath is the path to the SQLite database file.
		SQLitePath string `json:"sqlite_path" env:"ARCHIVE_SQLITE_PATH"`
	} `json:"archive"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level to display ("debug", "info", "warn", "error").
		Level string `json:"level" env:"LOG_LEVEL" validate:"required"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" env:"LOG_FORMAT"`
	} `json:"logging"`

	// Internal state (not saved to config file)
	configPath     string       `json:"-"`
	mutex          sync.RWMutex `json:"-"`
	lastModifiedAt time.Time    `json:"-"`
}

// Default configuration values
const (
	DefaultConfigFilename  = ".chatcycleconfig"
	DefaultEnvPrefix       = "CHATCYCLE"
	DefaultSQLitePath      = ".chatcycle.db"
	DefaultTimeoutSeconds  = 120
	DefaultChunkDelayMs    = 1000
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultGeneratorVendor = generate.ProviderOllama
)

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	config := &Config{}
	config.Generator.Provider = DefaultGeneratorVendor
	config.Generator.TimeoutSeconds = DefaultTimeoutSeconds
	config.Generator.Temperature = generate.DefaultTemperature
	config.Generator.MaxTokens = generate.DefaultMaxTokens
	config.Summarizer.ChunkSize = summarizer.DefaultChunkSize
	config.Summarizer.Threshold = summarizer.DefaultThreshold
	config.Summarizer.ChunkDelayMs = DefaultChunkDelayMs
	config.Summarizer.PromptTemplate = summarizer.DefaultPromptTemplate
	config.Archive.Enabled = true
	config.Archive.SQLitePath = DefaultSQLitePath
	config.Logging.Level = DefaultLogLevel
	config.Logging.Format = DefaultLogFormat
	return config
}

// LoadConfig loads the configuration from the default path
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath(DefaultConfigFilename)
}

// LoadConfigWithPath loads the configuration from a specific path
func LoadConfigWithPath(configPath string) (*Config, error) {
	// Logs go to stderr; stdout carries the MCP stdio transport.
	stdLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg := NewConfig()

	if configPath == DefaultConfigFilename {
		foundPath, err := configurator.FindConfigFile(configPath)
		if err == nil {
			configPath = foundPath
			stdLogger.Debug("Found config file at " + foundPath)
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		stdLogger.Info("Config file not found, using default configuration", "path", configPath)
		cfg.configPath = configPath
		cfg.lastModifiedAt = time.Now()
		return cfg, cfg.Validate()
	}

	stdLogger.Info("Loading configuration", "path", configPath)

	config := configurator.New(stdLogger).
		WithProvider(configurator.NewDefaultProvider()).
		WithProvider(configurator.NewFileProvider(configPath)).
		WithProvider(configurator.NewEnvProvider(DefaultEnvPrefix)).
		WithValidator(configurator.NewDefaultValidator())

	ctx := context.Background()
	if err := config.Load(ctx, cfg); err != nil {
		return nil, errortypes.ConfigError(err, "failed to load configuration")
	}

	cfg.configPath = configPath
	cfg.lastModifiedAt = time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the cross-field constraints the struct tags cannot express.
func (c *Config) Validate() error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if !generate.IsKnownProvider(c.Generator.Provider) {
		return errortypes.ValidationError(fmt.Errorf("unknown provider %q", c.Generator.Provider), "invalid generator configuration")
	}
	if c.Summarizer.ChunkSize <= 0 || c.Summarizer.Threshold <= 0 {
		return errortypes.ValidationError(
			fmt.Errorf("chunk_size %d and threshold %d must be positive", c.Summarizer.ChunkSize, c.Summarizer.Threshold),
			"invalid summarizer configuration")
	}
	if c.Summarizer.Threshold < c.Summarizer.ChunkSize {
		return errortypes.ValidationError(
			fmt.Errorf("threshold %d is smaller than chunk_size %d", c.Summarizer.Threshold, c.Summarizer.ChunkSize),
			"invalid summarizer configuration")
	}
	if c.Summarizer.PromptTemplate != "" {
		if _, err := summarizer.ParseTemplate(c.Summarizer.PromptTemplate); err != nil {
			return err
		}
	}
	if c.Archive.Enabled && strings.TrimSpace(c.Archive.SQLitePath) == "" {
		return errortypes.ValidationError(fmt.Errorf("sqlite_path is empty"), "invalid archive configuration")
	}
	return nil
}

// GeneratorConfig converts the generator section into provider settings.
func (c *Config) GeneratorConfig() generate.Config {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return generate.Config{
		EndpointURL: c.Generator.EndpointURL,
		APIKey:      c.Generator.APIKey,
		ModelID:     c.Generator.Model,
		Timeout:     time.Duration(c.Generator.TimeoutSeconds) * time.Second,
		Temperature: c.Generator.Temperature,
		MaxTokens:   c.Generator.MaxTokens,
	}
}

// SummarizerConfig converts the summarizer section into ChunkedSummarizer
// settings. Logger, metrics and progress are left for the caller.
func (c *Config) SummarizerConfig() *summarizer.ChunkedSummarizerConfig {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	delay := time.Duration(c.Summarizer.ChunkDelayMs) * time.Millisecond
	if c.Summarizer.ChunkDelayMs <= 0 {
		// The summarizer reads a zero delay as "use the default".
		delay = -1
	}

	return &summarizer.ChunkedSummarizerConfig{
		Model:          c.Generator.Model,
		ChunkSize:      c.Summarizer.ChunkSize,
		Threshold:      c.Summarizer.Threshold,
		ChunkDelay:     delay,
		PromptTemplate: c.Summarizer.PromptTemplate,
	}
}

// SaveToFile saves the configuration to the specified file
func (c *Config) SaveToFile(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	c.configPath = path
	c.lastModifiedAt = time.Now()

	return nil
}

// Save saves the configuration to the last used file path
func (c *Config) Save() error {
	if c.configPath == "" {
		c.configPath = DefaultConfigFilename
	}
	return c.SaveToFile(c.configPath)
}

// GetConfigPath returns the path of the currently loaded configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}
