package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/localrivet/chatcycle/internal/errortypes"
	"github.com/localrivet/chatcycle/internal/generate"
	"github.com/localrivet/chatcycle/internal/summarizer"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Generator.Provider != generate.ProviderOllama {
		t.Errorf("Provider = %q", cfg.Generator.Provider)
	}
	if cfg.Summarizer.ChunkSize != 2000 || cfg.Summarizer.Threshold != 2000 {
		t.Errorf("chunk_size/threshold = %d/%d", cfg.Summarizer.ChunkSize, cfg.Summarizer.Threshold)
	}
	if cfg.Summarizer.PromptTemplate != summarizer.DefaultPromptTemplate {
		t.Errorf("unexpected default prompt template")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown provider", func(c *Config) { c.Generator.Provider = "carrier-pigeon" }},
		{"threshold below chunk size", func(c *Config) { c.Summarizer.Threshold = 100; c.Summarizer.ChunkSize = 200 }},
		{"zero chunk size", func(c *Config) { c.Summarizer.ChunkSize = 0 }},
		{"template without placeholder", func(c *Config) { c.Summarizer.PromptTemplate = "Summarize this" }},
		{"template with two placeholders", func(c *Config) { c.Summarizer.PromptTemplate = "{text} and {text}" }},
		{"archive without path", func(c *Config) { c.Archive.SQLitePath = " " }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := NewConfig()
			test.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !errortypes.IsValidationError(err) {
				t.Errorf("expected validation error type, got %s", errortypes.TypeOf(err))
			}
		})
	}
}

func TestGeneratorConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Generator.EndpointURL = "http://example.invalid/api/generate"
	cfg.Generator.Model = "codeguru"
	cfg.Generator.TimeoutSeconds = 30

	gc := cfg.GeneratorConfig()
	if gc.EndpointURL != cfg.Generator.EndpointURL || gc.ModelID != "codeguru" {
		t.Errorf("GeneratorConfig() = %+v", gc)
	}
	if gc.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", gc.Timeout)
	}
}

func TestSummarizerConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Generator.Model = "llama3-8b-8192"

	sc := cfg.SummarizerConfig()
	if sc.ChunkDelay != time.Second {
		t.Errorf("ChunkDelay = %v, want 1s", sc.ChunkDelay)
	}
	if sc.Model != "llama3-8b-8192" {
		t.Errorf("Model = %q", sc.Model)
	}

	cfg.Summarizer.ChunkDelayMs = 0
	if d := cfg.SummarizerConfig().ChunkDelay; d >= 0 {
		t.Errorf("a zero delay should disable pauses, got %v", d)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	cfg, err := LoadConfigWithPath(path)
	if err != nil {
		t.Fatalf("LoadConfigWithPath() error = %v", err)
	}
	if cfg.GetConfigPath() != path {
		t.Errorf("GetConfigPath() = %q, want %q", cfg.GetConfigPath(), path)
	}
	if cfg.Summarizer.ChunkSize != summarizer.DefaultChunkSize {
		t.Errorf("expected defaults, got chunk_size %d", cfg.Summarizer.ChunkSize)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultConfigFilename)

	cfg := NewConfig()
	cfg.Generator.Provider = generate.ProviderBasic
	cfg.Summarizer.ChunkSize = 500
	cfg.Summarizer.Threshold = 1500
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadConfigWithPath(path)
	if err != nil {
		t.Fatalf("LoadConfigWithPath() error = %v", err)
	}
	if loaded.Generator.Provider != generate.ProviderBasic {
		t.Errorf("Provider = %q", loaded.Generator.Provider)
	}
	if loaded.Summarizer.ChunkSize != 500 || loaded.Summarizer.Threshold != 1500 {
		t.Errorf("chunk_size/threshold = %d/%d", loaded.Summarizer.ChunkSize, loaded.Summarizer.Threshold)
	}
}
