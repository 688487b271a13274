// Package config holds all Aletheia configuration.
// Config is loaded from .aletheia/config.json with environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all Aletheia configuration.
type Config struct {
	// Core settings
	Name    string `json:"name"`
	Version string `json:"version"`

	// LLM configuration (generative text capability)
	LLM LLMConfig `json:"llm"`

	// Embedding engine configuration
	Embedding EmbeddingConfig `json:"embedding"`

	// Document store configuration
	Store StoreConfig `json:"store"`

	// Wisdom oracle configuration
	Oracle OracleConfig `json:"oracle"`

	// Constitution evolution configuration
	Evolution EvolutionConfig `json:"evolution"`

	// Logging
	Logging LoggingConfig `json:"logging"`
}

// LLMConfig configures the generative text capability.
type LLMConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	Timeout string `json:"timeout"` // Overall call timeout, e.g. "60s"
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	// Provider: "ollama" or "genai"
	Provider string `json:"provider"`

	// Ollama configuration
	OllamaEndpoint string `json:"ollama_endpoint"` // Default: "http://localhost:11434"
	OllamaModel    string `json:"ollama_model"`    // Default: "embeddinggemma"

	// GenAI configuration
	GenAIAPIKey string `json:"genai_api_key"`
	GenAIModel  string `json:"genai_model"` // Default: "gemini-embedding-001"

	// Cache settings
	CacheEnabled bool   `json:"cache_enabled"`
	CacheTTL     string `json:"cache_ttl"` // Default: "24h"
}

// StoreConfig configures the SQLite document store.
type StoreConfig struct {
	DatabasePath string `json:"database_path"`
}

// OracleConfig configures the multi-framework critique engine.
type OracleConfig struct {
	// MaxWorkers bounds the per-framework retrieval fan-out
	MaxWorkers int `json:"max_workers"`

	// FrameworkTimeout bounds each framework's unit of work, e.g. "30s"
	FrameworkTimeout string `json:"framework_timeout"`

	// MaxDocsPerFramework is the base retrieval limit before weight scaling
	MaxDocsPerFramework int `json:"max_docs_per_framework"`

	// MinRelevanceScore filters low-quality retrieval results
	MinRelevanceScore float64 `json:"min_relevance_score"`

	// OversampleFactor requests this many times more candidates than the limit
	OversampleFactor int `json:"oversample_factor"`

	// MaxRetries bounds retrieval retry attempts
	MaxRetries int `json:"max_retries"`
}

// EvolutionConfig configures the constitution evolution engine.
type EvolutionConfig struct {
	MinPrinciples int `json:"min_principles"`
	MaxPrinciples int `json:"max_principles"`

	// CoverageGapThreshold marks a core dimension as under-covered
	CoverageGapThreshold float64 `json:"coverage_gap_threshold"`

	// DuplicateOverlapRatio marks two principles as near-duplicates
	DuplicateOverlapRatio float64 `json:"duplicate_overlap_ratio"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "aletheia",
		Version: "1.0.0",
		LLM: LLMConfig{
			Model:   "gemini-2.0-flash",
			Timeout: "60s",
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			CacheEnabled:   true,
			CacheTTL:       "24h",
		},
		Store: StoreConfig{
			DatabasePath: ".aletheia/aletheia.db",
		},
		Oracle: OracleConfig{
			MaxWorkers:          4,
			FrameworkTimeout:    "30s",
			MaxDocsPerFramework: 3,
			MinRelevanceScore:   0.1,
			OversampleFactor:    15,
			MaxRetries:          3,
		},
		Evolution: EvolutionConfig{
			MinPrinciples:         3,
			MaxPrinciples:         10,
			CoverageGapThreshold:  0.2,
			DuplicateOverlapRatio: 0.7,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads configuration from the given path, applying defaults for
// missing fields and environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// DefaultPath returns the conventional config location under workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".aletheia", "config.json")
}

// Save writes the configuration to the given path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
		if c.Embedding.GenAIAPIKey == "" {
			c.Embedding.GenAIAPIKey = key
		}
	}
	if key := os.Getenv("ALETHEIA_GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.Embedding.GenAIAPIKey = key
	}
	if model := os.Getenv("ALETHEIA_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if path := os.Getenv("ALETHEIA_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if provider := os.Getenv("ALETHEIA_EMBEDDING_PROVIDER"); provider != "" {
		c.Embedding.Provider = provider
	}
}

// GetLLMTimeout parses the LLM call timeout with a safe fallback.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// GetFrameworkTimeout parses the per-framework timeout with a safe fallback.
func (c *Config) GetFrameworkTimeout() time.Duration {
	d, err := time.ParseDuration(c.Oracle.FrameworkTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetCacheTTL parses the embedding cache TTL with a safe fallback.
func (c *Config) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Embedding.CacheTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.Evolution.MinPrinciples < 1 {
		return fmt.Errorf("evolution.min_principles must be >= 1, got %d", c.Evolution.MinPrinciples)
	}
	if c.Evolution.MaxPrinciples < c.Evolution.MinPrinciples {
		return fmt.Errorf("evolution.max_principles (%d) must be >= min_principles (%d)",
			c.Evolution.MaxPrinciples, c.Evolution.MinPrinciples)
	}
	if c.Oracle.MaxWorkers < 1 {
		return fmt.Errorf("oracle.max_workers must be >= 1, got %d", c.Oracle.MaxWorkers)
	}
	if c.Oracle.OversampleFactor < 1 {
		return fmt.Errorf("oracle.oversample_factor must be >= 1, got %d", c.Oracle.OversampleFactor)
	}
	if c.Store.DatabasePath == "" {
		return fmt.Errorf("store.database_path is required")
	}
	return nil
}
