// Package embedding provides vector embedding generation for wisdom retrieval.
// Supports multiple backends: Ollama (local) and Google GenAI (cloud).
package embedding

import (
	"context"
	"fmt"
	"math"
	"sync"

	"aletheia/internal/config"
	"aletheia/internal/logging"
)

// =============================================================================
// EMBEDDING ENGINE INTERFACE
// =============================================================================

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings
	Dimensions() int

	// Name returns the engine name
	Name() string
}

// =============================================================================
// FACTORY
// =============================================================================

// NewEngine creates an embedding engine based on configuration.
// The returned engine is wrapped so that only one embedding computation
// proceeds at a time; the physical inference resource is shared.
func NewEngine(cfg config.EmbeddingConfig) (Engine, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "NewEngine")
	defer timer.Stop()

	logging.Embedding("Creating embedding engine with provider=%s", cfg.Provider)

	var engine Engine
	var err error

	switch cfg.Provider {
	case "ollama":
		engine, err = NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel)
	case "genai":
		engine, err = NewGenAIEngine(cfg.GenAIAPIKey, cfg.GenAIModel)
	default:
		err = fmt.Errorf("unsupported embedding provider: %s (use 'ollama' or 'genai')", cfg.Provider)
	}

	if err != nil {
		logging.Get(logging.CategoryEmbedding).Error("Failed to create embedding engine: %v", err)
		return nil, err
	}

	logging.Embedding("Embedding engine created: name=%s, dimensions=%d", engine.Name(), engine.Dimensions())
	return Serialize(engine), nil
}

// =============================================================================
// SERIALIZED ENGINE WRAPPER
// =============================================================================

// serializedEngine guards a shared inference resource with a mutex so only
// one embedding computation runs at a time per process. Cache reads above
// this layer remain concurrent.
type serializedEngine struct {
	inner Engine
	mu    sync.Mutex
}

// Serialize wraps an engine with a mutual-exclusion discipline.
func Serialize(inner Engine) Engine {
	if _, ok := inner.(*serializedEngine); ok {
		return inner
	}
	return &serializedEngine{inner: inner}
}

func (s *serializedEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Embed(ctx, text)
}

func (s *serializedEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.EmbedBatch(ctx, texts)
}

func (s *serializedEngine) Dimensions() int { return s.inner.Dimensions() }
func (s *serializedEngine) Name() string    { return s.inner.Name() }

// =============================================================================
// VECTOR VALIDATION
// =============================================================================

// ValidateVector rejects embeddings containing NaN or Inf components.
// The external capability must surface these distinctly from "no result".
func ValidateVector(vec []float32) error {
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) {
			return fmt.Errorf("embedding component %d is NaN", i)
		}
		if math.IsInf(f, 0) {
			return fmt.Errorf("embedding component %d is Inf", i)
		}
	}
	return nil
}

// =============================================================================
// COSINE SIMILARITY UTILITY
// =============================================================================

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical, 0 means orthogonal.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dotProduct, aMagnitude, bMagnitude float64
	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		aMagnitude += float64(a[i]) * float64(a[i])
		bMagnitude += float64(b[i]) * float64(b[i])
	}

	if aMagnitude == 0 || bMagnitude == 0 {
		logging.Get(logging.CategoryEmbedding).Warn("CosineSimilarity: zero magnitude vector detected")
		return 0, nil
	}

	return dotProduct / (math.Sqrt(aMagnitude) * math.Sqrt(bMagnitude)), nil
}
