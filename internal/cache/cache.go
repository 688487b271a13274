// Package cache deduplicates text-to-vector computations. Entries are keyed
// by a content hash plus the embedding model identity, and stored through a
// pluggable backend so eviction policy and TTL expiry are testable on their
// own.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync/atomic"
	"time"

	"aletheia/internal/embedding"
	"aletheia/internal/logging"
)

// Backend is the storage contract for cached embeddings.
type Backend interface {
	CacheGet(textHash, model string) ([]float32, bool, error)
	CachePut(textHash, model string, vec []float32, ttl time.Duration) error
	CacheEvict(textHash, model string) error
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// EmbeddingCache wraps an embedding engine with content-hash caching.
// Safe for concurrent use; the underlying engine is already serialized.
type EmbeddingCache struct {
	backend Backend
	engine  embedding.Engine
	ttl     time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates an embedding cache in front of the given engine.
// A non-positive ttl stores entries without expiry.
func New(backend Backend, engine embedding.Engine, ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{
		backend: backend,
		engine:  engine,
		ttl:     ttl,
	}
}

// Key computes the cache key content hash for a normalized text.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// GetOrCompute returns the embedding for text, computing and storing it on
// a miss. Empty or whitespace-only text returns an empty vector without
// invoking the engine. An engine failure or an invalid (NaN/Inf) result
// degrades to an empty vector rather than an error.
func (c *EmbeddingCache) GetOrCompute(ctx context.Context, text string) []float32 {
	text = strings.TrimSpace(text)
	if text == "" {
		logging.Get(logging.CategoryEmbedding).Warn("empty text provided for embedding generation")
		return nil
	}

	hash := Key(text)
	model := c.engine.Name()

	if vec, hit, err := c.backend.CacheGet(hash, model); err == nil && hit {
		c.hits.Add(1)
		return vec
	} else if err != nil {
		logging.Get(logging.CategoryEmbedding).Warn("cache retrieval failed: %v", err)
	}
	c.misses.Add(1)

	vec, err := c.engine.Embed(ctx, text)
	if err != nil {
		logging.Get(logging.CategoryEmbedding).Error("embedding generation failed: %v", err)
		return nil
	}

	if err := embedding.ValidateVector(vec); err != nil {
		logging.Get(logging.CategoryEmbedding).Error("generated embedding rejected: %v", err)
		return nil
	}

	if len(vec) > 0 {
		if err := c.backend.CachePut(hash, model, vec, c.ttl); err != nil {
			logging.Get(logging.CategoryEmbedding).Warn("cache storage failed: %v", err)
		}
	}

	return vec
}

// Evict removes the cached entry for a text, if any.
func (c *EmbeddingCache) Evict(text string) error {
	return c.backend.CacheEvict(Key(strings.TrimSpace(text)), c.engine.Name())
}

// Dimensions reports the engine's embedding dimensionality.
func (c *EmbeddingCache) Dimensions() int {
	return c.engine.Dimensions()
}

// Stats returns a snapshot of hit/miss counters.
func (c *EmbeddingCache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	s := Stats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}
