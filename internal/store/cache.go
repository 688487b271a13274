package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// CacheGet returns the cached embedding for (hash, model) if present and
// not expired. The second return value reports whether there was a hit.
func (s *LocalStore) CacheGet(textHash, model string) ([]float32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var embeddingJSON string
	var expiresAt sql.NullTime

	err := s.db.QueryRow(
		"SELECT embedding, expires_at FROM embedding_cache WHERE text_hash = ? AND model = ?",
		textHash, model,
	).Scan(&embeddingJSON, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}

	if expiresAt.Valid && time.Now().After(expiresAt.Time) {
		return nil, false, nil
	}

	var vec []float32
	if err := json.Unmarshal([]byte(embeddingJSON), &vec); err != nil {
		return nil, false, fmt.Errorf("corrupt cached embedding: %w", err)
	}

	return vec, true, nil
}

// CachePut stores an embedding keyed by content hash and model identity.
// A non-positive TTL stores the entry without expiry.
func (s *LocalStore) CachePut(textHash, model string, vec []float32, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	embeddingJSON, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to serialize embedding: %w", err)
	}

	now := time.Now().UTC()
	var expiresAt interface{}
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	_, err = s.db.Exec(
		`INSERT INTO embedding_cache (text_hash, model, embedding, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(text_hash, model) DO UPDATE SET
		   embedding = excluded.embedding,
		   created_at = excluded.created_at,
		   expires_at = excluded.expires_at`,
		textHash, model, string(embeddingJSON), now, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("cache store failed: %w", err)
	}

	return nil
}

// CacheEvict removes a single cache entry.
func (s *LocalStore) CacheEvict(textHash, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"DELETE FROM embedding_cache WHERE text_hash = ? AND model = ?",
		textHash, model,
	)
	return err
}

// CacheEvictExpired removes all expired entries and returns the count.
func (s *LocalStore) CacheEvictExpired() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"DELETE FROM embedding_cache WHERE expires_at IS NOT NULL AND expires_at < ?",
		time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("cache eviction failed: %w", err)
	}
	return res.RowsAffected()
}

// CacheSize returns the number of cached embeddings.
func (s *LocalStore) CacheSize() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM embedding_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}
