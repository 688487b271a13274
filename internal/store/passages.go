package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"aletheia/internal/embedding"
	"aletheia/internal/logging"
)

// InsertPassage stores a wisdom passage with its embedding.
func (s *LocalStore) InsertPassage(rec *PassageRecord, vector []float32) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var embeddingJSON []byte
	if len(vector) > 0 {
		var err error
		embeddingJSON, err = json.Marshal(vector)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize embedding: %w", err)
		}
	}

	res, err := s.db.Exec(
		"INSERT INTO passages (text, author, source, framework, era, embedding) VALUES (?, ?, ?, ?, ?, ?)",
		rec.Text, rec.Author, rec.Source, rec.Framework, rec.Era, string(embeddingJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert passage: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if s.vectorExt && len(vector) > 0 {
		if _, err := s.db.Exec(
			"INSERT INTO passages_vec (rowid, embedding) VALUES (?, ?)",
			id, string(embeddingJSON),
		); err != nil {
			logging.Get(logging.CategoryStore).Warn("vec0 insert failed for passage %d: %v", id, err)
		}
	}

	return id, nil
}

// PassageCount returns the number of stored passages.
func (s *LocalStore) PassageCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM passages").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count passages: %w", err)
	}
	return n, nil
}

// SimilaritySearch returns up to limit passages nearest to the query vector,
// ordered by descending relevance score. numCandidates controls the
// oversampled candidate pool considered before truncation.
func (s *LocalStore) SimilaritySearch(vector []float32, limit, numCandidates int) ([]PassageHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(vector) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}
	if numCandidates < limit {
		numCandidates = limit
	}

	if s.vectorExt {
		hits, err := s.vecSearch(vector, limit, numCandidates)
		if err == nil {
			return hits, nil
		}
		logging.Get(logging.CategoryStore).Warn("vec0 search failed, falling back to brute force: %v", err)
	}

	return s.bruteForceSearch(vector, limit)
}

// vecSearch queries the sqlite-vec virtual table.
func (s *LocalStore) vecSearch(vector []float32, limit, numCandidates int) ([]PassageHit, error) {
	queryJSON, err := json.Marshal(vector)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query vector: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT v.rowid, v.distance, p.text, p.author, p.source, p.framework, p.era
		 FROM passages_vec v
		 JOIN passages p ON p.id = v.rowid
		 WHERE v.embedding MATCH ? AND k = ?
		 ORDER BY v.distance`,
		string(queryJSON), numCandidates,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []PassageHit
	for rows.Next() {
		var hit PassageHit
		var distance float64
		if err := rows.Scan(&hit.ID, &distance, &hit.Text, &hit.Author, &hit.Source, &hit.Framework, &hit.Era); err != nil {
			continue
		}
		// Convert L2 distance to a descending relevance score.
		hit.Score = 1.0 / (1.0 + distance)
		hits = append(hits, hit)
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, rows.Err()
}

// bruteForceSearch computes cosine similarity over every stored embedding.
func (s *LocalStore) bruteForceSearch(vector []float32, limit int) ([]PassageHit, error) {
	rows, err := s.db.Query(
		"SELECT id, text, author, source, framework, era, embedding FROM passages WHERE embedding IS NOT NULL AND embedding != ''",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query passages: %w", err)
	}
	defer rows.Close()

	var hits []PassageHit
	for rows.Next() {
		var hit PassageHit
		var embeddingJSON string
		if err := rows.Scan(&hit.ID, &hit.Text, &hit.Author, &hit.Source, &hit.Framework, &hit.Era, &embeddingJSON); err != nil {
			continue
		}

		var stored []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &stored); err != nil {
			continue
		}

		similarity, err := embedding.CosineSimilarity(vector, stored)
		if err != nil {
			continue
		}

		hit.Score = similarity
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
