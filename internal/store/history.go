package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppendInteraction inserts an immutable interaction log entry.
// The ID is assigned here if not already set; records are never updated.
func (s *LocalStore) AppendInteraction(rec *InteractionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO history
		 (id, agent_id, version_before, version_after, scenario_id, scenario_title,
		  decision, critique, reflection, committed, degraded, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AgentID, rec.VersionBefore, rec.VersionAfter,
		rec.ScenarioID, rec.ScenarioTitle,
		rec.Decision, rec.Critique, rec.Reflection,
		boolToInt(rec.Committed), boolToInt(rec.Degraded), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append interaction: %w", err)
	}

	return nil
}

// RecentInteractions returns the most recent interaction records for an
// agent, newest first.
func (s *LocalStore) RecentInteractions(agentID string, limit int) ([]InteractionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, agent_id, version_before, version_after, scenario_id, scenario_title,
		        decision, critique, reflection, committed, degraded, created_at
		 FROM history WHERE agent_id = ? ORDER BY created_at DESC LIMIT ?`,
		agentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []InteractionRecord
	for rows.Next() {
		var rec InteractionRecord
		var committed, degraded int
		if err := rows.Scan(
			&rec.ID, &rec.AgentID, &rec.VersionBefore, &rec.VersionAfter,
			&rec.ScenarioID, &rec.ScenarioTitle,
			&rec.Decision, &rec.Critique, &rec.Reflection,
			&committed, &degraded, &rec.CreatedAt,
		); err != nil {
			continue
		}
		rec.Committed = committed != 0
		rec.Degraded = degraded != 0
		out = append(out, rec)
	}

	return out, rows.Err()
}

// InteractionCount returns the number of logged interactions for an agent.
func (s *LocalStore) InteractionCount(agentID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM history WHERE agent_id = ?", agentID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
