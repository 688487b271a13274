package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// GetAgent fetches an agent by ID. Returns ErrNotFound for unknown IDs.
func (s *LocalStore) GetAgent(agentID string) (*AgentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var constitutionJSON string
	rec := &AgentRecord{AgentID: agentID}

	err := s.db.QueryRow(
		"SELECT constitution, version, last_updated FROM agents WHERE agent_id = ?",
		agentID,
	).Scan(&constitutionJSON, &rec.Version, &rec.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load agent %s: %w", agentID, err)
	}

	if err := json.Unmarshal([]byte(constitutionJSON), &rec.Constitution); err != nil {
		return nil, fmt.Errorf("corrupt constitution for agent %s: %w", agentID, err)
	}

	return rec, nil
}

// UpsertAgent saves an agent's state, replacing any previous record.
func (s *LocalStore) UpsertAgent(rec *AgentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	constitutionJSON, err := json.Marshal(rec.Constitution)
	if err != nil {
		return fmt.Errorf("failed to serialize constitution: %w", err)
	}

	if rec.LastUpdated.IsZero() {
		rec.LastUpdated = time.Now().UTC()
	}

	_, err = s.db.Exec(
		`INSERT INTO agents (agent_id, constitution, version, last_updated)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(agent_id) DO UPDATE SET
		   constitution = excluded.constitution,
		   version = excluded.version,
		   last_updated = excluded.last_updated`,
		rec.AgentID, string(constitutionJSON), rec.Version, rec.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to save agent %s: %w", rec.AgentID, err)
	}

	return nil
}
