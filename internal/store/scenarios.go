package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// InsertScenario stores a scenario and returns its assigned ID.
func (s *LocalStore) InsertScenario(rec *ScenarioRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actionsJSON, err := json.Marshal(rec.Actions)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize actions: %w", err)
	}

	res, err := s.db.Exec(
		"INSERT INTO scenarios (title, description, actions) VALUES (?, ?, ?)",
		rec.Title, rec.Description, string(actionsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scenario: %w", err)
	}

	return res.LastInsertId()
}

// RandomScenario returns a uniformly random scenario, or ErrNotFound when
// the scenarios table is empty.
func (s *LocalStore) RandomScenario() (*ScenarioRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		"SELECT id, title, description, actions FROM scenarios ORDER BY RANDOM() LIMIT 1",
	)
	return scanScenario(row)
}

// GetScenario fetches a scenario by ID.
func (s *LocalStore) GetScenario(id int64) (*ScenarioRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		"SELECT id, title, description, actions FROM scenarios WHERE id = ?", id,
	)
	return scanScenario(row)
}

// ScenarioCount returns the number of stored scenarios.
func (s *LocalStore) ScenarioCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM scenarios").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count scenarios: %w", err)
	}
	return n, nil
}

// ListScenarios returns all stored scenarios ordered by ID.
func (s *LocalStore) ListScenarios() ([]ScenarioRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, title, description, actions FROM scenarios ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	defer rows.Close()

	var out []ScenarioRecord
	for rows.Next() {
		var rec ScenarioRecord
		var actionsJSON string
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Description, &actionsJSON); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(actionsJSON), &rec.Actions); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanScenario(row *sql.Row) (*ScenarioRecord, error) {
	rec := &ScenarioRecord{}
	var actionsJSON string

	err := row.Scan(&rec.ID, &rec.Title, &rec.Description, &actionsJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenario: %w", err)
	}

	if err := json.Unmarshal([]byte(actionsJSON), &rec.Actions); err != nil {
		return nil, fmt.Errorf("corrupt actions for scenario %d: %w", rec.ID, err)
	}

	return rec, nil
}
