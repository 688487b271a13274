package store

import "time"

// AgentRecord is the persisted state of one agent.
type AgentRecord struct {
	AgentID      string    `json:"agent_id"`
	Constitution []string  `json:"constitution"`
	Version      int       `json:"version"`
	LastUpdated  time.Time `json:"last_updated"`
}

// ScenarioRecord is an ethical scenario as stored.
type ScenarioRecord struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

// PassageRecord is a wisdom passage from the philosophical corpus.
type PassageRecord struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	Source    string `json:"source"`
	Framework string `json:"framework"`
	Era       string `json:"era"`
}

// PassageHit is a similarity search result.
type PassageHit struct {
	PassageRecord
	Score float64 `json:"score"`
}

// InteractionRecord is one immutable history entry per learning cycle.
type InteractionRecord struct {
	ID            string    `json:"id"`
	AgentID       string    `json:"agent_id"`
	VersionBefore int       `json:"version_before"`
	VersionAfter  int       `json:"version_after"`
	ScenarioID    int64     `json:"scenario_id"`
	ScenarioTitle string    `json:"scenario_title"`
	Decision      string    `json:"decision"`   // JSON
	Critique      string    `json:"critique"`   // JSON or free text
	Reflection    string    `json:"reflection"` // JSON
	Committed     bool      `json:"committed"`
	Degraded      bool      `json:"degraded"`
	CreatedAt     time.Time `json:"created_at"`
}
