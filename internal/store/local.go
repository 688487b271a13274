// Package store implements the Aletheia document store on SQLite.
// It holds agents, scenarios, wisdom passages (with embeddings), the
// append-only interaction history, and the embedding cache table.
//
// Vector similarity search uses the sqlite-vec extension when the binary is
// built with the sqlite_vec tag; otherwise it falls back to brute-force
// cosine similarity over JSON-serialized embeddings.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"aletheia/internal/logging"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("store: not found")

// LocalStore provides document and vector storage backed by SQLite.
type LocalStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	dbPath    string
	vectorExt bool // sqlite-vec virtual table available
	vectorDim int
}

// NewLocalStore initializes the SQLite database at the given path.
func NewLocalStore(path string) (*LocalStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewLocalStore")
	defer timer.Stop()

	logging.Store("Initializing LocalStore at path: %s", path)

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &LocalStore{
		db:        db,
		dbPath:    path,
		vectorDim: 768,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s.detectVectorExt()
	logging.Store("LocalStore ready (vector extension: %v)", s.vectorExt)

	return s, nil
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path.
func (s *LocalStore) Path() string {
	return s.dbPath
}

// migrate creates the schema if it does not exist.
func (s *LocalStore) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			agent_id     TEXT PRIMARY KEY,
			constitution TEXT NOT NULL,
			version      INTEGER NOT NULL DEFAULT 1,
			last_updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS scenarios (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			actions     TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS passages (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			text      TEXT NOT NULL,
			author    TEXT,
			source    TEXT,
			framework TEXT,
			era       TEXT,
			embedding TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id           TEXT PRIMARY KEY,
			agent_id     TEXT NOT NULL,
			version_before INTEGER NOT NULL,
			version_after  INTEGER NOT NULL,
			scenario_id    INTEGER,
			scenario_title TEXT,
			decision     TEXT,
			critique     TEXT,
			reflection   TEXT,
			committed    INTEGER NOT NULL DEFAULT 0,
			degraded     INTEGER NOT NULL DEFAULT 0,
			created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_agent ON history(agent_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS embedding_cache (
			text_hash  TEXT NOT NULL,
			model      TEXT NOT NULL,
			embedding  TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP,
			PRIMARY KEY (text_hash, model)
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}

	return nil
}

// detectVectorExt probes for the sqlite-vec extension and creates the
// vector virtual table when available.
func (s *LocalStore) detectVectorExt() {
	var version string
	if err := s.db.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		logging.Get(logging.CategoryStore).Debug("sqlite-vec not available, using brute-force search: %v", err)
		s.vectorExt = false
		return
	}

	stmt := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS passages_vec USING vec0(embedding float[%d])",
		s.vectorDim,
	)
	if _, err := s.db.Exec(stmt); err != nil {
		logging.Get(logging.CategoryStore).Warn("failed to create vec0 table, using brute-force search: %v", err)
		s.vectorExt = false
		return
	}

	logging.Store("sqlite-vec %s detected, accelerated search enabled", version)
	s.vectorExt = true
}
