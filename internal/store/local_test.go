package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAgentRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetAgent("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	rec := &AgentRecord{
		AgentID:      "agent-1",
		Constitution: []string{"Do no harm", "Be transparent", "Respect autonomy"},
		Version:      1,
	}
	require.NoError(t, s.UpsertAgent(rec))

	loaded, err := s.GetAgent("agent-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Constitution, loaded.Constitution)
	assert.Equal(t, 1, loaded.Version)
	assert.False(t, loaded.LastUpdated.IsZero())

	rec.Version = 2
	rec.Constitution = append(rec.Constitution, "Consider stakeholders")
	require.NoError(t, s.UpsertAgent(rec))

	loaded, err = s.GetAgent("agent-1")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Version)
	assert.Len(t, loaded.Constitution, 4)
}

func TestScenarios(t *testing.T) {
	s := newTestStore(t)

	_, err := s.RandomScenario()
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := s.InsertScenario(&ScenarioRecord{
		Title:       "Trolley Problem",
		Description: "A runaway trolley approaches five people.",
		Actions:     []string{"Pull the lever", "Do nothing"},
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	got, err := s.RandomScenario()
	require.NoError(t, err)
	assert.Equal(t, "Trolley Problem", got.Title)
	assert.Len(t, got.Actions, 2)

	n, err := s.ScenarioCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSimilaritySearch_BruteForce(t *testing.T) {
	s := newTestStore(t)

	// Three passages along different axes of a toy 3-dim space.
	_, err := s.InsertPassage(&PassageRecord{Text: "on utility", Author: "Mill", Framework: "utilitarian"}, []float32{1, 0, 0})
	require.NoError(t, err)
	_, err = s.InsertPassage(&PassageRecord{Text: "on duty", Author: "Kant", Framework: "deontological"}, []float32{0, 1, 0})
	require.NoError(t, err)
	_, err = s.InsertPassage(&PassageRecord{Text: "on virtue", Author: "Aristotle", Framework: "virtue_ethics"}, []float32{0, 0, 1})
	require.NoError(t, err)

	hits, err := s.SimilaritySearch([]float32{0.9, 0.1, 0}, 2, 30)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Mill", hits[0].Author)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSimilaritySearch_EmptyVector(t *testing.T) {
	s := newTestStore(t)
	hits, err := s.SimilaritySearch(nil, 3, 45)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestHistoryAppendOnly(t *testing.T) {
	s := newTestStore(t)

	rec := &InteractionRecord{
		AgentID:       "agent-1",
		VersionBefore: 1,
		VersionAfter:  2,
		ScenarioID:    7,
		ScenarioTitle: "Trolley Problem",
		Decision:      `{"action":"Pull the lever"}`,
		Committed:     true,
	}
	require.NoError(t, s.AppendInteraction(rec))
	assert.NotEmpty(t, rec.ID, "ID should be assigned on insert")

	// Same ID again must fail: entries are immutable, never upserted.
	err := s.AppendInteraction(&InteractionRecord{ID: rec.ID, AgentID: "agent-1"})
	assert.Error(t, err)

	recent, err := s.RecentInteractions("agent-1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 1, recent[0].VersionBefore)
	assert.Equal(t, 2, recent[0].VersionAfter)
	assert.True(t, recent[0].Committed)
}

func TestEmbeddingCache(t *testing.T) {
	s := newTestStore(t)

	_, hit, err := s.CacheGet("abc", "model-1")
	require.NoError(t, err)
	assert.False(t, hit)

	vec := []float32{0.1, 0.2, 0.3}
	require.NoError(t, s.CachePut("abc", "model-1", vec, time.Hour))

	got, hit, err := s.CacheGet("abc", "model-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, vec, got)

	// Different model identity misses.
	_, hit, err = s.CacheGet("abc", "model-2")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestEmbeddingCache_Expiry(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CachePut("old", "m", []float32{1}, -time.Minute))

	_, hit, err := s.CacheGet("old", "m")
	require.NoError(t, err)
	assert.False(t, hit, "expired entry should miss")

	evicted, err := s.CacheEvictExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), evicted)

	n, err := s.CacheSize()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
