package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aletheia/internal/store"
)

type memStore struct {
	agents map[string]*store.AgentRecord
}

func newMemStore() *memStore {
	return &memStore{agents: make(map[string]*store.AgentRecord)}
}

func (m *memStore) GetAgent(agentID string) (*store.AgentRecord, error) {
	rec, ok := m.agents[agentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) UpsertAgent(rec *store.AgentRecord) error {
	cp := *rec
	m.agents[rec.AgentID] = &cp
	return nil
}

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Generate(_ context.Context, _ string, _ bool) (string, error) {
	return s.response, s.err
}

func trolley() *store.ScenarioRecord {
	return &store.ScenarioRecord{
		ID:          1,
		Title:       "Trolley Dilemma",
		Description: "A runaway trolley approaches five workers",
		Actions:     []string{"pull the lever", "do nothing"},
	}
}

func TestLoadOrCreate_NewAgentGetsDefaults(t *testing.T) {
	db := newMemStore()
	a, err := LoadOrCreate(db, &stubLLM{}, "agent-1", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, a.Version)
	assert.Equal(t, DefaultConstitution, a.Constitution)

	persisted, err := db.GetAgent("agent-1")
	require.NoError(t, err)
	assert.Equal(t, 1, persisted.Version)
}

func TestLoadOrCreate_ExistingAgentKeepsState(t *testing.T) {
	db := newMemStore()
	require.NoError(t, db.UpsertAgent(&store.AgentRecord{
		AgentID:      "agent-1",
		Constitution: []string{"Only one rule"},
		Version:      7,
	}))

	a, err := LoadOrCreate(db, &stubLLM{}, "agent-1", []string{"ignored"})
	require.NoError(t, err)
	assert.Equal(t, 7, a.Version)
	assert.Equal(t, []string{"Only one rule"}, a.Constitution)
}

func TestLoad_UnknownAgentFails(t *testing.T) {
	_, err := Load(newMemStore(), &stubLLM{}, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCommit_BumpsVersionAndPersists(t *testing.T) {
	db := newMemStore()
	a, err := LoadOrCreate(db, &stubLLM{}, "agent-1", nil)
	require.NoError(t, err)

	require.NoError(t, a.Commit([]string{"New principle one", "New principle two", "New principle three"}))
	assert.Equal(t, 2, a.Version)

	persisted, err := db.GetAgent("agent-1")
	require.NoError(t, err)
	assert.Equal(t, 2, persisted.Version)
	assert.Len(t, persisted.Constitution, 3)
}

func TestDecideAction_ParsesStructuredResponse(t *testing.T) {
	db := newMemStore()
	a, _ := LoadOrCreate(db, &stubLLM{
		response: `{"action": "pull the lever", "justification": "Minimizes total harm."}`,
	}, "agent-1", nil)

	d, degraded := a.DecideAction(context.Background(), trolley())
	assert.False(t, degraded)
	assert.Equal(t, "pull the lever", d.Action)
	assert.Contains(t, d.Justification, "harm")
}

func TestDecideAction_MalformedResponseDegrades(t *testing.T) {
	db := newMemStore()
	a, _ := LoadOrCreate(db, &stubLLM{response: "I think the lever, probably?"}, "agent-1", nil)

	d, degraded := a.DecideAction(context.Background(), trolley())
	assert.True(t, degraded)
	assert.Equal(t, "Error", d.Action)
	assert.NotEmpty(t, d.Justification)
}

func TestDecideAction_GenerateErrorDegrades(t *testing.T) {
	db := newMemStore()
	a, _ := LoadOrCreate(db, &stubLLM{err: errors.New("api unavailable")}, "agent-1", nil)

	d, degraded := a.DecideAction(context.Background(), trolley())
	assert.True(t, degraded)
	assert.Equal(t, "Error", d.Action)
}

func TestDecideAction_OffListActionTolerated(t *testing.T) {
	db := newMemStore()
	a, _ := LoadOrCreate(db, &stubLLM{
		response: `{"action": "derail the trolley", "justification": "Third option."}`,
	}, "agent-1", nil)

	// Off-list actions are preserved as-is rather than rejected.
	d, degraded := a.DecideAction(context.Background(), trolley())
	assert.False(t, degraded)
	assert.Equal(t, "derail the trolley", d.Action)
}

func TestAnalyzeCritique_ParsesStructuredResponse(t *testing.T) {
	db := newMemStore()
	a, _ := LoadOrCreate(db, &stubLLM{
		response: `{"analysis_of_critique": "The critique highlights missing stakeholder analysis.",
			"missed_dimensions": ["stakeholder"], "contradictions": [], "suggested_improvements": ["name affected parties"]}`,
	}, "agent-1", nil)

	an, degraded := a.AnalyzeCritique(context.Background(), trolley(),
		&Decision{Action: "pull the lever", Justification: "fewer deaths"}, "critique text")
	assert.False(t, degraded)
	assert.Equal(t, []string{"stakeholder"}, an.MissedDimensions)
}

func TestAnalyzeCritique_FailureDegradesToMinimalShape(t *testing.T) {
	db := newMemStore()
	a, _ := LoadOrCreate(db, &stubLLM{err: errors.New("timeout")}, "agent-1", nil)

	an, degraded := a.AnalyzeCritique(context.Background(), trolley(),
		&Decision{Action: "do nothing"}, "critique text")
	assert.True(t, degraded)
	assert.NotEmpty(t, an.AnalysisOfCritique)
	assert.NotNil(t, an.MissedDimensions)
	assert.NotNil(t, an.SuggestedImprovements)
}

func TestConstitutionString(t *testing.T) {
	a := &Agent{Constitution: []string{"First", "Second"}}
	assert.Equal(t, "- First\n- Second", a.ConstitutionString())
}
