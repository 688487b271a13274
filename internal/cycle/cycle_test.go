package cycle

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aletheia/internal/agent"
	"aletheia/internal/config"
	"aletheia/internal/constitution"
	"aletheia/internal/oracle"
	"aletheia/internal/simulation"
	"aletheia/internal/store"
)

// ===== FAKES =====

type memStore struct {
	mu     sync.Mutex
	agents map[string]*store.AgentRecord
}

func newMemStore() *memStore {
	return &memStore{agents: make(map[string]*store.AgentRecord)}
}

func (m *memStore) GetAgent(agentID string) (*store.AgentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.agents[agentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	cp.Constitution = append([]string(nil), rec.Constitution...)
	return &cp, nil
}

func (m *memStore) UpsertAgent(rec *store.AgentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	cp.Constitution = append([]string(nil), rec.Constitution...)
	m.agents[rec.AgentID] = &cp
	return nil
}

type fakeSim struct {
	mu       sync.Mutex
	scenario *store.ScenarioRecord
	logged   []store.InteractionRecord
}

func (f *fakeSim) selected() (*simulation.SelectedScenario, error) {
	if f.scenario == nil {
		return nil, store.ErrNotFound
	}
	return &simulation.SelectedScenario{ScenarioRecord: f.scenario}, nil
}

func (f *fakeSim) RandomScenario() (*simulation.SelectedScenario, error) { return f.selected() }

func (f *fakeSim) AdaptiveScenario(string, int) (*simulation.SelectedScenario, error) {
	return f.selected()
}

func (f *fakeSim) LogInteraction(rec *store.InteractionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logged = append(f.logged, *rec)
	return nil
}

type fakeCritic struct {
	context string
}

func (f *fakeCritic) GenerateCritique(_ context.Context, _ *store.ScenarioRecord, _, _ string) *oracle.Critique {
	c := &oracle.Critique{Context: f.context}
	if f.context != "" {
		c.FrameworksAnalyzed = oracle.AllFrameworks
		c.TotalDocs = 8
	}
	return c
}

// routerLLM answers each prompt kind with its matching structured response.
type routerLLM struct{}

func (routerLLM) Generate(_ context.Context, prompt string, _ bool) (string, error) {
	switch {
	case strings.Contains(prompt, "panel of diverse philosophical experts"):
		return `{"utilitarian_analysis": "The action risks harm to the minority.",
			"deontological_analysis": "Duty to each individual conflicts with aggregate outcomes.",
			"virtue_ethics_analysis": "Shows prudence.",
			"ai_safety_note": "No goal misspecification observed.",
			"core_tension": "Stakeholder interests conflict with aggregate welfare."}`, nil
	case strings.Contains(prompt, "analyzing feedback"):
		return `{"analysis_of_critique": "The critique stresses harm to stakeholders I did not weigh.",
			"missed_dimensions": ["stakeholder"], "contradictions": [], "suggested_improvements": ["name affected parties"]}`, nil
	default:
		return `{"action": "do nothing", "justification": "Acting directly would cause harm I cannot justify."}`, nil
	}
}

// ===== FIXTURES =====

// fivePrinciples leaves long-term thinking uncovered so a forced addition
// proposes a genuinely new principle.
var fivePrinciples = []string{
	"Do not cause harm to humans",
	"Respect individual autonomy and informed consent",
	"Act transparently and explain decisions clearly",
	"Consider the wellbeing of all stakeholders",
	"Adapt judgments to the situation at hand",
}

func trolley() *store.ScenarioRecord {
	return &store.ScenarioRecord{
		ID:          42,
		Title:       "Trolley Dilemma",
		Description: "A runaway trolley approaches five workers",
		Actions:     []string{"pull the lever", "do nothing"},
	}
}

// newTestOrchestrator pins MinPrinciples to the constitution size so the
// evolution engine always selects the addition strategy, keeping cycles
// deterministic.
func newTestOrchestrator(db agent.Store, sim ScenarioSource, critic Critic) *Orchestrator {
	engine := constitution.NewEngine(config.EvolutionConfig{
		MinPrinciples:         5,
		MaxPrinciples:         10,
		CoverageGapThreshold:  0.2,
		DuplicateOverlapRatio: 0.7,
	}, rand.New(rand.NewSource(1)))
	return New(db, sim, critic, routerLLM{}, engine, Options{})
}

func seedAgent(t *testing.T, db *memStore) {
	t.Helper()
	require.NoError(t, db.UpsertAgent(&store.AgentRecord{
		AgentID:      "agent-1",
		Constitution: append([]string(nil), fivePrinciples...),
		Version:      1,
	}))
}

// ===== TESTS =====

func TestRunCycle_FullCycleCommitsAndLogs(t *testing.T) {
	db := newMemStore()
	seedAgent(t, db)
	sim := &fakeSim{scenario: trolley()}
	o := newTestOrchestrator(db, sim, &fakeCritic{context: "harm to stakeholders must be weighed"})

	rec, err := o.RunCycle(context.Background(), "agent-1")
	require.NoError(t, err)

	assert.Equal(t, 1, rec.VersionBefore)
	assert.Equal(t, 2, rec.VersionAfter)
	assert.Equal(t, int64(42), rec.ScenarioID)
	assert.Equal(t, "Trolley Dilemma", rec.ScenarioTitle)
	assert.True(t, rec.Committed)
	assert.False(t, rec.Degraded)
	assert.Contains(t, rec.Decision, "do nothing")

	principles, version, err := o.GetConstitution("agent-1")
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.GreaterOrEqual(t, len(principles), 5)
	assert.LessOrEqual(t, len(principles), 10)

	require.Len(t, sim.logged, 1)
	assert.Equal(t, rec.ID, sim.logged[0].ID)
}

func TestRunCycle_MissingAgentAborts(t *testing.T) {
	db := newMemStore()
	sim := &fakeSim{scenario: trolley()}
	o := newTestOrchestrator(db, sim, &fakeCritic{})

	_, err := o.RunCycle(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, sim.logged)
}

func TestRunCycle_NoScenarioAbortsWithoutMutation(t *testing.T) {
	db := newMemStore()
	seedAgent(t, db)
	sim := &fakeSim{}
	o := newTestOrchestrator(db, sim, &fakeCritic{})

	_, err := o.RunCycle(context.Background(), "agent-1")
	require.Error(t, err)

	_, version, gerr := o.GetConstitution("agent-1")
	require.NoError(t, gerr)
	assert.Equal(t, 1, version)
	assert.Empty(t, sim.logged)
}

func TestRunCycle_EmptyCritiqueDegradesButCompletes(t *testing.T) {
	db := newMemStore()
	seedAgent(t, db)
	sim := &fakeSim{scenario: trolley()}
	o := newTestOrchestrator(db, sim, &fakeCritic{context: ""})

	rec, err := o.RunCycle(context.Background(), "agent-1")
	require.NoError(t, err)

	assert.True(t, rec.Degraded)
	assert.Empty(t, rec.Critique)
	// Algorithmic evolution still proposed and committed a change.
	assert.True(t, rec.Committed)
	assert.Equal(t, 2, rec.VersionAfter)
	assert.Contains(t, rec.Reflection, "proposed_constitution")
}

func TestRunCycle_MonotonicVersioning(t *testing.T) {
	db := newMemStore()
	seedAgent(t, db)
	sim := &fakeSim{scenario: trolley()}
	o := newTestOrchestrator(db, sim, &fakeCritic{context: "harm and stakeholder concerns"})

	last := 1
	for i := 0; i < 4; i++ {
		rec, err := o.RunCycle(context.Background(), "agent-1")
		require.NoError(t, err)
		assert.Equal(t, last, rec.VersionBefore)
		if rec.Committed {
			assert.Equal(t, rec.VersionBefore+1, rec.VersionAfter)
		} else {
			assert.Equal(t, rec.VersionBefore, rec.VersionAfter)
		}
		last = rec.VersionAfter
	}
}

func TestRunCycle_SerializedPerAgent(t *testing.T) {
	db := newMemStore()
	seedAgent(t, db)
	sim := &fakeSim{scenario: trolley()}
	o := newTestOrchestrator(db, sim, &fakeCritic{context: "harm considerations"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.RunCycle(context.Background(), "agent-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Committed cycles each bumped by exactly one; no lost updates.
	committed := 0
	for _, rec := range sim.logged {
		if rec.Committed {
			committed++
			assert.Equal(t, rec.VersionBefore+1, rec.VersionAfter)
		}
	}
	_, version, err := o.GetConstitution("agent-1")
	require.NoError(t, err)
	assert.Equal(t, 1+committed, version)
}

func TestGate_RejectedProposalDoesNotCommit(t *testing.T) {
	db := newMemStore()
	seedAgent(t, db)
	o := newTestOrchestrator(db, &fakeSim{scenario: trolley()}, &fakeCritic{})

	// Replace a substantive principle with an empty string at equal size.
	degradedList := append([]string(nil), fivePrinciples...)
	degradedList[3] = ""
	r := o.gate(fivePrinciples, constitution.Proposal{
		Constitution: degradedList,
		Strategy:     constitution.StrategyRefinement,
		Reasoning:    "test",
	}, nil)

	assert.True(t, r.ChangeRejected)
	assert.Equal(t, "REJECT", constitution.Verdict(r.RejectionReason))
}

func TestGate_IdenticalProposalSkipsEvaluation(t *testing.T) {
	db := newMemStore()
	o := newTestOrchestrator(db, &fakeSim{}, &fakeCritic{})

	r := o.gate(fivePrinciples, constitution.Proposal{
		Constitution: append([]string(nil), fivePrinciples...),
		Strategy:     constitution.StrategyReordering,
	}, nil)

	assert.False(t, r.ChangeRejected)
	assert.Nil(t, r.Evaluation)
	assert.Contains(t, r.ReasoningForChange, "no effective change")
}

func TestProposeAndMaybeCommit(t *testing.T) {
	db := newMemStore()
	seedAgent(t, db)
	o := newTestOrchestrator(db, &fakeSim{}, &fakeCritic{})

	proposal, reflection, err := o.ProposeAndMaybeCommit(context.Background(), "agent-1",
		"the decision ignored long-term harm to stakeholders")
	require.NoError(t, err)

	assert.Equal(t, constitution.StrategyAddition, proposal.Strategy)
	assert.False(t, reflection.ChangeRejected)

	_, version, err := o.GetConstitution("agent-1")
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestRunLoop_StopsOnFatalAbort(t *testing.T) {
	db := newMemStore()
	seedAgent(t, db)
	sim := &fakeSim{} // no scenario: first cycle aborts
	o := newTestOrchestrator(db, sim, &fakeCritic{})

	n, err := o.RunLoop(context.Background(), "agent-1", 3)
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestRunLoop_RunsRequestedCycles(t *testing.T) {
	db := newMemStore()
	seedAgent(t, db)
	sim := &fakeSim{scenario: trolley()}
	o := newTestOrchestrator(db, sim, &fakeCritic{context: "harm analysis"})

	n, err := o.RunLoop(context.Background(), "agent-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, sim.logged, 3)
}
