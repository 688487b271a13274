// Package agent holds the decision-making agent: its identity, its current
// constitution, and the prompts it uses to decide actions and analyze
// critiques. Constitution mutation and commit decisions live with the cycle
// orchestrator, not here.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"aletheia/internal/llm"
	"aletheia/internal/logging"
	"aletheia/internal/store"
)

// Store is the subset of persistence the agent needs.
type Store interface {
	GetAgent(agentID string) (*store.AgentRecord, error)
	UpsertAgent(rec *store.AgentRecord) error
}

// DefaultConstitution seeds agents created without explicit principles.
var DefaultConstitution = []string{
	"Do not cause harm to humans",
	"Respect human autonomy and informed consent",
	"Act transparently and be able to explain decisions",
	"Consider the wellbeing of all stakeholders",
	"Weigh long-term consequences alongside immediate outcomes",
}

// Decision is the agent's structured answer to a scenario.
type Decision struct {
	Action        string `json:"action"`
	Justification string `json:"justification"`
}

// Analysis is the agent's structured reading of an oracle critique.
type Analysis struct {
	AnalysisOfCritique    string   `json:"analysis_of_critique"`
	MissedDimensions      []string `json:"missed_dimensions"`
	Contradictions        []string `json:"contradictions"`
	SuggestedImprovements []string `json:"suggested_improvements"`
}

// Agent is one decision-making agent bound to a persisted constitution.
type Agent struct {
	ID           string
	Constitution []string
	Version      int

	db  Store
	llm llm.Client
}

// LoadOrCreate loads an agent from the store, creating it with the initial
// constitution (or DefaultConstitution when nil) if it does not exist yet.
func LoadOrCreate(db Store, client llm.Client, agentID string, initial []string) (*Agent, error) {
	rec, err := db.GetAgent(agentID)
	if err == nil {
		logging.Agent("loaded agent %s at version %d (%d principles)", agentID, rec.Version, len(rec.Constitution))
		return &Agent{
			ID:           agentID,
			Constitution: rec.Constitution,
			Version:      rec.Version,
			db:           db,
			llm:          client,
		}, nil
	}
	if err != store.ErrNotFound {
		return nil, fmt.Errorf("load agent %s: %w", agentID, err)
	}

	if initial == nil {
		initial = append([]string(nil), DefaultConstitution...)
	}
	a := &Agent{
		ID:           agentID,
		Constitution: initial,
		Version:      1,
		db:           db,
		llm:          client,
	}
	if err := a.Save(); err != nil {
		return nil, fmt.Errorf("create agent %s: %w", agentID, err)
	}
	logging.Agent("created agent %s at version 1", agentID)
	return a, nil
}

// Load loads an existing agent, failing on unknown IDs.
func Load(db Store, client llm.Client, agentID string) (*Agent, error) {
	rec, err := db.GetAgent(agentID)
	if err != nil {
		return nil, fmt.Errorf("load agent %s: %w", agentID, err)
	}
	return &Agent{
		ID:           agentID,
		Constitution: rec.Constitution,
		Version:      rec.Version,
		db:           db,
		llm:          client,
	}, nil
}

// Save persists the agent's current constitution and version.
func (a *Agent) Save() error {
	return a.db.UpsertAgent(&store.AgentRecord{
		AgentID:      a.ID,
		Constitution: a.Constitution,
		Version:      a.Version,
		LastUpdated:  time.Now().UTC(),
	})
}

// Commit replaces the constitution, bumps the version by one, and persists.
func (a *Agent) Commit(constitution []string) error {
	a.Constitution = append([]string(nil), constitution...)
	a.Version++
	if err := a.Save(); err != nil {
		return err
	}
	logging.Agent("agent %s committed constitution version %d", a.ID, a.Version)
	return nil
}

// ConstitutionString formats the principles as a bulleted prompt block.
func (a *Agent) ConstitutionString() string {
	var sb strings.Builder
	for _, p := range a.Constitution {
		sb.WriteString("- ")
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// DecideAction chooses one of the scenario's actions under the current
// constitution. A malformed model response degrades to an error-shaped
// Decision rather than failing; the second return reports degradation.
func (a *Agent) DecideAction(ctx context.Context, scenario *store.ScenarioRecord) (*Decision, bool) {
	prompt := fmt.Sprintf(`You are an AI Agent tasked with making a decision in an ethical dilemma.

Your Current Constitution (Version %d):
%s

The Scenario:
Title: %s
Description: %s
Possible Actions: %s

Task:
1. Analyze the scenario through the lens of your constitution.
2. Choose the single most ethically justifiable action from the list of possible actions.
3. Provide a clear, concise justification for your choice, explicitly referencing how it aligns with your constitutional principles.

Return your response as a valid JSON object with two keys: "action" and "justification".
Example: {"action": "Action A", "justification": "This aligns with my principle of..."}`,
		a.Version, a.ConstitutionString(), scenario.Title, scenario.Description, strings.Join(scenario.Actions, ", "))

	response, err := a.llm.Generate(ctx, prompt, true)
	if err != nil {
		logging.Agent("decision generation failed for agent %s: %v", a.ID, err)
		return fallbackDecision(err.Error()), true
	}

	var d Decision
	if uerr := json.Unmarshal([]byte(response), &d); uerr != nil || d.Action == "" {
		logging.Agent("decision response unparseable for agent %s: %.120s", a.ID, response)
		return fallbackDecision("failed to parse a structured decision from the model response"), true
	}
	// The model may answer with an action phrasing outside the offered
	// list. That is logged but tolerated; consumers see the text as-is.
	if !containsAction(scenario.Actions, d.Action) {
		logging.Agent("agent %s chose action %q outside the scenario's offered actions", a.ID, d.Action)
	}
	return &d, false
}

// AnalyzeCritique asks the model to read an oracle critique against the
// current constitution. Failures degrade to a minimal Analysis.
func (a *Agent) AnalyzeCritique(ctx context.Context, scenario *store.ScenarioRecord, decision *Decision, critique string) (*Analysis, bool) {
	prompt := fmt.Sprintf(`You are an AI Agent analyzing feedback on your ethical decision-making.

Your Current Constitution (Version %d):
%s

The Scenario You Faced:
Title: %s

Your Action and Justification:
Action: %s
Justification: %s

A "Wisdom Oracle" has provided the following critique:
%s

Analyze this critique and identify:
1. What ethical dimensions or considerations you missed
2. What tensions or contradictions exist in your current principles
3. What specific improvements could strengthen your ethical reasoning

Return your response as a valid JSON object with keys: "analysis_of_critique", "missed_dimensions", "contradictions", "suggested_improvements".`,
		a.Version, a.ConstitutionString(), scenario.Title, decision.Action, decision.Justification, critique)

	response, err := a.llm.Generate(ctx, prompt, true)
	if err != nil {
		logging.Agent("critique analysis failed for agent %s: %v", a.ID, err)
		return fallbackAnalysis(err.Error()), true
	}

	var an Analysis
	if uerr := json.Unmarshal([]byte(response), &an); uerr != nil || an.AnalysisOfCritique == "" {
		return fallbackAnalysis("failed to parse a structured analysis from the model response"), true
	}
	return &an, false
}

func fallbackDecision(cause string) *Decision {
	return &Decision{
		Action:        "Error",
		Justification: "Failed to generate a valid decision: " + cause,
	}
}

func fallbackAnalysis(cause string) *Analysis {
	return &Analysis{
		AnalysisOfCritique:    "Analysis unavailable: " + cause,
		MissedDimensions:      []string{},
		Contradictions:        []string{},
		SuggestedImprovements: []string{},
	}
}

func containsAction(actions []string, chosen string) bool {
	for _, a := range actions {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(chosen)) {
			return true
		}
	}
	return false
}
