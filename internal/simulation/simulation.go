// Package simulation selects ethical scenarios for learning cycles, either
// uniformly at random or adaptively from the agent's recent performance, and
// records interaction history.
package simulation

import (
	"encoding/json"
	"math/rand"
	"time"

	"aletheia/internal/logging"
	"aletheia/internal/store"
)

// Complexity is a scenario difficulty band.
type Complexity string

const (
	Simple   Complexity = "simple"
	Moderate Complexity = "moderate"
	Complex  Complexity = "complex"
	Extreme  Complexity = "extreme"
)

// complexityRanges maps each band to its estimated-complexity interval.
var complexityRanges = map[Complexity][2]float64{
	Simple:   {0, 1.0},
	Moderate: {1.0, 2.0},
	Complex:  {2.0, 3.0},
	Extreme:  {3.0, 10.0},
}

// Store is the persistence surface the simulation needs.
type Store interface {
	RandomScenario() (*store.ScenarioRecord, error)
	ListScenarios() ([]store.ScenarioRecord, error)
	RecentInteractions(agentID string, limit int) ([]store.InteractionRecord, error)
	AppendInteraction(rec *store.InteractionRecord) error
}

// Performance summarizes an agent's recent learning history.
type Performance struct {
	AverageScore     float64 `json:"average_score"`
	Consistency      float64 `json:"consistency"`
	LearningRate     float64 `json:"learning_rate"`
	InteractionCount int     `json:"interaction_count"`
}

// Simulation selects scenarios and logs interactions.
type Simulation struct {
	db  Store
	rng *rand.Rand
}

// New builds a simulation over the given store. A nil rng falls back to an
// unseeded source.
func New(db Store, rng *rand.Rand) *Simulation {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Simulation{db: db, rng: rng}
}

// RandomScenario returns a uniformly random scenario with metadata attached.
func (s *Simulation) RandomScenario() (*SelectedScenario, error) {
	sc, err := s.db.RandomScenario()
	if err != nil {
		return nil, err
	}
	return enhance(sc, complexityOf(sc)), nil
}

// AdaptiveScenario picks a scenario whose estimated complexity matches the
// agent's maturity and recent performance. When no scenario lands in the
// target band, selection falls back to uniform random.
func (s *Simulation) AdaptiveScenario(agentID string, agentVersion int) (*SelectedScenario, error) {
	perf := s.AnalyzePerformance(agentID)
	target := targetComplexity(agentVersion, perf)

	scenarios, err := s.db.ListScenarios()
	if err != nil || len(scenarios) == 0 {
		logging.Simulation("adaptive selection falling back to random for agent %s", agentID)
		return s.RandomScenario()
	}

	bounds := complexityRanges[target]
	var inBand []store.ScenarioRecord
	for _, sc := range scenarios {
		est := estimatedComplexity(&sc)
		if est >= bounds[0] && est < bounds[1] {
			inBand = append(inBand, sc)
		}
	}
	if len(inBand) == 0 {
		logging.Simulation("no %s scenarios available for agent %s, using random", target, agentID)
		return s.RandomScenario()
	}

	chosen := inBand[s.rng.Intn(len(inBand))]
	logging.Simulation("adaptive selection for agent %s: %q (complexity=%s, avg=%.2f)",
		agentID, chosen.Title, target, perf.AverageScore)
	return enhance(&chosen, target), nil
}

// AnalyzePerformance scores the agent's last ten interactions. Missing
// history yields neutral midpoint metrics.
func (s *Simulation) AnalyzePerformance(agentID string) Performance {
	neutral := Performance{AverageScore: 0.5, Consistency: 0.5, LearningRate: 0.5}

	recent, err := s.db.RecentInteractions(agentID, 10)
	if err != nil || len(recent) == 0 {
		return neutral
	}

	minScore, maxScore := 1.0, 0.0
	total := 0.0
	committed := 0
	for _, it := range recent {
		score := scoreInteraction(&it)
		total += score
		if score < minScore {
			minScore = score
		}
		if score > maxScore {
			maxScore = score
		}
		if it.Committed {
			committed++
		}
	}

	consistency := 1.0 - (maxScore - minScore)
	if consistency < 0 {
		consistency = 0
	}
	return Performance{
		AverageScore:     total / float64(len(recent)),
		Consistency:      consistency,
		LearningRate:     float64(committed) / float64(len(recent)),
		InteractionCount: len(recent),
	}
}

// reflectionProbe is the subset of reflection JSON used for quality scoring.
type reflectionProbe struct {
	AnalysisOfCritique string `json:"analysis_of_critique"`
	ReasoningForChange string `json:"reasoning_for_change"`
}

// scoreInteraction estimates interaction quality from reflection depth and
// whether the cycle produced a committed change.
func scoreInteraction(it *store.InteractionRecord) float64 {
	score := 0.5

	var probe reflectionProbe
	if err := json.Unmarshal([]byte(it.Reflection), &probe); err == nil {
		if len(probe.AnalysisOfCritique) > 100 {
			score += 0.1
		}
		if len(probe.ReasoningForChange) > 100 {
			score += 0.1
		}
	}
	if it.Committed {
		score += 0.2
	}
	if it.Degraded {
		score -= 0.2
	}

	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}

// targetComplexity maps agent maturity and performance to a difficulty band.
func targetComplexity(agentVersion int, perf Performance) Complexity {
	base := float64(agentVersion) / 10.0
	if base > 1.0 {
		base = 1.0
	}

	if perf.AverageScore > 0.8 && perf.Consistency > 0.7 {
		base += 0.2
	} else if perf.AverageScore < 0.3 {
		base -= 0.3
	}

	switch {
	case base < 0.3:
		return Simple
	case base < 0.6:
		return Moderate
	case base < 0.8:
		return Complex
	default:
		return Extreme
	}
}

// estimatedComplexity scores a scenario from its action count and
// description length.
func estimatedComplexity(sc *store.ScenarioRecord) float64 {
	actionCount := len(sc.Actions)
	if actionCount == 0 {
		actionCount = 3
	}
	descLen := len(sc.Description)
	if descLen == 0 {
		descLen = 100
	}
	return float64(actionCount)*0.2 + float64(descLen)*0.001
}

// complexityOf bands a scenario by its estimated complexity.
func complexityOf(sc *store.ScenarioRecord) Complexity {
	est := estimatedComplexity(sc)
	for _, band := range []Complexity{Simple, Moderate, Complex} {
		if est < complexityRanges[band][1] {
			return band
		}
	}
	return Extreme
}

// LogInteraction appends one immutable history record for a completed cycle.
func (s *Simulation) LogInteraction(rec *store.InteractionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.db.AppendInteraction(rec); err != nil {
		return err
	}
	logging.Simulation("logged interaction for agent %s: scenario=%d v%d->v%d committed=%v",
		rec.AgentID, rec.ScenarioID, rec.VersionBefore, rec.VersionAfter, rec.Committed)
	return nil
}
