package constitution

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"aletheia/internal/config"
	"aletheia/internal/logging"
)

// =============================================================================
// CONSTITUTION EVOLUTION ENGINE
// =============================================================================
// Selects a mutation strategy from critique themes, coverage gaps, and the
// agent's maturity, applies it, and enforces structural integrity bounds.

// Engine mutates constitutions. The random source is injected so strategy
// selection stays deterministic under a fixed seed.
type Engine struct {
	cfg config.EvolutionConfig
	rng *rand.Rand
}

// NewEngine builds an evolution engine. A nil rng falls back to an
// unseeded source.
func NewEngine(cfg config.EvolutionConfig, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if cfg.MinPrinciples <= 0 {
		cfg.MinPrinciples = 3
	}
	if cfg.MaxPrinciples < cfg.MinPrinciples {
		cfg.MaxPrinciples = 10
	}
	if cfg.CoverageGapThreshold <= 0 {
		cfg.CoverageGapThreshold = 0.2
	}
	if cfg.DuplicateOverlapRatio <= 0 {
		cfg.DuplicateOverlapRatio = 0.7
	}
	return &Engine{cfg: cfg, rng: rng}
}

// defaultWeights order mirrors AllStrategies.
var defaultWeights = map[Strategy]float64{
	StrategyRefinement: 0.35,
	StrategyAddition:   0.25,
	StrategyRemoval:    0.10,
	StrategyMerger:     0.15,
	StrategySplitting:  0.10,
	StrategyReordering: 0.05,
}

// additionTemplates fill in a new principle for an under-covered dimension.
var additionTemplates = map[string]string{
	"harm_prevention":           "Actively work to prevent and minimize harm to all affected parties",
	"stakeholder_consideration": "Consider the interests and wellbeing of all stakeholders affected by decisions",
	"transparency":              "Be transparent about reasoning and clearly explain the basis for decisions",
	"autonomy_respect":          "Respect the autonomy and informed consent of individuals affected by actions",
	"contextual_awareness":      "Adapt judgments to the specific context and circumstances of each situation",
	"long_term_thinking":        "Weigh long-term consequences and sustainability alongside immediate outcomes",
}

// refinementClauses append a clarifying tail keyed by critique theme.
var refinementClauses = map[string]string{
	"harm":         "while carefully weighing potential harms",
	"fairness":     "ensuring fair and equitable treatment",
	"autonomy":     "respecting the agency of those involved",
	"transparency": "with clear and explainable reasoning",
	"stakeholder":  "accounting for all affected stakeholders",
	"long_term":    "considering long-term consequences",
}

const implementationGuidance = "Translate principles into concrete, reviewable steps before acting"

const fallbackPrinciple = "Act with wisdom and consideration for all affected parties"

// SelectStrategy chooses the next mutation strategy for a constitution of the
// given size and maturity. Thresholds are deterministic; within a band the
// choice draws from the injected random source.
func (e *Engine) SelectStrategy(constitution []string, version int) Strategy {
	size := len(constitution)

	if size < e.cfg.MinPrinciples+1 {
		return StrategyAddition
	}
	if size >= e.cfg.MaxPrinciples-1 {
		if e.rng.Float64() < 0.5 {
			return StrategyMerger
		}
		return StrategyRemoval
	}

	coverage := AssessCoverage(constitution)
	for _, dim := range CoreDimensions {
		if coverage[dim] < e.cfg.CoverageGapThreshold {
			if e.rng.Float64() < 0.7 {
				return StrategyAddition
			}
			break
		}
	}

	if version < 10 && e.rng.Float64() < 0.4 {
		explore := []Strategy{StrategyAddition, StrategySplitting, StrategyRefinement}
		return explore[e.rng.Intn(len(explore))]
	}
	if version > 20 && e.rng.Float64() < 0.7 {
		return StrategyRefinement
	}

	return e.weightedRandom()
}

func (e *Engine) weightedRandom() Strategy {
	total := 0.0
	for _, s := range AllStrategies {
		total += defaultWeights[s]
	}
	r := e.rng.Float64() * total
	for _, s := range AllStrategies {
		r -= defaultWeights[s]
		if r < 0 {
			return s
		}
	}
	return StrategyRefinement
}

// SuggestEvolution selects a strategy, applies its operator, and returns an
// integrity-enforced candidate constitution.
func (e *Engine) SuggestEvolution(constitution []string, critique string, version int) Proposal {
	strategy := e.SelectStrategy(constitution, version)
	logging.Evolution("selected strategy %s (size=%d version=%d)", strategy, len(constitution), version)
	return e.Apply(strategy, constitution, critique)
}

// Apply runs a specific mutation operator and enforces integrity on the
// result. Exposed so callers can direct a strategy instead of selecting one.
func (e *Engine) Apply(strategy Strategy, constitution []string, critique string) Proposal {
	themes := ExtractThemes(critique)

	var candidate []string
	var reasoning string
	switch strategy {
	case StrategyAddition:
		candidate, reasoning = e.addPrinciple(constitution)
	case StrategyRemoval:
		candidate, reasoning = e.removePrinciple(constitution)
	case StrategyMerger:
		candidate, reasoning = e.mergePrinciples(constitution)
	case StrategySplitting:
		candidate, reasoning = e.splitPrinciple(constitution)
	case StrategyReordering:
		candidate, reasoning = e.reorderPrinciples(constitution)
	default:
		candidate, reasoning = e.refinePrinciple(constitution, themes)
		strategy = StrategyRefinement
	}

	final := e.EnsureIntegrity(candidate)
	if len(final) != len(candidate) {
		reasoning += fmt.Sprintf(" (integrity enforcement adjusted size %d -> %d)", len(candidate), len(final))
	}
	return Proposal{Constitution: final, Strategy: strategy, Reasoning: reasoning}
}

// ===== MUTATION OPERATORS =====

func (e *Engine) refinePrinciple(constitution []string, themes []string) ([]string, string) {
	if len(constitution) == 0 {
		return []string{fallbackPrinciple}, "refined empty constitution into a baseline principle"
	}
	out := append([]string(nil), constitution...)
	idx := e.rng.Intn(len(out))
	target := out[idx]

	if len(target) > 300 {
		// Very long principles get compressed rather than extended.
		short := firstSentence(target)
		out[idx] = short
		return out, fmt.Sprintf("compressed an overlong principle (%d -> %d chars)", len(target), len(short))
	}

	clause := "with careful attention to context"
	theme := "context"
	if len(themes) > 0 {
		theme = themes[e.rng.Intn(len(themes))]
		if c, ok := refinementClauses[theme]; ok {
			clause = c
		}
	}
	out[idx] = strings.TrimSuffix(strings.TrimSpace(target), ".") + ", " + clause
	return out, fmt.Sprintf("refined principle %d to address the %s theme", idx+1, theme)
}

func (e *Engine) addPrinciple(constitution []string) ([]string, string) {
	coverage := AssessCoverage(constitution)
	dim := leastCoveredDimension(coverage)
	out := append([]string(nil), constitution...)
	out = append(out, additionTemplates[dim])
	return out, fmt.Sprintf("added a principle for the under-covered %s dimension (coverage %.2f)", dim, coverage[dim])
}

func (e *Engine) removePrinciple(constitution []string) ([]string, string) {
	if len(constitution) <= e.cfg.MinPrinciples {
		return append([]string(nil), constitution...), "removal skipped: constitution already at minimum size"
	}
	shortest := 0
	for i, p := range constitution {
		if len(strings.Fields(p)) < len(strings.Fields(constitution[shortest])) {
			shortest = i
		}
	}
	out := make([]string, 0, len(constitution)-1)
	out = append(out, constitution[:shortest]...)
	out = append(out, constitution[shortest+1:]...)
	return out, fmt.Sprintf("removed the least specific principle (%d words)", len(strings.Fields(constitution[shortest])))
}

func (e *Engine) mergePrinciples(constitution []string) ([]string, string) {
	if len(constitution) < 2 {
		return append([]string(nil), constitution...), "merger skipped: fewer than two principles"
	}
	i := e.rng.Intn(len(constitution))
	j := e.rng.Intn(len(constitution) - 1)
	if j >= i {
		j++
	}
	if i > j {
		i, j = j, i
	}
	merged := strings.TrimSuffix(strings.TrimSpace(constitution[i]), ".") + ", and " +
		lowerFirst(strings.TrimSpace(constitution[j]))
	out := make([]string, 0, len(constitution)-1)
	for k, p := range constitution {
		if k == i {
			out = append(out, merged)
			continue
		}
		if k == j {
			continue
		}
		out = append(out, p)
	}
	return out, fmt.Sprintf("merged principles %d and %d into one", i+1, j+1)
}

func (e *Engine) splitPrinciple(constitution []string) ([]string, string) {
	if len(constitution) == 0 {
		return []string{fallbackPrinciple}, "split skipped: empty constitution"
	}
	longest := 0
	for i, p := range constitution {
		if len(p) > len(constitution[longest]) {
			longest = i
		}
	}
	target := constitution[longest]
	if idx := strings.Index(target, " and "); idx > 0 {
		first := strings.TrimSpace(target[:idx])
		second := upperFirst(strings.TrimSpace(target[idx+len(" and "):]))
		out := make([]string, 0, len(constitution)+1)
		out = append(out, constitution[:longest]...)
		out = append(out, first, second)
		out = append(out, constitution[longest+1:]...)
		return out, fmt.Sprintf("split principle %d at its conjunction", longest+1)
	}
	out := append([]string(nil), constitution...)
	out = append(out, implementationGuidance)
	return out, "no conjunction found; appended an implementation-guidance principle instead"
}

func (e *Engine) reorderPrinciples(constitution []string) ([]string, string) {
	out := append([]string(nil), constitution...)
	e.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, "reordered principles to shift emphasis; content unchanged"
}

// ===== HELPERS =====

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// sortByLengthAscending keeps the shortest n principles, biasing the
// constitution toward conciseness when it overflows.
func sortByLengthAscending(principles []string, n int) []string {
	out := append([]string(nil), principles...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) < len(out[j]) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
