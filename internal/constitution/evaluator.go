package constitution

import (
	"fmt"
	"strings"

	"aletheia/internal/logging"
)

// =============================================================================
// PRINCIPLE EVALUATOR - LEXICAL QUALITY SCORING
// =============================================================================

// Evaluator scores principles on bounded lexical heuristics to prevent
// oversimplification during evolution.
type Evaluator struct {
	// significantLossThreshold flags a per-dimension drop as significant
	significantLossThreshold float64
}

// NewEvaluator creates a principle evaluator with default thresholds.
func NewEvaluator() *Evaluator {
	return &Evaluator{significantLossThreshold: 0.3}
}

// ethicalMarkers groups terms that indicate specificity and depth.
// Eight fixed marker categories feed the specificity dimension.
var ethicalMarkers = map[string][]string{
	"stakeholder_awareness":  {"stakeholder", "affected parties", "community", "society", "individual", "collective"},
	"temporal_consideration": {"long-term", "short-term", "immediate", "future", "consequences", "lasting"},
	"transparency":           {"transparent", "explain", "justify", "clear", "accountable", "reasoning"},
	"specificity":            {"when", "how", "specific", "particular", "criteria", "conditions"},
	"balance":                {"balance", "weigh", "consider", "trade-off", "competing", "tension"},
	"action_guidance":        {"must", "should", "avoid", "ensure", "provide", "limit"},
	"ethical_frameworks":     {"utility", "duty", "virtue", "rights", "justice", "care", "harm"},
	"contextual_awareness":   {"context", "situation", "circumstances", "case", "scenario"},
}

var actionWords = []string{"must", "should", "will", "ensure", "provide", "avoid", "consider", "evaluate"}

var complexityIndicators = []string{"while", "but", "however", "although", "except", "unless", "when", "if"}

// Score evaluates a single principle across five dimensions, each computed
// by a capped count normalized to [0,1].
func (e *Evaluator) Score(principle string) Scores {
	lower := strings.ToLower(principle)
	var s Scores

	// Specificity: marker occurrences across all categories, capped.
	specificityCount := 0
	for _, markers := range ethicalMarkers {
		for _, marker := range markers {
			if strings.Contains(lower, marker) {
				specificityCount++
			}
		}
	}
	s.Specificity = capRatio(float64(specificityCount), 10)

	// Action guidance: directive verbs.
	actionCount := 0
	for _, word := range actionWords {
		if strings.Contains(lower, word) {
			actionCount++
		}
	}
	s.ActionGuidance = capRatio(float64(actionCount), 3)

	// Complexity acknowledgment: nuance connectives.
	complexityCount := 0
	for _, word := range complexityIndicators {
		if strings.Contains(lower, word) {
			complexityCount++
		}
	}
	s.Complexity = capRatio(float64(complexityCount), 2)

	// Detail: word count as a proxy for specificity.
	s.Detail = capRatio(float64(len(strings.Fields(principle))), 20)

	// Stakeholder awareness.
	stakeholderCount := 0
	for _, marker := range ethicalMarkers["stakeholder_awareness"] {
		if strings.Contains(lower, marker) {
			stakeholderCount++
		}
	}
	s.StakeholderAwareness = capRatio(float64(stakeholderCount), 2)

	s.Overall = (s.Specificity + s.ActionGuidance + s.Complexity + s.Detail + s.StakeholderAwareness) / 5.0
	return s
}

// Compare scores two principles and determines whether the new one is an
// acceptable replacement for the old.
func (e *Evaluator) Compare(oldPrinciple, newPrinciple string) Comparison {
	oldScores := e.Score(oldPrinciple)
	newScores := e.Score(newPrinciple)

	cmp := Comparison{
		OldScores:     oldScores,
		NewScores:     newScores,
		OverallDelta:  newScores.Overall - oldScores.Overall,
		IsImprovement: newScores.Overall >= oldScores.Overall,
	}

	oldDims := oldScores.dimensions()
	for dim, newScore := range newScores.dimensions() {
		diff := newScore - oldDims[dim]
		if diff < -e.significantLossThreshold {
			cmp.SignificantLosses = append(cmp.SignificantLosses, DimensionLoss{
				Dimension: dim,
				Loss:      -diff,
				OldScore:  oldDims[dim],
				NewScore:  newScore,
			})
		}
	}

	cmp.Recommendation = e.recommend(cmp)
	return cmp
}

// recommend applies the comparison decision rules in priority order.
func (e *Evaluator) recommend(cmp Comparison) string {
	if !cmp.IsImprovement && len(cmp.SignificantLosses) > 0 {
		losses := make([]string, len(cmp.SignificantLosses))
		for i, l := range cmp.SignificantLosses {
			losses[i] = fmt.Sprintf("%s (-%.0f%%)", l.Dimension, l.Loss*100)
		}
		return fmt.Sprintf("REJECT: New principle shows significant losses in: %s", strings.Join(losses, ", "))
	}
	if cmp.OverallDelta < -0.1 {
		return "REJECT: New principle is less specific and actionable overall"
	}
	if cmp.OverallDelta > 0.2 {
		return "APPROVE: New principle shows significant improvement"
	}
	return "NEUTRAL: Minimal difference - consider keeping more specific version"
}

// EvaluateChange evaluates an entire constitutional change by comparing
// mean overall scores and structural shrinkage.
func (e *Evaluator) EvaluateChange(oldConstitution, newConstitution []string) ChangeEvaluation {
	eval := ChangeEvaluation{}

	eval.AvgOldScore = e.meanOverall(oldConstitution)
	eval.AvgNewScore = e.meanOverall(newConstitution)

	// Allow removing up to 2 principles before flagging oversimplification.
	if len(newConstitution) < len(oldConstitution)-2 {
		eval.Warnings = append(eval.Warnings, fmt.Sprintf(
			"Constitution significantly reduced from %d to %d principles",
			len(oldConstitution), len(newConstitution)))
	}

	if eval.AvgNewScore < eval.AvgOldScore*0.6 {
		eval.Warnings = append(eval.Warnings, "New constitution appears significantly less specific")
	}

	switch {
	case len(eval.Warnings) > 0:
		eval.Recommendation = "RECONSIDER: " + strings.Join(eval.Warnings, "; ")
	case eval.AvgNewScore > eval.AvgOldScore:
		eval.Recommendation = "APPROVE: Constitution shows improved specificity and guidance"
	default:
		eval.Recommendation = "NEUTRAL: Consider retaining more specific principles"
	}

	logging.Evolution("constitution change evaluated: old=%.3f new=%.3f verdict=%s",
		eval.AvgOldScore, eval.AvgNewScore, Verdict(eval.Recommendation))

	return eval
}

func (e *Evaluator) meanOverall(constitution []string) float64 {
	if len(constitution) == 0 {
		return 0
	}
	total := 0.0
	for _, p := range constitution {
		total += e.Score(p).Overall
	}
	return total / float64(len(constitution))
}

func capRatio(count, divisor float64) float64 {
	v := count / divisor
	if v > 1.0 {
		return 1.0
	}
	return v
}
