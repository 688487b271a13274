// Package constitution implements principle quality evaluation and
// strategy-driven evolution of an agent's ordered principle list.
package constitution

// Strategy is one of the fixed constitutional mutation operators.
type Strategy string

const (
	StrategyRefinement Strategy = "refinement" // Refine existing principles
	StrategyAddition   Strategy = "addition"   // Add new principles
	StrategyRemoval    Strategy = "removal"    // Remove redundant principles
	StrategyMerger     Strategy = "merger"     // Merge similar principles
	StrategySplitting  Strategy = "splitting"  // Split complex principles
	StrategyReordering Strategy = "reordering" // Change priority order
)

// AllStrategies lists every mutation strategy.
var AllStrategies = []Strategy{
	StrategyRefinement,
	StrategyAddition,
	StrategyRemoval,
	StrategyMerger,
	StrategySplitting,
	StrategyReordering,
}

// Proposal is a candidate constitution produced by the evolution engine.
type Proposal struct {
	Constitution []string `json:"constitution"`
	Strategy     Strategy `json:"strategy"`
	Reasoning    string   `json:"reasoning"`
}

// Scores holds per-dimension quality scores for one principle, each in [0,1].
type Scores struct {
	Specificity          float64 `json:"specificity"`
	ActionGuidance       float64 `json:"action_guidance"`
	Complexity           float64 `json:"complexity"`
	Detail               float64 `json:"detail"`
	StakeholderAwareness float64 `json:"stakeholder_awareness"`
	Overall              float64 `json:"overall"`
}

// dimensions returns the five scored dimensions by name, excluding overall.
func (s Scores) dimensions() map[string]float64 {
	return map[string]float64{
		"specificity":           s.Specificity,
		"action_guidance":       s.ActionGuidance,
		"complexity":            s.Complexity,
		"detail":                s.Detail,
		"stakeholder_awareness": s.StakeholderAwareness,
	}
}

// DimensionLoss records a significant per-dimension regression.
type DimensionLoss struct {
	Dimension string  `json:"dimension"`
	Loss      float64 `json:"loss"`
	OldScore  float64 `json:"old_score"`
	NewScore  float64 `json:"new_score"`
}

// Comparison is the result of comparing two principles.
type Comparison struct {
	OldScores         Scores          `json:"old_scores"`
	NewScores         Scores          `json:"new_scores"`
	OverallDelta      float64         `json:"overall_delta"`
	IsImprovement     bool            `json:"is_improvement"`
	SignificantLosses []DimensionLoss `json:"significant_losses"`
	Recommendation    string          `json:"recommendation"`
}

// ChangeEvaluation is the result of evaluating a whole-constitution change.
type ChangeEvaluation struct {
	AvgOldScore    float64  `json:"avg_old_score"`
	AvgNewScore    float64  `json:"avg_new_score"`
	Warnings       []string `json:"warnings"`
	Recommendation string   `json:"recommendation"`
}

// Verdict extracts the leading recommendation keyword (APPROVE, RECONSIDER,
// REJECT, or NEUTRAL) from a recommendation string.
func Verdict(recommendation string) string {
	for _, v := range []string{"REJECT", "RECONSIDER", "APPROVE", "NEUTRAL"} {
		if len(recommendation) >= len(v) && recommendation[:len(v)] == v {
			return v
		}
	}
	return "NEUTRAL"
}
