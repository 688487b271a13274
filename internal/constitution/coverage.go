package constitution

import "strings"

// =============================================================================
// CRITIQUE THEMES AND DIMENSION COVERAGE
// =============================================================================

// CoreDimensions are the ethical dimensions a constitution should maintain
// coverage over, in priority order.
var CoreDimensions = []string{
	"harm_prevention",
	"stakeholder_consideration",
	"transparency",
	"autonomy_respect",
	"contextual_awareness",
	"long_term_thinking",
}

// dimensionKeywords maps each core dimension to the terms that indicate a
// principle addresses it.
var dimensionKeywords = map[string][]string{
	"harm_prevention":           {"harm", "prevent", "minimize", "avoid damage"},
	"stakeholder_consideration": {"stakeholder", "affected", "parties", "community"},
	"transparency":              {"transparent", "explain", "clear", "justify"},
	"autonomy_respect":          {"autonomy", "choice", "consent", "agency"},
	"contextual_awareness":      {"context", "situation", "circumstance", "adapt"},
	"long_term_thinking":        {"long-term", "future", "sustainable", "lasting"},
}

// themeKeywords maps critique themes to their indicator terms.
var themeKeywords = map[string][]string{
	"harm":         {"harm", "damage", "hurt", "suffering", "injury"},
	"fairness":     {"fair", "just", "equitable", "bias", "discriminat"},
	"autonomy":     {"autonomy", "choice", "consent", "freedom", "agency"},
	"transparency": {"transparent", "explain", "clear", "opaque", "hidden"},
	"stakeholder":  {"stakeholder", "affected", "parties", "community", "individual"},
	"long_term":    {"long-term", "future", "sustainable", "consequence", "lasting"},
}

// themeOrder fixes iteration order so theme extraction is deterministic.
var themeOrder = []string{"harm", "fairness", "autonomy", "transparency", "stakeholder", "long_term"}

// ExtractThemes pulls key ethical themes out of free-form critique text.
func ExtractThemes(critique string) []string {
	lower := strings.ToLower(critique)
	var themes []string
	for _, theme := range themeOrder {
		for _, kw := range themeKeywords[theme] {
			if strings.Contains(lower, kw) {
				themes = append(themes, theme)
				break
			}
		}
	}
	return themes
}

// AssessCoverage computes, per core dimension, the fraction of principles
// that lexically address it.
func AssessCoverage(constitution []string) map[string]float64 {
	coverage := make(map[string]float64, len(CoreDimensions))
	for _, dim := range CoreDimensions {
		coverage[dim] = 0
	}
	if len(constitution) == 0 {
		return coverage
	}

	for _, principle := range constitution {
		lower := strings.ToLower(principle)
		for _, dim := range CoreDimensions {
			for _, kw := range dimensionKeywords[dim] {
				if strings.Contains(lower, kw) {
					coverage[dim]++
					break
				}
			}
		}
	}

	for dim := range coverage {
		coverage[dim] /= float64(len(constitution))
	}
	return coverage
}

// leastCoveredDimension returns the core dimension with the lowest coverage,
// preferring earlier dimensions on ties.
func leastCoveredDimension(coverage map[string]float64) string {
	best := CoreDimensions[0]
	for _, dim := range CoreDimensions[1:] {
		if coverage[dim] < coverage[best] {
			best = dim
		}
	}
	return best
}
