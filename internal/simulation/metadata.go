package simulation

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"aletheia/internal/store"
)

// =============================================================================
// SCENARIO METADATA ENRICHMENT
// =============================================================================

// Metadata annotates a selected scenario with analysis hints.
type Metadata struct {
	Complexity             Complexity     `json:"complexity"`
	EstimatedDecisionTime  int            `json:"estimated_decision_time_minutes"`
	RelevantFrameworks     []string       `json:"ethical_frameworks_relevant"`
	StakeholderAnalysis    map[string]int `json:"stakeholder_analysis"`
	MoralWeight            float64        `json:"moral_weight_score"`
	SelectedAt             time.Time      `json:"selection_timestamp"`
}

// SelectedScenario is a scenario plus its selection metadata.
type SelectedScenario struct {
	*store.ScenarioRecord
	Metadata Metadata `json:"metadata"`
}

var decisionTimes = map[Complexity]int{
	Simple:   2,
	Moderate: 5,
	Complex:  10,
	Extreme:  20,
}

var relevanceKeywords = map[string][]string{
	"utilitarian":   {"harm", "benefit", "consequence", "utility", "greatest good", "happiness"},
	"deontological": {"duty", "right", "wrong", "rule", "obligation", "principle"},
	"virtue_ethics": {"character", "virtue", "courage", "compassion", "wisdom", "integrity"},
	"care_ethics":   {"relationship", "care", "responsibility", "empathy", "vulnerability"},
}

var relevanceOrder = []string{"utilitarian", "deontological", "virtue_ethics", "care_ethics"}

var stakeholderPatterns = map[string][]string{
	"individuals":            {"person", "people", "individual", "human", "patient"},
	"groups":                 {"group", "community", "society", "population", "family"},
	"institutions":           {"hospital", "company", "organization", "government", "institution"},
	"vulnerable_populations": {"elderly", "children", "disabled", "poor", "minority"},
}

var highImpactTerms = []string{"death", "life", "harm", "suffering", "pain", "critical", "emergency"}

var numberPattern = regexp.MustCompile(`\b(\d+)\b`)

// enhance attaches metadata to a scenario.
func enhance(sc *store.ScenarioRecord, complexity Complexity) *SelectedScenario {
	return &SelectedScenario{
		ScenarioRecord: sc,
		Metadata: Metadata{
			Complexity:            complexity,
			EstimatedDecisionTime: decisionTimes[complexity],
			RelevantFrameworks:    relevantFrameworks(sc),
			StakeholderAnalysis:   analyzeStakeholders(sc),
			MoralWeight:           moralWeight(sc),
			SelectedAt:            time.Now().UTC(),
		},
	}
}

// relevantFrameworks lists the frameworks whose vocabulary the scenario
// touches, defaulting to utilitarian.
func relevantFrameworks(sc *store.ScenarioRecord) []string {
	text := strings.ToLower(sc.Description + " " + strings.Join(sc.Actions, " "))
	var relevant []string
	for _, fw := range relevanceOrder {
		for _, kw := range relevanceKeywords[fw] {
			if strings.Contains(text, kw) {
				relevant = append(relevant, fw)
				break
			}
		}
	}
	if len(relevant) == 0 {
		return []string{"utilitarian"}
	}
	return relevant
}

// analyzeStakeholders counts stakeholder category mentions in the
// description. Categories with zero mentions are omitted.
func analyzeStakeholders(sc *store.ScenarioRecord) map[string]int {
	text := strings.ToLower(sc.Description)
	counts := make(map[string]int)
	for category, patterns := range stakeholderPatterns {
		n := 0
		for _, p := range patterns {
			n += strings.Count(text, p)
		}
		if n > 0 {
			counts[category] = n
		}
	}
	return counts
}

// moralWeight scores scenario gravity in [0,1] from high-impact vocabulary
// and the largest plausible affected-people count mentioned.
func moralWeight(sc *store.ScenarioRecord) float64 {
	text := strings.ToLower(sc.Description)

	weight := 0.0
	for _, term := range highImpactTerms {
		weight += float64(strings.Count(text, term)) * 0.2
	}

	maxAffected := 0
	for _, m := range numberPattern.FindAllString(text, -1) {
		n, err := strconv.Atoi(m)
		if err != nil || n < 1 || n > 1000000 {
			continue
		}
		if n > maxAffected {
			maxAffected = n
		}
	}
	if maxAffected > 0 {
		scaled := float64(maxAffected) / 1000.0
		if scaled > 1.0 {
			scaled = 1.0
		}
		weight += scaled
	}

	if weight > 1.0 {
		return 1.0
	}
	return weight
}
