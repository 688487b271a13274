// Package oracle evaluates proposed actions against a corpus of
// philosophical wisdom, retrieving supporting passages per ethical
// framework and assembling them into a critique context.
package oracle

// Framework is one ethical lens the oracle critiques through.
type Framework string

const (
	Utilitarian   Framework = "utilitarian"
	Deontological Framework = "deontological"
	VirtueEthics  Framework = "virtue_ethics"
	AISafety      Framework = "ai_safety"
	Buddhist      Framework = "buddhist"
	Confucian     Framework = "confucian"
	Stoic         Framework = "stoic"
	CareEthics    Framework = "care_ethics"
)

// AllFrameworks lists every framework in critique order. The merge step
// follows this order, so critique output is deterministic regardless of
// retrieval completion order.
var AllFrameworks = []Framework{
	Utilitarian,
	Deontological,
	VirtueEthics,
	AISafety,
	Buddhist,
	Confucian,
	Stoic,
	CareEthics,
}

// frameworkConfig tunes retrieval for one framework.
type frameworkConfig struct {
	// Keywords seed the retrieval query alongside the action and scenario.
	Keywords string
	// Weight scales the retrieval document limit.
	Weight float64
	// MinDocs below which the framework logs an insufficiency warning.
	MinDocs int
	// Description labels the framework in assembled context.
	Description string
}

var frameworkConfigs = map[Framework]frameworkConfig{
	Utilitarian: {
		Keywords:    "utility consequences greatest good happiness suffering outcome well-being harm benefit cost",
		Weight:      1.0,
		MinDocs:     2,
		Description: "Consequentialist ethics focused on maximizing overall well-being",
	},
	Deontological: {
		Keywords:    "duty rules obligation rights intent universal law categorical imperative means ends moral law",
		Weight:      1.0,
		MinDocs:     2,
		Description: "Duty-based ethics emphasizing moral rules and obligations",
	},
	VirtueEthics: {
		Keywords:    "character virtue flourishing compassion courage justice wisdom temperance prudence excellence",
		Weight:      1.0,
		MinDocs:     2,
		Description: "Character-based ethics focusing on moral virtues",
	},
	AISafety: {
		// Weighted above 1.0 so safety retrieval pulls more documents than the baseline.
		Keywords:    "alignment corrigibility instrumental convergence value lock-in existential risk control problem goal specification",
		Weight:      1.2,
		MinDocs:     1,
		Description: "AI-specific safety and alignment considerations",
	},
	Buddhist: {
		Keywords:    "compassion non-harm mindfulness interdependence suffering liberation wisdom meditation",
		Weight:      0.9,
		MinDocs:     1,
		Description: "Buddhist ethical principles emphasizing compassion and non-harm",
	},
	Confucian: {
		Keywords:    "benevolence ren ritual propriety li social harmony filial piety relationships duty",
		Weight:      0.9,
		MinDocs:     1,
		Description: "Confucian ethics emphasizing social harmony and relationships",
	},
	Stoic: {
		Keywords:    "virtue reason acceptance fate control wisdom courage justice temperance resilience",
		Weight:      0.8,
		MinDocs:     1,
		Description: "Stoic philosophy emphasizing virtue and rational acceptance",
	},
	CareEthics: {
		Keywords:    "care relationships responsibility context particularity empathy nurturing vulnerability",
		Weight:      0.9,
		MinDocs:     1,
		Description: "Ethics of care emphasizing relationships and responsibility",
	},
}

// docLimit returns the framework's retrieval limit after weight scaling.
func (fc frameworkConfig) docLimit(base int) int {
	limit := int(float64(base) * fc.Weight)
	if limit < 1 {
		limit = 1
	}
	return limit
}
