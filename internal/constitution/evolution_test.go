package constitution

import (
	"math/rand"
	"sort"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aletheia/internal/config"
)

func testEngine(seed int64) *Engine {
	cfg := config.EvolutionConfig{
		MinPrinciples:         3,
		MaxPrinciples:         10,
		CoverageGapThreshold:  0.2,
		DuplicateOverlapRatio: 0.7,
	}
	return NewEngine(cfg, rand.New(rand.NewSource(seed)))
}

// fullCoverage touches every core dimension across its three principles.
var fullCoverage = []string{
	"Prevent harm to all stakeholders in every situation",
	"Explain decisions clearly and respect individual autonomy and consent",
	"Consider long-term and sustainable outcomes adapted to context",
}

func TestSelectStrategy_ForcedAdditionAtMinimum(t *testing.T) {
	for seed := int64(0); seed < 25; seed++ {
		e := testEngine(seed)
		got := e.SelectStrategy(fullCoverage, 5)
		require.Equal(t, StrategyAddition, got, "seed %d", seed)
	}
}

func TestSelectStrategy_ShrinksNearMaximum(t *testing.T) {
	big := make([]string, 9)
	for i := range big {
		big[i] = fullCoverage[i%len(fullCoverage)] + strings.Repeat(" again", i)
	}
	for seed := int64(0); seed < 25; seed++ {
		e := testEngine(seed)
		got := e.SelectStrategy(big, 5)
		require.Contains(t, []Strategy{StrategyMerger, StrategyRemoval}, got, "seed %d", seed)
	}
}

func TestSelectStrategy_Deterministic(t *testing.T) {
	mid := make([]string, 6)
	for i := range mid {
		mid[i] = fullCoverage[i%len(fullCoverage)] + strings.Repeat(" more", i)
	}
	a := testEngine(42).SelectStrategy(mid, 15)
	b := testEngine(42).SelectStrategy(mid, 15)
	assert.Equal(t, a, b)
}

func TestSuggestEvolution_SameSeedSameProposal(t *testing.T) {
	critique := "The action risks harm and ignores stakeholder consent"
	p1 := testEngine(7).SuggestEvolution(fullCoverage, critique, 4)
	p2 := testEngine(7).SuggestEvolution(fullCoverage, critique, 4)
	if diff := cmp.Diff(p1, p2); diff != "" {
		t.Errorf("proposals differ under identical seed (-first +second):\n%s", diff)
	}
}

func TestApply_BoundsInvariant(t *testing.T) {
	e := testEngine(1)
	inputs := [][]string{
		fullCoverage,
		append(append([]string(nil), fullCoverage...), fullCoverage[0]+" extended", fullCoverage[1]+" extended"),
		make10(),
	}
	for _, in := range inputs {
		for _, strategy := range AllStrategies {
			p := e.Apply(strategy, in, "harm and fairness concerns")
			assert.GreaterOrEqual(t, len(p.Constitution), 3, "strategy %s", strategy)
			assert.LessOrEqual(t, len(p.Constitution), 10, "strategy %s", strategy)
		}
	}
}

func make10() []string {
	return []string{
		"Prevent harm to all stakeholders in every situation",
		"Explain decisions clearly and respect individual autonomy and consent",
		"Consider long-term and sustainable outcomes adapted to context",
		"Weigh competing interests before committing to irreversible actions",
		"Disclose uncertainty honestly rather than projecting false confidence",
		"Escalate novel dilemmas for human review instead of improvising",
		"Treat similar cases alike unless a relevant difference justifies otherwise",
		"Limit data collection to what the task strictly requires",
		"Preserve the ability to reverse course when new evidence emerges",
		"Accept accountability for outcomes, including unintended ones",
	}
}

func TestApply_AdditionAtMaximumTrimsBack(t *testing.T) {
	e := testEngine(3)
	p := e.Apply(StrategyAddition, make10(), "")
	assert.Len(t, p.Constitution, 10)
	assert.Equal(t, StrategyAddition, p.Strategy)
}

func TestApply_RemovalSkippedAtMinimum(t *testing.T) {
	e := testEngine(3)
	p := e.Apply(StrategyRemoval, fullCoverage, "")
	assert.Len(t, p.Constitution, 3)
	assert.Contains(t, p.Reasoning, "skipped")
}

func TestApply_RemovalDropsFewestWords(t *testing.T) {
	e := testEngine(3)
	in := append([]string{"Be fair"}, fullCoverage...)
	p := e.Apply(StrategyRemoval, in, "")
	assert.NotContains(t, p.Constitution, "Be fair")
	assert.Len(t, p.Constitution, 3)
}

func TestApply_SplittingOnConjunction(t *testing.T) {
	e := testEngine(3)
	in := []string{
		"Short one here",
		"Another short principle",
		"Weigh every stakeholder interest against systemic effects and document the tradeoffs made",
	}
	p := e.Apply(StrategySplitting, in, "")
	assert.Len(t, p.Constitution, 4)
	assert.Contains(t, p.Constitution, "Weigh every stakeholder interest against systemic effects")
	assert.Contains(t, p.Constitution, "Document the tradeoffs made")
}

func TestApply_ReorderingPreservesContent(t *testing.T) {
	in := make10()[:6]
	p := testEngine(9).Apply(StrategyReordering, in, "")
	require.Len(t, p.Constitution, len(in))

	want := append([]string(nil), in...)
	got := append([]string(nil), p.Constitution...)
	sort.Strings(want)
	sort.Strings(got)
	assert.Equal(t, want, got)
}

func TestExtractThemes(t *testing.T) {
	themes := ExtractThemes("This decision causes harm, ignores consent, and hides its bias from affected parties")
	assert.Equal(t, []string{"harm", "fairness", "autonomy", "stakeholder"}, themes)

	assert.Empty(t, ExtractThemes("nothing relevant here"))
}

func TestAssessCoverage(t *testing.T) {
	coverage := AssessCoverage(fullCoverage)
	for _, dim := range CoreDimensions {
		assert.Greater(t, coverage[dim], 0.0, "dimension %s", dim)
	}

	empty := AssessCoverage(nil)
	for _, dim := range CoreDimensions {
		assert.Zero(t, empty[dim])
	}
}

func TestEnsureIntegrity_Idempotent(t *testing.T) {
	e := testEngine(11)
	messy := append(make10(),
		"",
		strings.Repeat("This clause weighs stakeholder outcomes against duty. ", 15),
		"Prevent harm to all stakeholders in every situation",
		"Prevent harm to all the stakeholders in every single situation",
		"Another overflow entry to exceed the size ceiling",
	)

	once := e.EnsureIntegrity(messy)
	twice := e.EnsureIntegrity(once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("EnsureIntegrity not idempotent (-once +twice):\n%s", diff)
	}
}

func TestEnsureIntegrity_DedupeKeepsFirst(t *testing.T) {
	e := testEngine(11)
	out := e.EnsureIntegrity([]string{
		"Prevent harm to all stakeholders in every situation",
		"Prevent harm to all the stakeholders in every situation",
		"Explain decisions clearly and respect individual autonomy",
		"Consider long-term and sustainable outcomes adapted to context",
	})
	assert.Contains(t, out, "Prevent harm to all stakeholders in every situation")
	assert.NotContains(t, out, "Prevent harm to all the stakeholders in every situation")
}

func TestEnsureIntegrity_ShortensOverlongPrinciples(t *testing.T) {
	e := testEngine(11)
	long := strings.Repeat("A very specific obligation applies in this circumstance. ", 12)
	out := e.EnsureIntegrity([]string{long, fullCoverage[0], fullCoverage[1]})
	for _, p := range out {
		assert.LessOrEqual(t, len(p), hardCap)
	}
}

func TestEnsureIntegrity_PadsBelowMinimum(t *testing.T) {
	e := testEngine(11)
	out := e.EnsureIntegrity([]string{"Only one principle remains"})
	assert.GreaterOrEqual(t, len(out), 3)
	assert.Equal(t, "Only one principle remains", out[0])
}

func TestRefinePrinciple_CompressesOverlongToFirstSentence(t *testing.T) {
	e := testEngine(7)
	long := "Weigh the interests of every affected party before acting. " +
		strings.Repeat("Then revisit the weighing whenever new evidence surfaces about the situation at hand. ", 4)
	require.Greater(t, len(long), 300)

	out, reasoning := e.refinePrinciple([]string{long}, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "Weigh the interests of every affected party before acting.", out[0])
	assert.Contains(t, reasoning, "compressed")
}

func TestFirstSentence(t *testing.T) {
	assert.Equal(t, "Do no harm.", firstSentence("Do no harm. Then explain why."))
	assert.Equal(t, "No boundary here", firstSentence("No boundary here"))
	assert.Equal(t, "Trailing period only.", firstSentence("Trailing period only."))
}

func TestShortenPrinciple_TruncatesAtRuneBoundary(t *testing.T) {
	long := "Weigh " + strings.Repeat("道", 300)
	require.Greater(t, len(long), hardCap)

	short := shortenPrinciple(long)
	assert.LessOrEqual(t, len(short), hardCap)
	assert.True(t, utf8.ValidString(short))
	assert.Equal(t, short, shortenPrinciple(short))
}
