package constitution

import (
	"strings"
	"unicode/utf8"
)

// =============================================================================
// STRUCTURAL INTEGRITY ENFORCEMENT
// =============================================================================

const (
	// lengthCeiling is the soft per-principle length bound; longer
	// principles are truncated at a sentence boundary.
	lengthCeiling = 500
	// hardCap is the absolute per-principle length bound.
	hardCap = 800
	// summarySentences is the sentence count past which a shortened
	// principle keeps a summary clause in place of its tail.
	summarySentences = 5
)

const summaryClause = "Apply rigorous justification processes for exceptions, including documentation, transparency, and consideration of alternatives and long-term impacts."

// fallbackPrinciples pad a constitution back up to the minimum size. The
// entries share few words so duplicate removal never collapses them.
var fallbackPrinciples = []string{
	fallbackPrinciple,
	"Seek understanding before judgment in unfamiliar situations",
	"Balance competing obligations honestly when values conflict",
}

// EnsureIntegrity enforces structural bounds on a constitution: overlong
// principles are shortened, near-duplicates removed, and the total size
// clamped to the configured range. It is pure and convergent: applying it
// twice yields the same result as applying it once.
func (e *Engine) EnsureIntegrity(constitution []string) []string {
	out := make([]string, 0, len(constitution))
	for _, p := range constitution {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, shortenPrinciple(p))
	}

	out = e.dedupe(out)

	for i := 0; len(out) < e.cfg.MinPrinciples && i < len(fallbackPrinciples); i++ {
		out = append(out, fallbackPrinciples[i])
	}
	if len(out) > e.cfg.MaxPrinciples {
		out = sortByLengthAscending(out, e.cfg.MaxPrinciples)
	}
	return out
}

// shortenPrinciple truncates an overlong principle at its first sentence
// boundary, retaining a summary clause when many sentences were dropped.
// The result is a fixed point of the function itself.
func shortenPrinciple(p string) string {
	if len(p) <= lengthCeiling {
		return p
	}
	sentences := strings.Split(p, ". ")
	if len(sentences) > 1 {
		if len(sentences) > summarySentences {
			withSummary := sentences[0] + ". " + summaryClause
			if len(withSummary) <= lengthCeiling {
				return withSummary
			}
		}
		p = sentences[0] + "."
		if len(p) <= hardCap {
			return p
		}
	}
	if len(p) > hardCap {
		return truncateAtRuneBoundary(p, hardCap)
	}
	return p
}

// firstSentence returns the leading sentence of p, including its period,
// or p unchanged when no sentence boundary exists.
func firstSentence(p string) string {
	if i := strings.Index(p, ". "); i >= 0 {
		return p[:i+1]
	}
	return p
}

// truncateAtRuneBoundary cuts s to at most n bytes without splitting a
// multi-byte rune at the cut.
func truncateAtRuneBoundary(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// dedupe removes near-duplicate principles, keeping the first seen. Two
// principles are duplicates when their shared word count exceeds the
// configured ratio of the smaller word set.
func (e *Engine) dedupe(principles []string) []string {
	out := make([]string, 0, len(principles))
	kept := make([]map[string]struct{}, 0, len(principles))
	for _, p := range principles {
		words := wordSet(p)
		duplicate := false
		for _, prev := range kept {
			if overlapRatio(words, prev) > e.cfg.DuplicateOverlapRatio {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, p)
			kept = append(kept, words)
		}
	}
	return out
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[strings.Trim(w, ".,;:!?")] = struct{}{}
	}
	return set
}

func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(shared) / float64(smaller)
}
