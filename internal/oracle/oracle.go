package oracle

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"aletheia/internal/config"
	"aletheia/internal/logging"
	"aletheia/internal/store"
)

// =============================================================================
// WISDOM ORACLE - MULTI-FRAMEWORK RETRIEVAL AND CRITIQUE
// =============================================================================

// Embedder turns text into a query vector, returning nil on failure.
type Embedder interface {
	GetOrCompute(ctx context.Context, text string) []float32
}

// Searcher performs top-K similarity search over the wisdom corpus.
type Searcher interface {
	SimilaritySearch(vector []float32, limit, numCandidates int) ([]store.PassageHit, error)
}

// FrameworkContext is the retrieval result for one ethical framework.
type FrameworkContext struct {
	Framework Framework          `json:"framework"`
	Query     string             `json:"query"`
	Docs      []store.PassageHit `json:"docs"`
	Timestamp time.Time          `json:"timestamp"`
}

// AvgRelevance is the mean similarity score across retrieved documents.
func (fc FrameworkContext) AvgRelevance() float64 {
	if len(fc.Docs) == 0 {
		return 0
	}
	total := 0.0
	for _, d := range fc.Docs {
		total += d.Score
	}
	return total / float64(len(fc.Docs))
}

// Critique is the assembled multi-framework analysis of one action.
type Critique struct {
	Context            string            `json:"critique_context"`
	FrameworksAnalyzed []Framework       `json:"frameworks_analyzed"`
	TotalDocs          int               `json:"total_documents_retrieved"`
	FrameworkCoverage  map[Framework]int `json:"framework_coverage"`
	GeneratedAt        time.Time         `json:"generation_timestamp"`
}

// Stats tracks oracle activity counters for monitoring.
type Stats struct {
	VectorSearches     int64 `json:"vector_searches"`
	CritiquesGenerated int64 `json:"critiques_generated"`
	FrameworksFailed   int64 `json:"frameworks_failed"`
	DocsRetrieved      int64 `json:"docs_retrieved"`
}

// Oracle retrieves philosophical wisdom relevant to an action and builds
// framework-organized critique context.
type Oracle struct {
	embedder Embedder
	searcher Searcher
	cfg      config.OracleConfig
	timeout  time.Duration

	vectorSearches     atomic.Int64
	critiquesGenerated atomic.Int64
	frameworksFailed   atomic.Int64
	docsRetrieved      atomic.Int64
}

// NewOracle builds an oracle over the given embedder and corpus searcher.
func NewOracle(embedder Embedder, searcher Searcher, cfg config.OracleConfig) *Oracle {
	timeout, err := time.ParseDuration(cfg.FrameworkTimeout)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if cfg.MaxDocsPerFramework < 1 {
		cfg.MaxDocsPerFramework = 3
	}
	if cfg.OversampleFactor < 1 {
		cfg.OversampleFactor = 15
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Oracle{embedder: embedder, searcher: searcher, cfg: cfg, timeout: timeout}
}

// GenerateCritique retrieves wisdom for the action under every framework in
// parallel and merges the results into a single critique context. Framework
// failures degrade to omission; an all-failure run yields an empty context.
func (o *Oracle) GenerateCritique(ctx context.Context, scenario *store.ScenarioRecord, action, justification string) *Critique {
	return o.GenerateCritiqueWith(ctx, scenario, action, justification, AllFrameworks)
}

// GenerateCritiqueWith restricts the critique to the given frameworks.
func (o *Oracle) GenerateCritiqueWith(ctx context.Context, scenario *store.ScenarioRecord, action, justification string, frameworks []Framework) *Critique {
	timer := logging.StartTimer(logging.CategoryOracle, fmt.Sprintf("critique %q across %d frameworks", action, len(frameworks)))
	defer timer.Stop()

	// Results are slotted by framework position so the merged context is
	// identical no matter which retrieval finishes first.
	results := make([]*FrameworkContext, len(frameworks))

	if o.cfg.MaxWorkers > 1 {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(o.cfg.MaxWorkers)
		for i, fw := range frameworks {
			eg.Go(func() error {
				results[i] = o.frameworkContext(egCtx, fw, scenario, action, justification)
				return nil
			})
		}
		eg.Wait()
	} else {
		for i, fw := range frameworks {
			results[i] = o.frameworkContext(ctx, fw, scenario, action, justification)
		}
	}

	critique := &Critique{
		FrameworkCoverage: make(map[Framework]int),
		GeneratedAt:       time.Now().UTC(),
	}
	var kept []*FrameworkContext
	for _, fc := range results {
		if fc == nil {
			continue
		}
		kept = append(kept, fc)
		critique.FrameworksAnalyzed = append(critique.FrameworksAnalyzed, fc.Framework)
		critique.FrameworkCoverage[fc.Framework] = len(fc.Docs)
		critique.TotalDocs += len(fc.Docs)
	}
	critique.Context = buildContext(kept, scenario, action)

	o.critiquesGenerated.Add(1)
	o.docsRetrieved.Add(int64(critique.TotalDocs))
	logging.Oracle("critique assembled: %d/%d frameworks, %d docs",
		len(kept), len(frameworks), critique.TotalDocs)
	return critique
}

// frameworkContext runs embed-then-search for one framework under its own
// timeout. Returns nil when the framework yields nothing usable.
func (o *Oracle) frameworkContext(ctx context.Context, fw Framework, scenario *store.ScenarioRecord, action, justification string) *FrameworkContext {
	fctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	fc := frameworkConfigs[fw]
	query := buildQuery(fc, scenario, action, justification)

	vector := o.embedder.GetOrCompute(fctx, query)
	if len(vector) == 0 {
		o.frameworksFailed.Add(1)
		logging.Oracle("framework %s: embedding unavailable, skipping", fw)
		return nil
	}

	docs := o.searchWithRetry(vector, fc.docLimit(o.cfg.MaxDocsPerFramework))
	if len(docs) < fc.MinDocs {
		logging.Oracle("framework %s: insufficient documents (%d < %d)", fw, len(docs), fc.MinDocs)
	}
	if len(docs) == 0 {
		o.frameworksFailed.Add(1)
		return nil
	}

	return &FrameworkContext{
		Framework: fw,
		Query:     query,
		Docs:      docs,
		Timestamp: time.Now().UTC(),
	}
}

// searchWithRetry retries the similarity search and filters hits below the
// configured relevance floor. Exhausted retries degrade to an empty slice.
func (o *Oracle) searchWithRetry(vector []float32, limit int) []store.PassageHit {
	numCandidates := limit * o.cfg.OversampleFactor
	if numCandidates < 100 {
		numCandidates = 100
	}

	for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
		o.vectorSearches.Add(1)
		hits, err := o.searcher.SimilaritySearch(vector, limit, numCandidates)
		if err != nil {
			logging.Oracle("vector search attempt %d/%d failed: %v", attempt, o.cfg.MaxRetries, err)
			continue
		}
		filtered := hits[:0:0]
		for _, h := range hits {
			if h.Score >= o.cfg.MinRelevanceScore {
				filtered = append(filtered, h)
			}
		}
		logging.OracleDebug("vector search: %d hits, %d after relevance filter", len(hits), len(filtered))
		return filtered
	}
	return nil
}

// buildQuery combines the action, scenario, justification, and framework
// keywords into one retrieval query.
func buildQuery(fc frameworkConfig, scenario *store.ScenarioRecord, action, justification string) string {
	if len(justification) > 200 {
		justification = justification[:200]
	}
	return fmt.Sprintf("Evaluate action %q in scenario %q Justification: %s Framework keywords: %s",
		action, scenario.Title, justification, fc.Keywords)
}

// buildContext assembles the framework-organized critique text. An empty
// contexts slice yields an empty string.
func buildContext(contexts []*FrameworkContext, scenario *store.ScenarioRecord, action string) string {
	if len(contexts) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("=== PHILOSOPHICAL WISDOM ANALYSIS ===\n")
	fmt.Fprintf(&sb, "Scenario: %s\n", scenario.Title)
	fmt.Fprintf(&sb, "Proposed Action: %s\n\n", action)

	for _, fc := range contexts {
		name := frameworkLabel(fc.Framework)
		fmt.Fprintf(&sb, "--- %s Framework Analysis ---\n", name)
		fmt.Fprintf(&sb, "%s\n", frameworkConfigs[fc.Framework].Description)
		fmt.Fprintf(&sb, "Documents Retrieved: %d\n", len(fc.Docs))
		fmt.Fprintf(&sb, "Average Relevance: %.3f\n\n", fc.AvgRelevance())

		for i, doc := range fc.Docs {
			text := doc.Text
			truncated := ""
			if len(text) > 500 {
				text = text[:500]
				truncated = "..."
			}
			fmt.Fprintf(&sb, "Source %d: %s - %s\n", i+1, orUnknown(doc.Author), orUnknown(doc.Source))
			fmt.Fprintf(&sb, "Framework: %s | Era: %s\n", orUnknown(doc.Framework), orUnknown(doc.Era))
			fmt.Fprintf(&sb, "Relevance: %.3f\n", doc.Score)
			fmt.Fprintf(&sb, "Text: %q%s\n\n", text, truncated)
		}
	}
	return sb.String()
}

// frameworkLabel renders "virtue_ethics" as "Virtue Ethics".
func frameworkLabel(fw Framework) string {
	words := strings.Split(string(fw), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// Stats returns a snapshot of the oracle's activity counters.
func (o *Oracle) Stats() Stats {
	return Stats{
		VectorSearches:     o.vectorSearches.Load(),
		CritiquesGenerated: o.critiquesGenerated.Load(),
		FrameworksFailed:   o.frameworksFailed.Load(),
		DocsRetrieved:      o.docsRetrieved.Load(),
	}
}
