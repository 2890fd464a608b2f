// Package pipeline orchestrates a full engine run: ingestion, embedding,
// clustering, connection discovery, synthesis, quality gating, deduplication,
// and narrative sequencing, with content-addressed run caching.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"groundswell/internal/clustering"
	"groundswell/internal/config"
	"groundswell/internal/connections"
	"groundswell/internal/core"
	"groundswell/internal/embedding"
	"groundswell/internal/ingest"
	"groundswell/internal/llm"
	"groundswell/internal/logger"
	"groundswell/internal/narrative"
	"groundswell/internal/quality"
	"groundswell/internal/store"
	"groundswell/internal/synthesis"
)

// Deps carries the provider-backed components a pipeline needs. Tests inject
// fakes here; cmd wires the real providers.
type Deps struct {
	LLM      synthesis.LLMClient
	Embedder embedding.Embedder
	Store    *store.Store // Optional; nil disables caching and persistence
}

// ClusterSummary reports one cluster's metrics in the run result.
type ClusterSummary struct {
	ThemeLabel      string  `json:"theme_label"`
	Size            int     `json:"size"`
	Coherence       float64 `json:"coherence"`
	SourceDiversity int     `json:"source_diversity"`
	Noise           bool    `json:"noise"`
	Quality         float64 `json:"quality"`
}

// Result is the output of one pipeline run. It is serializable so cached runs
// round-trip through the store.
type Result struct {
	Insights         []core.Insight     `json:"insights"`
	Campaign         core.Campaign      `json:"campaign"`
	Clusters         []ClusterSummary   `json:"clusters"`
	ConnectionCount  int                `json:"connection_count"`
	DegradedPasses   []string           `json:"degraded_passes,omitempty"`
	ExcludedEvidence []string           `json:"excluded_evidence,omitempty"`
	RejectedEvidence []ingest.Rejection `json:"rejected_evidence,omitempty"`
	Partial          bool               `json:"partial"`
	CacheHit         bool               `json:"cache_hit"`
}

// Pipeline runs the evidence-to-campaign flow.
type Pipeline struct {
	cfg        *config.Config
	embedSvc   *embedding.Service
	engine     *clustering.Engine
	discoverer *connections.Discoverer
	synth      *synthesis.Synthesizer
	gate       *quality.Gate
	sequencer  *narrative.Sequencer
	store      *store.Store
	log        *slog.Logger
}

// New assembles a pipeline from configuration and injected dependencies.
func New(cfg *config.Config, deps Deps) *Pipeline {
	backoff := llm.DefaultBackoff()
	if cfg.AI.MaxRetries > 0 {
		backoff.MaxRetries = cfg.AI.MaxRetries
	}

	var history connections.History
	if deps.Store != nil {
		history = deps.Store
	}

	var scorer quality.Scorer = quality.NewHeuristicScorer()
	if cfg.Quality.Scorer == "llm" {
		scorer = quality.NewLLMScorer(deps.LLM)
	}

	return &Pipeline{
		cfg:      cfg,
		embedSvc: embedding.NewService(deps.Embedder, backoff),
		engine: clustering.NewEngine(clustering.EngineConfig{
			MaxClusters:   cfg.Clustering.MaxClusters,
			MinEvidence:   cfg.Clustering.MinEvidence,
			MaxIterations: cfg.Clustering.MaxIterations,
			NoiseFloor:    cfg.Clustering.NoiseFloor,
		}),
		discoverer: connections.NewDiscoverer(connections.DiscovererConfig{
			MaxArity:     cfg.Connections.MaxArity,
			TopNPerArity: cfg.Connections.TopNPerArity,
			MinScore:     cfg.Connections.MinScore,
			MaxClusters:  cfg.Connections.MaxClusters,
		}, history),
		synth: synthesis.NewSynthesizer(deps.LLM, synthesis.Config{
			MinCitations:       cfg.Synthesis.MinCitations,
			QuoteThreshold:     cfg.Synthesis.QuoteMatchThreshold,
			MaxInsightsPerPass: cfg.Synthesis.MaxInsightsPerPass,
			PassRetries:        cfg.Synthesis.PassRetries,
		}),
		gate: quality.NewGate(scorer, cfg.Quality.Threshold),
		sequencer: narrative.NewSequencer(narrative.SequencerConfig{
			MinDays:       cfg.Campaign.MinDays,
			MaxDays:       cfg.Campaign.MaxDays,
			Platforms:     cfg.Campaign.Platforms,
			WeeklyCadence: cfg.Campaign.WeeklyCadence,
			CheckpointDay: cfg.Campaign.CheckpointDay,
		}),
		store: deps.Store,
		log:   logger.Get(),
	}
}

// Sequencer exposes the narrative sequencer so callers can register the
// performance checkpoint hook.
func (p *Pipeline) Sequencer() *narrative.Sequencer {
	return p.sequencer
}

// Run executes the full pipeline over a raw evidence batch. Individual
// records, synthesis passes, and provider calls degrade without failing the
// run; the only hard failures are no usable evidence or every pass failing.
// A run where nothing survives the quality gate returns an empty partial
// result with no campaign.
func (p *Pipeline) Run(ctx context.Context, records []core.EvidenceRecord, req narrative.Request) (*Result, error) {
	ing := ingest.Validate(records)
	if len(ing.Accepted) == 0 {
		return nil, fmt.Errorf("no evidence records survived ingestion validation")
	}

	cacheKey := p.cacheKey(ing.Accepted, req)
	if cached := p.lookupCache(cacheKey); cached != nil {
		p.log.Info("run served from cache", "cache_key", cacheKey[:12])
		return cached, nil
	}

	batch, err := p.embedSvc.EmbedEvidence(ctx, ing.Accepted)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	clusters, err := p.engine.Cluster(batch.Embedded)
	if err != nil {
		return nil, fmt.Errorf("clustering failed: %w", err)
	}

	conns := p.discoverer.Discover(clusters)

	lenses := synthesis.LensesFromConfig(p.cfg.Synthesis.Lenses)
	candidates, degraded := p.collect(ctx, batch.Embedded, clusters, conns, lenses)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(candidates) == 0 && len(degraded) == len(lenses) {
		return nil, fmt.Errorf("every synthesis pass failed")
	}

	evidenceByID := indexEvidence(batch.Embedded)

	scored, err := p.gate.Score(ctx, candidates, evidenceByID)
	if err != nil {
		return nil, fmt.Errorf("quality scoring failed: %w", err)
	}

	// Dedup runs on scored candidates so merge resolution can compare totals;
	// the threshold filter comes after so a merged survivor is gated once.
	deduped := synthesis.Dedup(scored)
	passed := p.gate.Filter(deduped)

	result := &Result{
		Insights:         passed,
		Clusters:         summarizeClusters(clusters),
		ConnectionCount:  len(conns),
		DegradedPasses:   degraded,
		ExcludedEvidence: failedIDs(batch.Failed),
		RejectedEvidence: ing.Rejected,
		Partial:          len(degraded) > 0 || len(batch.Failed) > 0,
	}

	if len(passed) == 0 {
		// Gate rejection is not a run failure. Skip persistence so a rerun
		// retries synthesis instead of hitting a cached empty result.
		p.log.Warn("no insights survived the quality gate",
			"candidates", len(deduped), "threshold", p.cfg.Quality.Threshold)
		result.Partial = true
		return result, nil
	}

	campaign, err := p.sequencer.Sequence(passed, req)
	if err != nil {
		return nil, fmt.Errorf("narrative sequencing failed: %w", err)
	}
	result.Campaign = campaign

	p.persist(cacheKey, result, clusters)

	return result, nil
}

// collect drains the synthesis event stream into validated candidates and the
// names of degraded passes.
func (p *Pipeline) collect(
	ctx context.Context,
	evidence []core.EvidenceRecord,
	clusters []core.Cluster,
	conns []core.Connection,
	lenses []synthesis.Lens,
) ([]core.Insight, []string) {
	var candidates []core.Insight
	var degraded []string

	for ev := range p.synth.Run(ctx, evidence, clusters, conns, lenses) {
		if ev.Degraded {
			degraded = append(degraded, ev.Pass)
			continue
		}
		if ev.Insight != nil {
			candidates = append(candidates, *ev.Insight)
		}
	}

	return candidates, degraded
}

// cacheKey builds the content-addressed key for this run: the evidence ID set
// plus a fingerprint of every configuration section that shapes the output.
func (p *Pipeline) cacheKey(evidence []core.EvidenceRecord, req narrative.Request) string {
	ids := make([]string, len(evidence))
	for i, rec := range evidence {
		ids[i] = rec.ID
	}

	fp, _ := json.Marshal(struct {
		Clustering  config.Clustering  `json:"clustering"`
		Connections config.Connections `json:"connections"`
		Synthesis   config.Synthesis   `json:"synthesis"`
		Quality     config.Quality     `json:"quality"`
		Campaign    config.Campaign    `json:"campaign"`
		Provider    string             `json:"provider"`
		Request     narrative.Request  `json:"request"`
	}{
		p.cfg.Clustering, p.cfg.Connections, p.cfg.Synthesis,
		p.cfg.Quality, p.cfg.Campaign, p.cfg.AI.Provider, req,
	})

	return store.RunCacheKey(ids, string(fp))
}

// lookupCache returns a prior result for the key, or nil on miss.
func (p *Pipeline) lookupCache(key string) *Result {
	if p.store == nil {
		return nil
	}

	ttl := time.Duration(p.cfg.Cache.TTLHours) * time.Hour
	blob, err := p.store.GetCachedRun(key, ttl)
	if err != nil {
		p.log.Warn("run cache lookup failed", "error", err.Error())
		return nil
	}
	if blob == nil {
		return nil
	}

	var result Result
	if err := json.Unmarshal(blob, &result); err != nil {
		p.log.Warn("discarding unreadable cached run", "error", err.Error())
		return nil
	}

	result.CacheHit = true
	return &result
}

// persist writes durable outputs, co-occurrence history, and the run cache
// entry. Persistence failures are logged, never fatal; the result is already
// in hand.
func (p *Pipeline) persist(cacheKey string, result *Result, clusters []core.Cluster) {
	if p.store == nil {
		return
	}

	if err := p.store.SaveInsights(result.Insights); err != nil {
		p.log.Warn("failed to persist insights", "error", err.Error())
	}
	if err := p.store.SaveCampaign(result.Campaign); err != nil {
		p.log.Warn("failed to persist campaign", "error", err.Error())
	}

	var labels []string
	for _, c := range clusters {
		if !c.Noise {
			labels = append(labels, c.ThemeLabel)
		}
	}
	if err := p.store.RecordCooccurrences(labels); err != nil {
		p.log.Warn("failed to record theme co-occurrence", "error", err.Error())
	}

	blob, err := json.Marshal(result)
	if err == nil {
		err = p.store.CacheRun(cacheKey, blob)
	}
	if err != nil {
		p.log.Warn("failed to cache run", "error", err.Error())
	}
}

func summarizeClusters(clusters []core.Cluster) []ClusterSummary {
	summaries := make([]ClusterSummary, len(clusters))
	for i, c := range clusters {
		summaries[i] = ClusterSummary{
			ThemeLabel:      c.ThemeLabel,
			Size:            len(c.EvidenceIDs),
			Coherence:       c.Coherence,
			SourceDiversity: c.SourceDiversity,
			Noise:           c.Noise,
			Quality:         clustering.Quality(c),
		}
	}
	return summaries
}

func indexEvidence(records []core.EvidenceRecord) map[string]core.EvidenceRecord {
	index := make(map[string]core.EvidenceRecord, len(records))
	for _, rec := range records {
		index[rec.ID] = rec
	}
	return index
}

func failedIDs(failed map[string]error) []string {
	if len(failed) == 0 {
		return nil
	}
	ids := make([]string, 0, len(failed))
	for id := range failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
