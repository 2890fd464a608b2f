// Package clustering groups evidence records into thematic clusters using a
// hybrid of centroid-based partitioning and a density peel that moves poor
// fits into singleton noise clusters.
package clustering

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"groundswell/internal/core"
	"groundswell/internal/logger"

	"github.com/google/uuid"
)

// EngineConfig holds configuration for the clustering engine.
type EngineConfig struct {
	MaxClusters   int     // Upper bound on K
	MinEvidence   int     // Below this size, skip clustering entirely
	MaxIterations int     // K-means iteration cap
	NoiseFloor    float64 // Min similarity to centroid before a member is peeled
	Seed          int64   // Optional deterministic seed (0 = time-based)
}

// DefaultEngineConfig returns sensible defaults for clustering.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxClusters:   50,
		MinEvidence:   5,
		MaxIterations: 100,
		NoiseFloor:    0.35,
	}
}

// Engine clusters evidence records by their embeddings.
type Engine struct {
	config EngineConfig
	log    *slog.Logger
}

// NewEngine creates a new clustering engine.
func NewEngine(config EngineConfig) *Engine {
	return &Engine{
		config: config,
		log:    logger.Get(),
	}
}

// Cluster groups evidence into thematic clusters. Evidence sets smaller than
// MinEvidence pass through as a single cluster. Records without embeddings
// are skipped.
func (e *Engine) Cluster(evidence []core.EvidenceRecord) ([]core.Cluster, error) {
	withEmbeddings, embeddings := filterEmbedded(evidence)
	n := len(withEmbeddings)

	if n == 0 {
		return nil, fmt.Errorf("no evidence records with embeddings")
	}

	if n < e.config.MinEvidence {
		e.log.Info("evidence set below clustering minimum, using single cluster",
			"count", n, "min", e.config.MinEvidence)
		return []core.Cluster{e.buildCluster(withEmbeddings, embeddings, false)}, nil
	}

	// Seed K at round(sqrt(n)), bounded by the configured maximum.
	k := int(math.Round(math.Sqrt(float64(n))))
	if k < 2 {
		k = 2
	}
	if k > e.config.MaxClusters {
		k = e.config.MaxClusters
	}
	if k > n {
		k = n
	}

	seed := e.config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	assignments, centroids, err := runKMeans(embeddings, k, e.config.MaxIterations, rng)
	if err != nil {
		return nil, fmt.Errorf("k-means failed: %w", err)
	}

	// Density pass: peel members whose similarity to their centroid falls
	// below the noise floor into singleton noise clusters instead of leaving
	// them in an ill-fitting group.
	groups := make([][]int, k)
	var noise []int
	for i, a := range assignments {
		if CosineSimilarity(embeddings[i], centroids[a]) < e.config.NoiseFloor {
			noise = append(noise, i)
			continue
		}
		groups[a] = append(groups[a], i)
	}

	var clusters []core.Cluster
	for _, members := range groups {
		if len(members) == 0 {
			continue
		}
		recs := make([]core.EvidenceRecord, len(members))
		vecs := make([][]float64, len(members))
		for j, idx := range members {
			recs[j] = withEmbeddings[idx]
			vecs[j] = embeddings[idx]
		}
		clusters = append(clusters, e.buildCluster(recs, vecs, false))
	}

	for _, idx := range noise {
		clusters = append(clusters, e.buildCluster(
			[]core.EvidenceRecord{withEmbeddings[idx]},
			[][]float64{embeddings[idx]},
			true,
		))
	}

	e.log.Info("clustering complete",
		"evidence", n, "k", k, "clusters", len(clusters), "noise", len(noise))

	return clusters, nil
}

// buildCluster assembles a core.Cluster with centroid, theme label,
// coherence, and source diversity.
func (e *Engine) buildCluster(records []core.EvidenceRecord, vectors [][]float64, noise bool) core.Cluster {
	ids := make([]string, len(records))
	sources := make(map[core.SourceType]struct{})
	for i, rec := range records {
		ids[i] = rec.ID
		sources[rec.SourceType] = struct{}{}
	}

	return core.Cluster{
		ID:              uuid.NewString(),
		EvidenceIDs:     ids,
		Centroid:        meanVector(vectors),
		ThemeLabel:      themeLabel(records),
		Coherence:       avgPairwiseSimilarity(vectors),
		SourceDiversity: len(sources),
		Noise:           noise,
		CreatedAt:       time.Now().UTC(),
	}
}

// Quality scores a cluster for ranking. Size, coherence, and source diversity
// are weighted; the score ranks clusters but never drops them.
func Quality(c core.Cluster) float64 {
	size := math.Min(float64(len(c.EvidenceIDs))/10.0, 1.0)
	diversity := math.Min(float64(c.SourceDiversity)/4.0, 1.0)
	return 0.3*size + 0.5*c.Coherence + 0.2*diversity
}

// RankByQuality returns clusters sorted by descending quality score.
func RankByQuality(clusters []core.Cluster) []core.Cluster {
	ranked := make([]core.Cluster, len(clusters))
	copy(ranked, clusters)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Quality(ranked[i]) > Quality(ranked[j])
	})
	return ranked
}

// filterEmbedded keeps records that carry embeddings.
func filterEmbedded(evidence []core.EvidenceRecord) ([]core.EvidenceRecord, [][]float64) {
	var records []core.EvidenceRecord
	var embeddings [][]float64
	for _, rec := range evidence {
		if len(rec.Embedding) > 0 {
			records = append(records, rec)
			embeddings = append(embeddings, rec.Embedding)
		}
	}
	return records, embeddings
}

// stopWords are excluded from theme labels.
var stopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "have": {}, "from": {}, "they": {},
	"were": {}, "been": {}, "their": {}, "would": {}, "there": {}, "about": {},
	"which": {}, "when": {}, "just": {}, "really": {}, "very": {}, "your": {},
	"will": {}, "what": {}, "because": {}, "some": {}, "them": {}, "then": {},
	"than": {}, "here": {}, "into": {}, "over": {}, "also": {}, "only": {},
}

// themeLabel derives a short label from the most frequent meaningful words
// across member texts.
func themeLabel(records []core.EvidenceRecord) string {
	wordCounts := make(map[string]int)
	for _, rec := range records {
		for _, word := range extractWords(rec.Text) {
			if len(word) <= 3 {
				continue
			}
			if _, stop := stopWords[word]; stop {
				continue
			}
			wordCounts[word]++
		}
	}

	type wordFreq struct {
		word  string
		count int
	}
	var sorted []wordFreq
	for word, count := range wordCounts {
		sorted = append(sorted, wordFreq{word, count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].word < sorted[j].word
	})

	top := make([]string, 0, 2)
	for i, wf := range sorted {
		if i >= 2 {
			break
		}
		top = append(top, wf.word)
	}

	if len(top) == 0 {
		return "general"
	}
	return strings.Join(top, " / ")
}

// extractWords lowercases and splits text into alphanumeric word tokens.
func extractWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}
