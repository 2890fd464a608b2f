// Package connections finds non-obvious multi-cluster relationships ranked
// by an unexpectedness score. Connections are advisory input to synthesis
// prompts and are never themselves cited as evidence.
package connections

import (
	"log/slog"
	"sort"
	"strings"

	"groundswell/internal/clustering"
	"groundswell/internal/core"
	"groundswell/internal/logger"

	"github.com/google/uuid"
)

// History reports how often two cluster themes have co-occurred in past runs.
// Themes that rarely appear together score higher when they do.
type History interface {
	CooccurrenceCount(themeA, themeB string) int
}

// NoHistory is a History with no prior runs; every pairing counts as novel.
type NoHistory struct{}

// CooccurrenceCount always returns zero.
func (NoHistory) CooccurrenceCount(_, _ string) int { return 0 }

// DiscovererConfig holds connection discovery configuration.
type DiscovererConfig struct {
	MaxArity     int     // Largest combination size, 2-5
	TopNPerArity int     // Retained connections per arity
	MinScore     float64 // Minimum unexpectedness to retain
	MaxClusters  int     // Cap on clusters considered, bounds the enumeration
}

// DefaultDiscovererConfig returns sensible defaults.
func DefaultDiscovererConfig() DiscovererConfig {
	return DiscovererConfig{
		MaxArity:     5,
		TopNPerArity: 5,
		MinScore:     0.2,
		MaxClusters:  12,
	}
}

// Discoverer enumerates cluster combinations and scores them.
type Discoverer struct {
	config  DiscovererConfig
	history History
	log     *slog.Logger
}

// NewDiscoverer creates a connection discoverer. A nil history behaves as
// NoHistory.
func NewDiscoverer(config DiscovererConfig, history History) *Discoverer {
	if history == nil {
		history = NoHistory{}
	}
	return &Discoverer{
		config:  config,
		history: history,
		log:     logger.Get(),
	}
}

// Discover finds the top connections between 2..maxArity clusters. When more
// clusters exist than the configured cap, only the highest-quality ones are
// enumerated so arity-5 combination counts stay tractable.
func (d *Discoverer) Discover(clusters []core.Cluster) []core.Connection {
	candidates := clustering.RankByQuality(clusters)
	if len(candidates) > d.config.MaxClusters {
		candidates = candidates[:d.config.MaxClusters]
	}

	maxArity := d.config.MaxArity
	if maxArity > len(candidates) {
		maxArity = len(candidates)
	}

	var connections []core.Connection
	for arity := 2; arity <= maxArity; arity++ {
		perArity := d.scoreCombinations(candidates, arity)

		sort.SliceStable(perArity, func(i, j int) bool {
			return perArity[i].Unexpectedness > perArity[j].Unexpectedness
		})

		kept := 0
		for _, conn := range perArity {
			if conn.Unexpectedness < d.config.MinScore {
				break
			}
			connections = append(connections, conn)
			kept++
			if kept >= d.config.TopNPerArity {
				break
			}
		}
	}

	d.log.Info("connection discovery complete",
		"clusters", len(candidates), "connections", len(connections))

	return connections
}

// scoreCombinations builds scored connections for every combination of the
// given arity.
func (d *Discoverer) scoreCombinations(clusters []core.Cluster, arity int) []core.Connection {
	var result []core.Connection

	combinations(len(clusters), arity, func(indexes []int) {
		members := make([]core.Cluster, arity)
		for i, idx := range indexes {
			members[i] = clusters[idx]
		}
		result = append(result, d.buildConnection(members))
	})

	return result
}

// buildConnection scores one cluster combination. Unexpectedness is the mean
// pairwise centroid dissimilarity weighted by inverse historical
// co-occurrence, clamped to [0, 1].
func (d *Discoverer) buildConnection(members []core.Cluster) core.Connection {
	var distTotal, freqTotal float64
	var pairs int

	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			dist := clustering.CosineDistance(members[i].Centroid, members[j].Centroid)
			if dist > 1.0 {
				dist = 1.0 // Negative similarity still means maximally unrelated here
			}
			distTotal += dist
			freqTotal += float64(d.history.CooccurrenceCount(members[i].ThemeLabel, members[j].ThemeLabel))
			pairs++
		}
	}

	distance := distTotal / float64(pairs)
	avgFreq := freqTotal / float64(pairs)
	score := distance / (1.0 + avgFreq)

	ids := make([]string, len(members))
	labels := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
		labels[i] = m.ThemeLabel
	}

	return core.Connection{
		ID:             uuid.NewString(),
		ClusterIDs:     ids,
		Arity:          len(members),
		Unexpectedness: score,
		ThemeLabels:    labels,
	}
}

// combinations invokes fn for every k-combination of [0, n). The visited
// slice is reused between calls; fn must not retain it.
func combinations(n, k int, fn func([]int)) {
	if k > n || k <= 0 {
		return
	}

	indexes := make([]int, k)
	for i := range indexes {
		indexes[i] = i
	}

	for {
		fn(indexes)

		// Advance to the next combination.
		i := k - 1
		for i >= 0 && indexes[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		indexes[i]++
		for j := i + 1; j < k; j++ {
			indexes[j] = indexes[j-1] + 1
		}
	}
}

// PairKey returns the canonical history key for two theme labels.
func PairKey(themeA, themeB string) string {
	if themeA > themeB {
		themeA, themeB = themeB, themeA
	}
	return themeA + "||" + themeB
}

// Describe renders a connection for use in synthesis prompts.
func Describe(c core.Connection) string {
	return strings.Join(c.ThemeLabels, " + ")
}
