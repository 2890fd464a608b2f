package synthesis

import (
	"sort"
	"strings"

	"groundswell/internal/core"
)

// overlapThreshold is the cited-ID overlap fraction above which two insights
// are considered duplicates of the same underlying finding.
const overlapThreshold = 0.5

// Dedup merges insights whose cited evidence sets overlap by more than 50%.
// The higher-scored insight survives; reasoning is unioned so no analysis is
// lost. Resolution is deterministic: insights are considered in descending
// quality order with ID as the tiebreaker, so re-running on the same input
// yields the same output.
func Dedup(insights []core.Insight) []core.Insight {
	if len(insights) <= 1 {
		return insights
	}

	ordered := make([]core.Insight, len(insights))
	copy(ordered, insights)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].QualityTotal != ordered[j].QualityTotal {
			return ordered[i].QualityTotal > ordered[j].QualityTotal
		}
		return ordered[i].ID < ordered[j].ID
	})

	var merged []core.Insight
	for _, ins := range ordered {
		absorbed := false
		for i := range merged {
			if citationOverlap(merged[i].CitedEvidenceIDs, ins.CitedEvidenceIDs) > overlapThreshold {
				merged[i].Reasoning = unionReasoning(merged[i].Reasoning, ins.Reasoning)
				absorbed = true
				break
			}
		}
		if !absorbed {
			merged = append(merged, ins)
		}
	}

	return merged
}

// citationOverlap computes |A ∩ B| over the size of the smaller set.
func citationOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, id := range a {
		setA[id] = struct{}{}
	}

	common := 0
	for _, id := range b {
		if _, ok := setA[id]; ok {
			common++
		}
	}

	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}

	return float64(common) / float64(smaller)
}

// unionReasoning appends the absorbed insight's reasoning unless it is
// already contained in the survivor's.
func unionReasoning(kept, absorbed string) string {
	if absorbed == "" || strings.Contains(kept, absorbed) {
		return kept
	}
	if kept == "" {
		return absorbed
	}
	return kept + "\n\nAlso supported by: " + absorbed
}
