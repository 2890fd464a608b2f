// Package quality scores insights on five dimensions and gates out anything
// below threshold or matching known-bad shapes.
package quality

import (
	"context"
	"strings"

	"groundswell/internal/core"
)

// ScoreContext carries the corpus an insight is scored against.
type ScoreContext struct {
	// Evidence maps evidence ID to record, for source diversity checks.
	Evidence map[string]core.EvidenceRecord
	// Peers are the other candidate insights from the same run, for
	// uniqueness comparison.
	Peers []core.Insight
}

// Scorer produces a five-dimension quality breakdown for an insight.
type Scorer interface {
	Score(ctx context.Context, insight core.Insight, sc ScoreContext) (core.QualityBreakdown, error)
}

// HeuristicScorer scores deterministically from insight structure and
// lexical signals. It is the default: scoring the gate depends on must not
// itself hallucinate.
type HeuristicScorer struct{}

// NewHeuristicScorer creates the deterministic scorer.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Score computes the five dimensions. Each lands in [0, 10].
func (s *HeuristicScorer) Score(_ context.Context, insight core.Insight, sc ScoreContext) (core.QualityBreakdown, error) {
	return core.QualityBreakdown{
		Relevance:     scoreRelevance(insight, sc),
		Actionability: scoreActionability(insight),
		Uniqueness:    scoreUniqueness(insight, sc),
		Alignment:     scoreAlignment(insight),
		Emotional:     scoreEmotional(insight),
	}, nil
}

// scoreRelevance rewards broad, multi-source evidentiary support.
func scoreRelevance(insight core.Insight, sc ScoreContext) int {
	score := 4 + len(insight.CitedEvidenceIDs) // 2 citations -> 6

	sources := make(map[core.SourceType]struct{})
	for _, id := range insight.CitedEvidenceIDs {
		if rec, ok := sc.Evidence[id]; ok {
			sources[rec.SourceType] = struct{}{}
		}
	}
	if len(sources) >= 2 {
		score += 2
	}

	return clampDim(score)
}

// actionableMarkers suggest the reasoning points at something marketing can
// actually do.
var actionableMarkers = []string{
	"because", "which means", "suggests", "indicates", "opportunity",
	"specifically", "when", "during", "address", "highlight", "emphasize",
}

// scoreActionability rewards concrete reasoning over assertion.
func scoreActionability(insight core.Insight) int {
	reasoning := strings.ToLower(insight.Reasoning)

	score := 3
	if len(strings.Fields(reasoning)) >= 15 {
		score += 2
	}
	for _, marker := range actionableMarkers {
		if strings.Contains(reasoning, marker) {
			score += 2
			if score >= 9 {
				break
			}
		}
	}

	return clampDim(score)
}

// scoreUniqueness penalizes insights whose evidence base overlaps peers'.
func scoreUniqueness(insight core.Insight, sc ScoreContext) int {
	cited := make(map[string]struct{}, len(insight.CitedEvidenceIDs))
	for _, id := range insight.CitedEvidenceIDs {
		cited[id] = struct{}{}
	}

	maxOverlap := 0.0
	for _, peer := range sc.Peers {
		if peer.ID == insight.ID {
			continue
		}
		common := 0
		for _, id := range peer.CitedEvidenceIDs {
			if _, ok := cited[id]; ok {
				common++
			}
		}
		if len(insight.CitedEvidenceIDs) > 0 {
			overlap := float64(common) / float64(len(insight.CitedEvidenceIDs))
			if overlap > maxOverlap {
				maxOverlap = overlap
			}
		}
	}

	return clampDim(10 - int(maxOverlap*8))
}

// categoryLexicons anchor each category to the vocabulary an aligned insight
// should be drawing on.
var categoryLexicons = map[core.InsightCategory][]string{
	core.CategoryPain:       {"frustrat", "problem", "issue", "wait", "slow", "annoying", "broken", "disappoint", "complain"},
	core.CategoryFear:       {"worried", "afraid", "risk", "scared", "concern", "anxious", "avoid", "miss"},
	core.CategoryDesire:     {"love", "want", "wish", "favorite", "best", "amazing", "perfect", "crave"},
	core.CategoryMotivation: {"worth", "again", "recommend", "excited", "returning", "loyal", "habit"},
	core.CategoryObjection:  {"expensive", "price", "cost", "doubt", "hesitat", "not sure", "however", "too"},
	core.CategoryTrust:      {"trust", "reliable", "honest", "consistent", "always", "depend", "quality"},
	core.CategoryCompetitor: {"better than", "compared", "vs", "switched", "alternative", "instead", "other", "unlike"},
}

// scoreAlignment checks the quote and reasoning against the category lexicon.
func scoreAlignment(insight core.Insight) int {
	lexicon, ok := categoryLexicons[insight.Category]
	if !ok {
		return 3 // Unknown category: weakly aligned at best
	}

	text := strings.ToLower(insight.VerbatimQuote + " " + insight.Reasoning)
	score := 4
	for _, term := range lexicon {
		if strings.Contains(text, term) {
			score += 3
			if score >= 10 {
				break
			}
		}
	}

	return clampDim(score)
}

// emotionWords signal emotional pull in the cited voice of the customer.
var emotionWords = []string{
	"love", "hate", "amazing", "terrible", "furious", "thrilled", "worst",
	"best", "never", "always", "obsessed", "disappointed", "delighted",
	"frustrated", "excited", "angry", "happy", "scared", "worried",
}

// scoreEmotional counts emotional language in the verbatim quote. The quote
// carries the customer's voice; reasoning is analyst voice and ignored.
func scoreEmotional(insight core.Insight) int {
	quote := strings.ToLower(insight.VerbatimQuote)

	score := 2
	for _, word := range emotionWords {
		if strings.Contains(quote, word) {
			score += 3
			if score >= 10 {
				break
			}
		}
	}

	if strings.Contains(quote, "!") {
		score++
	}

	return clampDim(score)
}

func clampDim(score int) int {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
