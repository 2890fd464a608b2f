package quality

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"groundswell/internal/core"
	"groundswell/internal/llm"
)

// LLMClient is the language-model surface the LLM scorer needs.
type LLMClient interface {
	GenerateText(ctx context.Context, prompt string, options llm.TextGenerationOptions) (string, error)
}

// LLMScorer asks the language model to score each dimension. It falls back
// to the heuristic scorer when the call fails or the response is
// unparseable, so scoring never blocks the gate.
type LLMScorer struct {
	client   LLMClient
	fallback *HeuristicScorer
}

// NewLLMScorer creates an LLM-backed scorer with heuristic fallback.
func NewLLMScorer(client LLMClient) *LLMScorer {
	return &LLMScorer{
		client:   client,
		fallback: NewHeuristicScorer(),
	}
}

const scoringPrompt = `Score this marketing insight on five dimensions, each 0-10.

INSIGHT:
Category: %s
Claim quote from customer evidence: %q
Reasoning: %s
Number of supporting evidence records: %d

Dimensions:
- relevance: how much this matters to actual customers
- actionability: whether marketing can act on it directly
- uniqueness: non-generic, not something any business could claim
- alignment: how well the content fits the stated category
- emotional: emotional pull of the underlying customer voice

Respond in EXACTLY this format, one line per dimension:
RELEVANCE: [0-10]
ACTIONABILITY: [0-10]
UNIQUENESS: [0-10]
ALIGNMENT: [0-10]
EMOTIONAL: [0-10]`

// Score asks the model for a breakdown, falling back to heuristics on error.
func (s *LLMScorer) Score(ctx context.Context, insight core.Insight, sc ScoreContext) (core.QualityBreakdown, error) {
	prompt := fmt.Sprintf(scoringPrompt,
		insight.Category, insight.VerbatimQuote, insight.Reasoning, len(insight.CitedEvidenceIDs))

	response, err := s.client.GenerateText(ctx, prompt, llm.TextGenerationOptions{
		Temperature: 0.1,
		MaxTokens:   256,
	})
	if err != nil {
		return s.fallback.Score(ctx, insight, sc)
	}

	breakdown, ok := parseScoreResponse(response)
	if !ok {
		return s.fallback.Score(ctx, insight, sc)
	}

	return breakdown, nil
}

// parseScoreResponse extracts the five dimension lines. All five must be
// present and parseable for the response to count.
func parseScoreResponse(response string) (core.QualityBreakdown, bool) {
	var breakdown core.QualityBreakdown
	found := 0

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		prefix, target := "", (*int)(nil)

		switch {
		case strings.HasPrefix(line, "RELEVANCE:"):
			prefix, target = "RELEVANCE:", &breakdown.Relevance
		case strings.HasPrefix(line, "ACTIONABILITY:"):
			prefix, target = "ACTIONABILITY:", &breakdown.Actionability
		case strings.HasPrefix(line, "UNIQUENESS:"):
			prefix, target = "UNIQUENESS:", &breakdown.Uniqueness
		case strings.HasPrefix(line, "ALIGNMENT:"):
			prefix, target = "ALIGNMENT:", &breakdown.Alignment
		case strings.HasPrefix(line, "EMOTIONAL:"):
			prefix, target = "EMOTIONAL:", &breakdown.Emotional
		default:
			continue
		}

		value, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, prefix)))
		if err != nil {
			continue
		}
		*target = clampDim(value)
		found++
	}

	return breakdown, found == 5
}
