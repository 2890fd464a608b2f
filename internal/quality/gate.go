package quality

import (
	"context"
	"log/slog"

	"groundswell/internal/core"
	"groundswell/internal/logger"
)

// Verdict is the gate's decision for one insight.
type Verdict struct {
	Passed    bool
	Total     int
	Rejection *Rejection // Set when a known-bad pattern matched
}

// Gate scores insights and filters out anything below threshold or matching
// a known-bad pattern. Rejections are logged, never fatal.
type Gate struct {
	scorer    Scorer
	threshold int
	log       *slog.Logger
}

// NewGate creates a quality gate with the given scorer and pass threshold
// (0-50).
func NewGate(scorer Scorer, threshold int) *Gate {
	return &Gate{
		scorer:    scorer,
		threshold: threshold,
		log:       logger.Get(),
	}
}

// Check evaluates one already-scored insight. The pattern matcher runs
// first as a fast path; it rejects without consulting the numeric total.
func (g *Gate) Check(insight core.Insight) Verdict {
	if rej := MatchKnownBad(insight); rej != nil {
		g.log.Debug("insight rejected by pattern matcher",
			"insight_id", insight.ID, "pattern", rej.Pattern, "detail", rej.Detail)
		return Verdict{Passed: false, Total: insight.QualityTotal, Rejection: rej}
	}

	if insight.QualityTotal < g.threshold {
		g.log.Debug("insight rejected below quality threshold",
			"insight_id", insight.ID, "total", insight.QualityTotal, "threshold", g.threshold)
		return Verdict{Passed: false, Total: insight.QualityTotal}
	}

	return Verdict{Passed: true, Total: insight.QualityTotal}
}

// Score scores every insight against the corpus without gating, so callers
// can dedup on totals before filtering. Uniqueness sees the full candidate
// pool through Peers.
func (g *Gate) Score(ctx context.Context, insights []core.Insight, evidence map[string]core.EvidenceRecord) ([]core.Insight, error) {
	sc := ScoreContext{Evidence: evidence, Peers: insights}

	scored := make([]core.Insight, 0, len(insights))
	for _, ins := range insights {
		breakdown, err := g.scorer.Score(ctx, ins, sc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			g.log.Warn("scoring failed, skipping insight", "insight_id", ins.ID, "error", err.Error())
			continue
		}
		ins.Quality = breakdown
		ins.QualityTotal = breakdown.Total()
		scored = append(scored, ins)
	}

	return scored, nil
}

// Filter gates already-scored insights.
func (g *Gate) Filter(insights []core.Insight) []core.Insight {
	var passed []core.Insight
	for _, ins := range insights {
		if g.Check(ins).Passed {
			passed = append(passed, ins)
		}
	}

	g.log.Info("quality gate complete",
		"candidates", len(insights), "passed", len(passed), "threshold", g.threshold)

	return passed
}
