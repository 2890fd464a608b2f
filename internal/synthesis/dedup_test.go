package synthesis

import (
	"strings"
	"testing"

	"groundswell/internal/core"
)

func insight(id string, total int, cited ...string) core.Insight {
	return core.Insight{
		ID:               id,
		Category:         core.CategoryPain,
		CitedEvidenceIDs: cited,
		Reasoning:        "reasoning for " + id,
		QualityTotal:     total,
	}
}

func TestDedupMergesOverlappingInsights(t *testing.T) {
	insights := []core.Insight{
		insight("a", 40, "e1", "e2", "e3"),
		insight("b", 30, "e1", "e2"), // 100% of b's citations overlap a
		insight("c", 35, "e7", "e8"),
	}

	merged := Dedup(insights)

	if len(merged) != 2 {
		t.Fatalf("Dedup() kept %d insights, want 2", len(merged))
	}

	// The higher-scored insight survives and absorbs the duplicate's reasoning.
	if merged[0].ID != "a" {
		t.Errorf("survivor = %s, want a (higher quality total)", merged[0].ID)
	}
	if !strings.Contains(merged[0].Reasoning, "reasoning for b") {
		t.Errorf("survivor reasoning lost the absorbed insight's analysis: %q", merged[0].Reasoning)
	}
	if merged[1].ID != "c" {
		t.Errorf("disjoint insight %s dropped", merged[1].ID)
	}
}

func TestDedupKeepsPartialOverlapBelowThreshold(t *testing.T) {
	// Overlap is exactly 1/2 = 0.5, not above the threshold.
	insights := []core.Insight{
		insight("a", 40, "e1", "e2"),
		insight("b", 38, "e2", "e3"),
	}

	merged := Dedup(insights)
	if len(merged) != 2 {
		t.Fatalf("50%% overlap merged, want both kept: %d", len(merged))
	}
}

func TestDedupDeterministic(t *testing.T) {
	// Equal totals resolve by ID, so input order never changes the outcome.
	forward := []core.Insight{
		insight("a", 35, "e1", "e2"),
		insight("b", 35, "e1", "e2"),
	}
	backward := []core.Insight{forward[1], forward[0]}

	m1 := Dedup(forward)
	m2 := Dedup(backward)

	if len(m1) != 1 || len(m2) != 1 {
		t.Fatalf("full overlap should merge to 1, got %d and %d", len(m1), len(m2))
	}
	if m1[0].ID != m2[0].ID {
		t.Errorf("survivor depends on input order: %s vs %s", m1[0].ID, m2[0].ID)
	}
	if m1[0].ID != "a" {
		t.Errorf("tie survivor = %s, want a (lowest ID)", m1[0].ID)
	}
}

func TestDedupSmallInputs(t *testing.T) {
	if got := Dedup(nil); len(got) != 0 {
		t.Errorf("Dedup(nil) = %v, want empty", got)
	}

	single := []core.Insight{insight("only", 20, "e1", "e2")}
	if got := Dedup(single); len(got) != 1 {
		t.Errorf("Dedup(single) kept %d, want 1", len(got))
	}
}

func TestCitationOverlap(t *testing.T) {
	testCases := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"x", "y"}, []string{"x", "y"}, 1.0},
		{"subset", []string{"x", "y", "z"}, []string{"x", "y"}, 1.0},
		{"half", []string{"x", "y"}, []string{"y", "z"}, 0.5},
		{"disjoint", []string{"x"}, []string{"y"}, 0.0},
		{"empty", nil, []string{"y"}, 0.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := citationOverlap(tc.a, tc.b); got != tc.want {
				t.Errorf("citationOverlap(%v, %v) = %.2f, want %.2f", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
