package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"groundswell/internal/core"
	"groundswell/internal/llm"
)

// fakeLLM routes responses by the lens focus line embedded in the prompt.
type fakeLLM struct {
	responses map[string]string // Focus substring -> response body
	errs      map[string]error  // Focus substring -> permanent error
	calls     int
}

func (f *fakeLLM) GenerateText(_ context.Context, prompt string, _ llm.TextGenerationOptions) (string, error) {
	f.calls++
	for focus, err := range f.errs {
		if strings.Contains(prompt, focus) {
			return "", err
		}
	}
	for focus, resp := range f.responses {
		if strings.Contains(prompt, focus) {
			return resp, nil
		}
	}
	return "[]", nil
}

func candidateJSON(t *testing.T, cs []candidate) string {
	t.Helper()
	data, err := json.Marshal(cs)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func testConfig() Config {
	return Config{
		MinCitations:       2,
		QuoteThreshold:     0.9,
		MaxInsightsPerPass: 8,
		PassRetries:        0,
	}
}

func TestRunStreamsValidatedInsights(t *testing.T) {
	evidence := bakeryEvidence()

	good := []candidate{
		{
			Category:         "pain",
			CitedEvidenceIDs: []string{"E1", "E2"},
			VerbatimQuote:    "long wait times",
			Reasoning:        "Multiple reviewers complain about waiting on weekends.",
		},
		{
			Category:         "pain",
			CitedEvidenceIDs: []string{"E1", "E99"}, // Fabricated, must be discarded
			VerbatimQuote:    "long wait times",
			Reasoning:        "Cites an ID outside the enumerated set.",
		},
	}

	client := &fakeLLM{
		responses: map[string]string{
			"customer pain points": candidateJSON(t, good),
		},
	}

	s := NewSynthesizer(client, testConfig())
	lenses := []Lens{painLens()}

	var insights []core.Insight
	var degraded []string
	for ev := range s.Run(context.Background(), evidence, nil, nil, lenses) {
		if ev.Degraded {
			degraded = append(degraded, ev.Pass)
		}
		if ev.Insight != nil {
			insights = append(insights, *ev.Insight)
		}
	}

	if len(degraded) != 0 {
		t.Fatalf("unexpected degraded passes: %v", degraded)
	}
	if len(insights) != 1 {
		t.Fatalf("got %d insights, want 1 (fabricated citation discarded)", len(insights))
	}

	ins := insights[0]
	if ins.PassName != "pain_fear" {
		t.Errorf("PassName = %q, want pain_fear", ins.PassName)
	}
	if ins.Category != core.CategoryPain {
		t.Errorf("Category = %q, want pain", ins.Category)
	}
	if len(ins.CitedEvidenceIDs) != 2 || ins.CitedEvidenceIDs[0] != "rev-001" {
		t.Errorf("CitedEvidenceIDs = %v, want resolved real IDs", ins.CitedEvidenceIDs)
	}
	if ins.ID == "" {
		t.Error("insight has no ID")
	}
}

func TestRunIsolatesFailingPass(t *testing.T) {
	evidence := bakeryEvidence()

	healthy := []candidate{{
		Category:         "desire",
		CitedEvidenceIDs: []string{"E3", "E6"},
		VerbatimQuote:    "Best bakery in the neighborhood",
		Reasoning:        "Social posts celebrate the product line enthusiastically.",
	}}

	client := &fakeLLM{
		responses: map[string]string{
			"what customers desire": candidateJSON(t, healthy),
		},
		errs: map[string]error{
			"customer pain points": errors.New("provider unavailable"),
		},
	}

	s := NewSynthesizer(client, testConfig())
	lenses := []Lens{
		painLens(),
		{
			Name:       "desire_motivation",
			Categories: []core.InsightCategory{core.CategoryDesire, core.CategoryMotivation},
			Focus:      "what customers desire",
		},
	}

	var insights []core.Insight
	var degraded []string
	for ev := range s.Run(context.Background(), evidence, nil, nil, lenses) {
		if ev.Degraded {
			degraded = append(degraded, ev.Pass)
			if ev.Err == nil {
				t.Error("degraded event carries no error")
			}
		}
		if ev.Insight != nil {
			insights = append(insights, *ev.Insight)
		}
	}

	if len(degraded) != 1 || degraded[0] != "pain_fear" {
		t.Errorf("degraded passes = %v, want [pain_fear]", degraded)
	}
	if len(insights) != 1 {
		t.Errorf("healthy pass produced %d insights, want 1", len(insights))
	}
}

func TestRunCapsInsightsPerPass(t *testing.T) {
	evidence := bakeryEvidence()

	var many []candidate
	for i := 0; i < 6; i++ {
		many = append(many, candidate{
			Category:         "pain",
			CitedEvidenceIDs: []string{"E1", "E2"},
			VerbatimQuote:    "long wait times",
			Reasoning:        fmt.Sprintf("candidate number %d", i),
		})
	}

	client := &fakeLLM{
		responses: map[string]string{
			"customer pain points": candidateJSON(t, many),
		},
	}

	cfg := testConfig()
	cfg.MaxInsightsPerPass = 3

	s := NewSynthesizer(client, cfg)

	count := 0
	for ev := range s.Run(context.Background(), evidence, nil, nil, []Lens{painLens()}) {
		if ev.Insight != nil {
			count++
		}
	}

	if count != 3 {
		t.Errorf("pass emitted %d insights, want capped at 3", count)
	}
}

func TestRunSkipsUnderpopulatedPass(t *testing.T) {
	// One record cannot satisfy a 2-citation minimum; the pass must not call
	// the provider at all.
	evidence := bakeryEvidence()[:1]

	client := &fakeLLM{}
	s := NewSynthesizer(client, testConfig())

	for range s.Run(context.Background(), evidence, nil, nil, []Lens{painLens()}) {
	}

	if client.calls != 0 {
		t.Errorf("provider called %d times for an underpopulated pass, want 0", client.calls)
	}
}

func TestParseCandidatesToleratesCodeFences(t *testing.T) {
	body := `[{"category":"pain","cited_evidence_ids":["E1","E2"],"verbatim_quote":"q","reasoning":"r"}]`

	for _, wrapped := range []string{body, "```json\n" + body + "\n```", "```\n" + body + "\n```"} {
		cs, err := parseCandidates(wrapped)
		if err != nil {
			t.Errorf("parseCandidates(%q...) failed: %v", wrapped[:10], err)
			continue
		}
		if len(cs) != 1 {
			t.Errorf("parsed %d candidates, want 1", len(cs))
		}
	}

	if _, err := parseCandidates("not json at all"); err == nil {
		t.Error("expected parse error for non-JSON response")
	}
}
