package embedding

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"groundswell/internal/core"
	"groundswell/internal/llm"
)

// fakeEmbedder fails for texts containing a trigger substring.
type fakeEmbedder struct {
	failOn string
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.calls++
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("provider rejected the input")
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

func fastBackoff() llm.Backoff {
	return llm.Backoff{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func evidenceWith(texts ...string) []core.EvidenceRecord {
	records := make([]core.EvidenceRecord, len(texts))
	for i, text := range texts {
		records[i] = core.EvidenceRecord{
			ID:         "rec-" + string(rune('a'+i)),
			SourceType: core.SourceReview,
			Text:       text,
		}
	}
	return records
}

func TestEmbedEvidence(t *testing.T) {
	svc := NewService(&fakeEmbedder{}, fastBackoff())

	result, err := svc.EmbedEvidence(context.Background(), evidenceWith("one", "two"))
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Embedded) != 2 {
		t.Fatalf("embedded %d records, want 2", len(result.Embedded))
	}
	for _, rec := range result.Embedded {
		if len(rec.Embedding) != 3 {
			t.Errorf("record %s embedding dimension = %d, want 3", rec.ID, len(rec.Embedding))
		}
	}
}

func TestEmbedEvidenceExcludesFailures(t *testing.T) {
	svc := NewService(&fakeEmbedder{failOn: "poison"}, fastBackoff())

	result, err := svc.EmbedEvidence(context.Background(), evidenceWith("fine", "poison pill", "also fine"))
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Embedded) != 2 {
		t.Errorf("embedded %d records, want 2", len(result.Embedded))
	}
	if len(result.Failed) != 1 {
		t.Fatalf("failed map has %d entries, want 1", len(result.Failed))
	}
	if _, ok := result.Failed["rec-b"]; !ok {
		t.Errorf("failed map = %v, want rec-b", result.Failed)
	}
	for id, err := range result.Failed {
		if !errors.Is(err, ErrProviderFailed) {
			t.Errorf("failure for %s = %v, want wrapped ErrProviderFailed", id, err)
		}
	}
}

func TestEmbedEvidenceAllFail(t *testing.T) {
	svc := NewService(&fakeEmbedder{failOn: "x"}, fastBackoff())

	result, err := svc.EmbedEvidence(context.Background(), evidenceWith("x1", "x2"))
	if !errors.Is(err, ErrNothingEmbedded) {
		t.Errorf("err = %v, want ErrNothingEmbedded", err)
	}
	if len(result.Failed) != 2 {
		t.Errorf("failed map has %d entries, want 2", len(result.Failed))
	}
}

func TestEmbedEvidenceSkipsExisting(t *testing.T) {
	embedder := &fakeEmbedder{}
	svc := NewService(embedder, fastBackoff())

	records := evidenceWith("already done")
	records[0].Embedding = []float64{9, 9, 9}

	result, err := svc.EmbedEvidence(context.Background(), records)
	if err != nil {
		t.Fatal(err)
	}
	if embedder.calls != 0 {
		t.Errorf("provider called %d times for pre-embedded record, want 0", embedder.calls)
	}
	if result.Embedded[0].Embedding[0] != 9 {
		t.Error("existing embedding was recomputed")
	}
}

func TestEmbedEvidenceTruncatesLongText(t *testing.T) {
	long := strings.Repeat("word ", 4000) // ~20k chars

	captured := ""
	embedder := &captureEmbedder{capture: &captured}
	svc := NewService(embedder, fastBackoff())

	if _, err := svc.EmbedEvidence(context.Background(), evidenceWith(long)); err != nil {
		t.Fatal(err)
	}
	if len(captured) > maxEmbedChars {
		t.Errorf("provider received %d chars, cap is %d", len(captured), maxEmbedChars)
	}
}

type captureEmbedder struct{ capture *string }

func (c *captureEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	*c.capture = text
	return []float64{1}, nil
}

func (c *captureEmbedder) Dimension() int { return 1 }
