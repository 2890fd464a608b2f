// Package embedding converts evidence text into fixed-dimension vectors
// through a pluggable provider.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"groundswell/internal/core"
	"groundswell/internal/llm"
	"groundswell/internal/logger"
)

// Common errors for embedding operations.
var (
	ErrEmptyText        = errors.New("no text provided for embedding")
	ErrMissingAPIKey    = errors.New("embedding provider API key not set")
	ErrProviderFailed   = errors.New("embedding provider call failed")
	ErrNothingEmbedded  = errors.New("no evidence records could be embedded")
)

// Embedder generates fixed-dimension vectors for texts. Implementations must
// be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimension() int
}

// maxEmbedChars is a conservative input cap; embedding models have token
// limits and evidence snippets rarely need more.
const maxEmbedChars = 8000

// BatchResult reports which records were embedded and which were excluded
// after retry exhaustion. Exclusion is not fatal; the affected records are
// flagged and skipped by clustering.
type BatchResult struct {
	Embedded []core.EvidenceRecord
	Failed   map[string]error // Evidence ID -> final error
}

// Service embeds evidence records in batch with bounded retry per record.
type Service struct {
	embedder Embedder
	backoff  llm.Backoff
	log      *slog.Logger
}

// NewService creates an embedding service around the given provider.
func NewService(embedder Embedder, backoff llm.Backoff) *Service {
	return &Service{
		embedder: embedder,
		backoff:  backoff,
		log:      logger.Get(),
	}
}

// EmbedEvidence computes embeddings for every record that does not already
// carry one. Records whose provider calls exhaust retries are excluded and
// reported in Failed rather than failing the batch.
func (s *Service) EmbedEvidence(ctx context.Context, records []core.EvidenceRecord) (*BatchResult, error) {
	result := &BatchResult{
		Failed: make(map[string]error),
	}

	for _, rec := range records {
		if len(rec.Embedding) > 0 {
			result.Embedded = append(result.Embedded, rec)
			continue
		}

		text := rec.Text
		if len(text) > maxEmbedChars {
			text = text[:maxEmbedChars]
		}

		var vec []float64
		err := s.backoff.Retry(ctx, func(ctx context.Context) error {
			var embedErr error
			vec, embedErr = s.embedder.Embed(ctx, text)
			return embedErr
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warn("excluding evidence after embedding retries exhausted",
				"evidence_id", rec.ID, "error", err.Error())
			result.Failed[rec.ID] = fmt.Errorf("%w: %v", ErrProviderFailed, err)
			continue
		}

		rec.Embedding = vec
		result.Embedded = append(result.Embedded, rec)
	}

	if len(result.Embedded) == 0 {
		return result, ErrNothingEmbedded
	}

	return result, nil
}
