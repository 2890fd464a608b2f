package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"groundswell/internal/core"
	"groundswell/internal/llm"
	"groundswell/internal/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// LLMClient is the language-model surface the synthesizer needs.
type LLMClient interface {
	GenerateText(ctx context.Context, prompt string, options llm.TextGenerationOptions) (string, error)
}

// Event is one streamed result from a synthesis pass. Consumers see
// validated insights as each pass produces them; a degraded event marks a
// pass whose provider calls failed permanently.
type Event struct {
	Pass     string
	Insight  *core.Insight // Set for validated candidates
	Degraded bool          // Set when the pass failed after retries
	Err      error         // The final provider error for a degraded pass
}

// Config holds synthesizer configuration.
type Config struct {
	MinCitations       int
	QuoteThreshold     float64
	MaxInsightsPerPass int
	PassRetries        int
}

// DefaultConfig returns sensible synthesis defaults.
func DefaultConfig() Config {
	return Config{
		MinCitations:       2,
		QuoteThreshold:     0.9,
		MaxInsightsPerPass: 8,
		PassRetries:        2,
	}
}

// Synthesizer runs lens-scoped passes concurrently and streams validated
// candidates. Passes share no mutable state; reconciliation happens at the
// dedup step downstream.
type Synthesizer struct {
	client    LLMClient
	config    Config
	validator *Validator
	log       *slog.Logger
}

// NewSynthesizer creates a synthesizer around the given LLM client.
func NewSynthesizer(client LLMClient, config Config) *Synthesizer {
	return &Synthesizer{
		client:    client,
		config:    config,
		validator: NewValidator(config.MinCitations, config.QuoteThreshold),
		log:       logger.Get(),
	}
}

// Run executes all lenses concurrently and returns a channel of events. The
// channel is closed when every pass has finished. One pass failing never
// blocks or fails the others; cancellation is cooperative via ctx.
func (s *Synthesizer) Run(
	ctx context.Context,
	evidence []core.EvidenceRecord,
	clusters []core.Cluster,
	conns []core.Connection,
	lenses []Lens,
) <-chan Event {
	events := make(chan Event)

	g, ctx := errgroup.WithContext(ctx)
	for _, lens := range lenses {
		lens := lens
		g.Go(func() error {
			s.runPass(ctx, lens, evidence, clusters, conns, events)
			return nil // Pass failures surface as degraded events, not errors
		})
	}

	go func() {
		_ = g.Wait()
		close(events)
	}()

	return events
}

// runPass executes one lens: filter, enumerate, generate, validate, stream.
func (s *Synthesizer) runPass(
	ctx context.Context,
	lens Lens,
	evidence []core.EvidenceRecord,
	clusters []core.Cluster,
	conns []core.Connection,
	events chan<- Event,
) {
	filtered := lens.Filter(evidence, s.config.MinCitations)
	if len(filtered) < s.config.MinCitations {
		s.log.Warn("pass has too little evidence to satisfy the citation contract",
			"pass", lens.Name, "evidence", len(filtered))
		return
	}

	enum := enumerate(filtered)
	prompt := buildPassPrompt(lens, enum, clusters, conns, s.config.MaxInsightsPerPass)

	backoff := llm.Backoff{
		MaxRetries: s.config.PassRetries,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}

	var response string
	err := backoff.Retry(ctx, func(ctx context.Context) error {
		var genErr error
		response, genErr = s.client.GenerateText(ctx, prompt, llm.TextGenerationOptions{
			ResponseSchema: candidateSchema(),
		})
		return genErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return // Cooperative cancellation, not a degraded pass
		}
		s.log.Error("pass degraded after retries", "pass", lens.Name, "error", err.Error())
		send(ctx, events, Event{Pass: lens.Name, Degraded: true, Err: err})
		return
	}

	candidates, err := parseCandidates(response)
	if err != nil {
		s.log.Error("pass produced unparseable output", "pass", lens.Name, "error", err.Error())
		send(ctx, events, Event{Pass: lens.Name, Degraded: true, Err: err})
		return
	}

	accepted := 0
	for _, c := range candidates {
		if accepted >= s.config.MaxInsightsPerPass {
			break
		}

		citedIDs, err := s.validator.Validate(c, enum, lens)
		if err != nil {
			// Contract violations are discarded, logged for diagnostics only.
			s.log.Debug("candidate rejected by citation validation",
				"pass", lens.Name, "reason", err.Error())
			continue
		}

		insight := &core.Insight{
			ID:               uuid.NewString(),
			Category:         categoryOf(c),
			PassName:         lens.Name,
			CitedEvidenceIDs: citedIDs,
			VerbatimQuote:    c.VerbatimQuote,
			Reasoning:        c.Reasoning,
			CreatedAt:        time.Now().UTC(),
		}

		if !send(ctx, events, Event{Pass: lens.Name, Insight: insight}) {
			return
		}
		accepted++
	}

	s.log.Info("pass complete", "pass", lens.Name,
		"candidates", len(candidates), "accepted", accepted)
}

// send delivers an event unless the context is cancelled.
func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// parseCandidates decodes the model's JSON array, tolerating markdown code
// fences around the payload.
func parseCandidates(response string) ([]candidate, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var candidates []candidate
	if err := json.Unmarshal([]byte(cleaned), &candidates); err != nil {
		return nil, fmt.Errorf("failed to parse candidate insights: %w", err)
	}

	return candidates, nil
}

// categoryOf normalizes a candidate's category string.
func categoryOf(c candidate) core.InsightCategory {
	return core.InsightCategory(strings.ToLower(strings.TrimSpace(c.Category)))
}
