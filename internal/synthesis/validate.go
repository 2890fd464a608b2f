package synthesis

import (
	"errors"
	"fmt"
)

// Citation validation errors. A candidate failing any of these checks never
// reaches the quality gate; it is logged and discarded, never persisted with
// an "invalid" flag.
var (
	ErrUnknownCitation  = errors.New("cited evidence ID not in enumerated set")
	ErrTooFewCitations  = errors.New("fewer citations than required minimum")
	ErrQuoteMismatch    = errors.New("verbatim quote does not match any cited record")
	ErrEmptyQuote       = errors.New("verbatim quote is empty")
	ErrWrongCategory    = errors.New("category not allowed for this lens")
)

// candidate is the raw parsed output of one generation step, before
// validation. Cited IDs are prompt labels (E1...) or raw evidence IDs.
type candidate struct {
	Category         string   `json:"category"`
	CitedEvidenceIDs []string `json:"cited_evidence_ids"`
	VerbatimQuote    string   `json:"verbatim_quote"`
	Reasoning        string   `json:"reasoning"`
}

// Validator enforces the citation contract on generation output.
type Validator struct {
	// MinCitations is the minimum number of distinct cited records (>= 2).
	MinCitations int
	// QuoteThreshold is the fuzzy similarity the verbatim quote must reach
	// against the text of at least one cited record.
	QuoteThreshold float64
}

// NewValidator creates a validator with the given contract parameters.
func NewValidator(minCitations int, quoteThreshold float64) *Validator {
	return &Validator{
		MinCitations:   minCitations,
		QuoteThreshold: quoteThreshold,
	}
}

// Validate checks one candidate against the enumerated evidence set and the
// lens's allowed categories. On success it returns the resolved real
// evidence IDs, deduplicated, in citation order.
func (v *Validator) Validate(c candidate, enum *enumeration, lens Lens) ([]string, error) {
	if c.VerbatimQuote == "" {
		return nil, ErrEmptyQuote
	}

	if !lens.HasCategory(categoryOf(c)) {
		return nil, fmt.Errorf("%w: %q", ErrWrongCategory, c.Category)
	}

	seen := make(map[string]struct{})
	var resolved []string
	var citedTexts []string

	for _, id := range c.CitedEvidenceIDs {
		rec, ok := enum.lookup(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCitation, id)
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		resolved = append(resolved, rec.ID)
		citedTexts = append(citedTexts, rec.Text)
	}

	if len(resolved) < v.MinCitations {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrTooFewCitations, len(resolved), v.MinCitations)
	}

	best := 0.0
	for _, text := range citedTexts {
		if sim := QuoteSimilarity(c.VerbatimQuote, text); sim > best {
			best = sim
		}
		if best >= v.QuoteThreshold {
			return resolved, nil
		}
	}

	return nil, fmt.Errorf("%w: best similarity %.3f below %.3f", ErrQuoteMismatch, best, v.QuoteThreshold)
}
