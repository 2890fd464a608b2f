// Package synthesis runs independent, lens-scoped passes over evidence
// through a language model and enforces the citation contract: every
// candidate insight must cite real enumerated evidence and carry a verbatim
// quote that fuzzy-matches a cited record.
package synthesis

import (
	"strings"

	"groundswell/internal/config"
	"groundswell/internal/core"
)

// Lens is one synthesis pass: a tagged configuration variant consumed by the
// generic pass runner. There is no per-lens code path.
type Lens struct {
	Name           string
	Categories     []core.InsightCategory
	FilterKeywords []string
	Focus          string
}

// LensFromConfig converts a config lens definition into its runtime form.
func LensFromConfig(lc config.LensConfig) Lens {
	categories := make([]core.InsightCategory, len(lc.Categories))
	for i, c := range lc.Categories {
		categories[i] = core.InsightCategory(c)
	}
	return Lens{
		Name:           lc.Name,
		Categories:     categories,
		FilterKeywords: lc.FilterKeywords,
		Focus:          lc.Focus,
	}
}

// LensesFromConfig converts a slice of lens definitions.
func LensesFromConfig(lcs []config.LensConfig) []Lens {
	lenses := make([]Lens, len(lcs))
	for i, lc := range lcs {
		lenses[i] = LensFromConfig(lc)
	}
	return lenses
}

// Filter narrows the evidence set to records relevant to this lens. A lens
// with no filter keywords sees everything. When keyword filtering leaves
// fewer than minKeep records, the full set is used instead: a sparse match
// should widen the lens, not starve the pass.
func (l Lens) Filter(evidence []core.EvidenceRecord, minKeep int) []core.EvidenceRecord {
	if len(l.FilterKeywords) == 0 {
		return evidence
	}

	var matched []core.EvidenceRecord
	for _, rec := range evidence {
		text := strings.ToLower(rec.Text)
		for _, kw := range l.FilterKeywords {
			if strings.Contains(text, kw) {
				matched = append(matched, rec)
				break
			}
		}
	}

	if len(matched) < minKeep {
		return evidence
	}

	return matched
}

// HasCategory reports whether the lens produces the given category.
func (l Lens) HasCategory(cat core.InsightCategory) bool {
	for _, c := range l.Categories {
		if c == cat {
			return true
		}
	}
	return false
}
