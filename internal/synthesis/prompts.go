package synthesis

import (
	"fmt"
	"strings"

	"groundswell/internal/connections"
	"groundswell/internal/core"

	"google.golang.org/genai"
)

// enumeration maps the stable prompt-visible IDs (E1, E2, ...) to the real
// evidence records shown to one pass.
type enumeration struct {
	ordered []core.EvidenceRecord
	byLabel map[string]core.EvidenceRecord
}

// enumerate assigns stable labels to the filtered evidence in input order.
func enumerate(evidence []core.EvidenceRecord) *enumeration {
	e := &enumeration{
		ordered: evidence,
		byLabel: make(map[string]core.EvidenceRecord, len(evidence)),
	}
	for i, rec := range evidence {
		e.byLabel[fmt.Sprintf("E%d", i+1)] = rec
	}
	return e
}

// lookup resolves a prompt label or a raw evidence ID to its record.
func (e *enumeration) lookup(id string) (core.EvidenceRecord, bool) {
	if rec, ok := e.byLabel[id]; ok {
		return rec, true
	}
	for _, rec := range e.ordered {
		if rec.ID == id {
			return rec, true
		}
	}
	return core.EvidenceRecord{}, false
}

// buildPassPrompt assembles the prompt for one lens. The citation contract is
// stated explicitly: citing an ID outside the enumerated set is a contract
// violation, and every candidate that does so is discarded by validation.
func buildPassPrompt(lens Lens, enum *enumeration, clusters []core.Cluster, conns []core.Connection, maxInsights int) string {
	var b strings.Builder

	b.WriteString("You are a marketing insight analyst. Analyze the evidence below about a business and extract insight triggers.\n\n")
	b.WriteString(fmt.Sprintf("LENS FOR THIS PASS: %s.\n", lens.Focus))

	cats := make([]string, len(lens.Categories))
	for i, c := range lens.Categories {
		cats[i] = string(c)
	}
	b.WriteString(fmt.Sprintf("Allowed categories: %s.\n\n", strings.Join(cats, ", ")))

	if len(clusters) > 0 {
		b.WriteString("THEMES FOUND IN THE EVIDENCE:\n")
		for _, c := range clusters {
			b.WriteString(fmt.Sprintf("- %s (%d records)\n", c.ThemeLabel, len(c.EvidenceIDs)))
		}
		b.WriteString("\n")
	}

	if len(conns) > 0 {
		b.WriteString("UNEXPECTED THEME COMBINATIONS (advisory only, never cite these):\n")
		for _, conn := range conns {
			b.WriteString(fmt.Sprintf("- %s (unexpectedness %.2f)\n", connections.Describe(conn), conn.Unexpectedness))
		}
		b.WriteString("\n")
	}

	b.WriteString("EVIDENCE (cite by the IDs below and ONLY these IDs):\n")
	for i, rec := range enum.ordered {
		b.WriteString(fmt.Sprintf("[E%d] (%s) %s\n", i+1, rec.SourceType, rec.Text))
	}

	b.WriteString(fmt.Sprintf(`
CITATION CONTRACT (violations are discarded, not warned):
1. Every insight must cite at least 2 evidence IDs from the enumerated set above.
2. Citing any ID not in the enumerated set is a contract violation.
3. verbatim_quote must be an exact quote copied from the text of one of the cited records. Do not paraphrase.
4. reasoning must explain why the cited evidence supports the claim.

Return at most %d insights as a JSON array. Fewer, well-grounded insights beat many weak ones.
`, maxInsights))

	return b.String()
}

// candidateSchema constrains the model's structured output to the candidate
// insight shape so responses are enumerable against the prompt's ID set.
func candidateSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category": {
					Type:        genai.TypeString,
					Description: "One of the allowed categories for this pass",
				},
				"cited_evidence_ids": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "At least 2 IDs from the enumerated evidence set",
				},
				"verbatim_quote": {
					Type:        genai.TypeString,
					Description: "Exact quote from a cited record's text",
				},
				"reasoning": {
					Type:        genai.TypeString,
					Description: "Why the cited evidence supports the claim",
				},
			},
			Required: []string{"category", "cited_evidence_ids", "verbatim_quote", "reasoning"},
		},
	}
}
