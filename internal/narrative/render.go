package narrative

import (
	"fmt"
	"strings"

	"groundswell/internal/core"
)

// RenderMarkdown formats a campaign for the publishing consumer handoff.
// Insight lookups resolve IDs from the arena; unknown IDs render as bare IDs
// rather than failing, since the campaign structure is already final.
func RenderMarkdown(campaign core.Campaign, insights map[string]core.Insight) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# Campaign %s\n\n", campaign.ID))
	b.WriteString(fmt.Sprintf("Type: %s  \n", campaign.CampaignType))
	b.WriteString(fmt.Sprintf("Duration: %d days  \n", campaign.DurationDays))
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", campaign.DateGenerated.Format("2006-01-02")))

	for _, phase := range campaign.StoryPhases {
		b.WriteString(fmt.Sprintf("## Phase: %s\n\n", phase))

		for _, tp := range campaign.Touchpoints {
			if tp.Phase != phase {
				continue
			}

			b.WriteString(fmt.Sprintf("### Day %d: %s\n\n", tp.OffsetDays+1, tp.Platform))
			if tp.CheckpointFlag {
				b.WriteString("*(performance checkpoint)*\n\n")
			}

			for _, id := range tp.InsightIDs {
				if ins, ok := insights[id]; ok {
					b.WriteString(fmt.Sprintf("- **[%s]** \"%s\"\n", ins.Category, ins.VerbatimQuote))
					b.WriteString(fmt.Sprintf("  - %s\n", ins.Reasoning))
					b.WriteString(fmt.Sprintf("  - Evidence: %s\n", strings.Join(ins.CitedEvidenceIDs, ", ")))
				} else {
					b.WriteString(fmt.Sprintf("- Insight %s\n", id))
				}
			}

			if len(tp.ReferencedIDs) > 0 {
				b.WriteString(fmt.Sprintf("  - Calls back to touchpoint(s): %s\n", strings.Join(tp.ReferencedIDs, ", ")))
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
