// Package narrative arranges surviving insights into an ordered campaign
// story arc with platform-assigned touchpoints.
package narrative

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"groundswell/internal/core"
	"groundswell/internal/logger"

	"github.com/google/uuid"
)

// SequencerConfig holds narrative sequencing configuration.
type SequencerConfig struct {
	MinDays       int
	MaxDays       int
	Platforms     []string
	WeeklyCadence map[string]int // Max touchpoints per platform per week
	CheckpointDay int            // Day at which the external feedback hook fires
}

// DefaultSequencerConfig returns sensible defaults.
func DefaultSequencerConfig() SequencerConfig {
	return SequencerConfig{
		MinDays:   7,
		MaxDays:   30,
		Platforms: []string{"instagram", "facebook", "linkedin", "email"},
		WeeklyCadence: map[string]int{
			"instagram": 5,
			"facebook":  4,
			"linkedin":  3,
			"email":     2,
		},
		CheckpointDay: 3,
	}
}

// Request describes the campaign to build.
type Request struct {
	CampaignType string
	DurationDays int
}

// CheckpointFunc receives the touchpoint where external performance feedback
// should be gathered. The sequencer only reports the checkpoint; pivot
// decisions belong to the caller.
type CheckpointFunc func(campaign core.Campaign, checkpoint core.Touchpoint)

// Sequencer maps insights onto a hook/build/reveal/action story arc.
type Sequencer struct {
	config     SequencerConfig
	checkpoint CheckpointFunc
	log        *slog.Logger
}

// NewSequencer creates a narrative sequencer.
func NewSequencer(config SequencerConfig) *Sequencer {
	return &Sequencer{
		config: config,
		log:    logger.Get(),
	}
}

// OnCheckpoint registers the external performance feedback hook.
func (s *Sequencer) OnCheckpoint(fn CheckpointFunc) {
	s.checkpoint = fn
}

// phaseAffinity maps insight categories to their natural story phase.
var phaseAffinity = map[core.InsightCategory]core.StoryPhase{
	core.CategoryPain:       core.PhaseHook,
	core.CategoryFear:       core.PhaseHook,
	core.CategoryDesire:     core.PhaseBuild,
	core.CategoryMotivation: core.PhaseBuild,
	core.CategoryCompetitor: core.PhaseReveal,
	core.CategoryTrust:      core.PhaseReveal,
	core.CategoryObjection:  core.PhaseAction,
}

// phaseShares splits the campaign duration across the arc. Hook opens short
// and punchy, build carries the middle, reveal and action close.
var phaseShares = map[core.StoryPhase]float64{
	core.PhaseHook:   0.20,
	core.PhaseBuild:  0.35,
	core.PhaseReveal: 0.25,
	core.PhaseAction: 0.20,
}

// Sequence arranges insights into an ordered campaign. Every phase receives
// at least one insight when enough survive the gate; phases borrow from the
// largest pool when their natural categories produced nothing.
func (s *Sequencer) Sequence(insights []core.Insight, req Request) (core.Campaign, error) {
	if len(insights) == 0 {
		return core.Campaign{}, fmt.Errorf("no insights to sequence")
	}

	duration := req.DurationDays
	if duration < s.config.MinDays {
		duration = s.config.MinDays
	}
	if duration > s.config.MaxDays {
		duration = s.config.MaxDays
	}

	campaignType := req.CampaignType
	if campaignType == "" {
		campaignType = "narrative_arc"
	}

	pools := s.assignPhases(insights)

	campaign := core.Campaign{
		ID:            uuid.NewString(),
		CampaignType:  campaignType,
		DurationDays:  duration,
		StoryPhases:   core.Phases(),
		DateGenerated: time.Now().UTC(),
	}

	scheduler := newCadenceScheduler(s.config.Platforms, s.config.WeeklyCadence)

	dayCursor := 0
	var hookIDs, revealIDs []string

	for _, phase := range core.Phases() {
		phaseDays := int(float64(duration) * phaseShares[phase])
		if phaseDays < 1 {
			phaseDays = 1
		}

		pool := pools[phase]
		for i, insight := range pool {
			offset := dayCursor
			if len(pool) > 1 {
				offset = dayCursor + (i*phaseDays)/len(pool)
			}
			if offset >= duration {
				offset = duration - 1
			}

			platform, ok := scheduler.assign(offset)
			if !ok {
				// Every platform is at its weekly cap around this day; push the
				// touchpoint rather than drop the insight.
				offset = scheduler.nextOpenDay(offset, duration)
				platform, ok = scheduler.assign(offset)
			}
			if !ok {
				// The whole campaign window is saturated. Exceeding a cadence
				// cap beats emitting a platformless touchpoint.
				platform = scheduler.spill(offset)
				s.log.Warn("cadence caps saturated, spilling past cap",
					"platform", platform, "offset_days", offset)
			}

			tp := core.Touchpoint{
				ID:         uuid.NewString(),
				CampaignID: campaign.ID,
				Phase:      phase,
				InsightIDs: []string{insight.ID},
				Platform:   platform,
				OffsetDays: offset,
			}

			// Later phases call back to earlier beats to keep one story.
			switch phase {
			case core.PhaseReveal:
				if len(hookIDs) > 0 {
					tp.ReferencedIDs = []string{hookIDs[0]}
				}
			case core.PhaseAction:
				if len(revealIDs) > 0 {
					tp.ReferencedIDs = []string{revealIDs[len(revealIDs)-1]}
				} else if len(hookIDs) > 0 {
					tp.ReferencedIDs = []string{hookIDs[0]}
				}
			}

			campaign.Touchpoints = append(campaign.Touchpoints, tp)
			campaign.InsightIDs = append(campaign.InsightIDs, insight.ID)

			switch phase {
			case core.PhaseHook:
				hookIDs = append(hookIDs, tp.ID)
			case core.PhaseReveal:
				revealIDs = append(revealIDs, tp.ID)
			}
		}

		dayCursor += phaseDays
	}

	sort.SliceStable(campaign.Touchpoints, func(i, j int) bool {
		return campaign.Touchpoints[i].OffsetDays < campaign.Touchpoints[j].OffsetDays
	})

	s.markCheckpoint(&campaign)

	s.log.Info("campaign sequenced",
		"insights", len(insights), "touchpoints", len(campaign.Touchpoints), "days", duration)

	return campaign, nil
}

// assignPhases distributes insights into phase pools by category affinity,
// then rebalances so no phase is left empty while another holds several.
func (s *Sequencer) assignPhases(insights []core.Insight) map[core.StoryPhase][]core.Insight {
	pools := make(map[core.StoryPhase][]core.Insight)

	ordered := make([]core.Insight, len(insights))
	copy(ordered, insights)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].QualityTotal > ordered[j].QualityTotal
	})

	for _, insight := range ordered {
		phase, ok := phaseAffinity[insight.Category]
		if !ok {
			phase = core.PhaseBuild // Uncategorized affinity lands mid-arc
		}
		pools[phase] = append(pools[phase], insight)
	}

	// Borrow for empty phases from the largest pool, lowest-scored first so
	// each phase keeps its strongest material.
	for _, phase := range core.Phases() {
		if len(pools[phase]) > 0 {
			continue
		}

		donor := largestPool(pools)
		if donor == "" || len(pools[donor]) < 2 {
			continue // Nothing to borrow without emptying the donor
		}

		n := len(pools[donor])
		pools[phase] = append(pools[phase], pools[donor][n-1])
		pools[donor] = pools[donor][:n-1]
	}

	return pools
}

// markCheckpoint flags the touchpoint nearest the configured checkpoint day
// and fires the external hook if one is registered.
func (s *Sequencer) markCheckpoint(campaign *core.Campaign) {
	if len(campaign.Touchpoints) == 0 {
		return
	}

	bestIdx := 0
	bestDist := campaign.DurationDays + 1
	for i, tp := range campaign.Touchpoints {
		dist := tp.OffsetDays - s.config.CheckpointDay
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			bestDist = dist
			bestIdx = i
		}
	}

	campaign.Touchpoints[bestIdx].CheckpointFlag = true

	if s.checkpoint != nil {
		s.checkpoint(*campaign, campaign.Touchpoints[bestIdx])
	}
}

func largestPool(pools map[core.StoryPhase][]core.Insight) core.StoryPhase {
	var largest core.StoryPhase
	max := 0
	for _, phase := range core.Phases() {
		if len(pools[phase]) > max {
			max = len(pools[phase])
			largest = phase
		}
	}
	return largest
}
