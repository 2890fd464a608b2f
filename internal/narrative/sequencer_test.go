package narrative

import (
	"testing"

	"groundswell/internal/core"
)

func categorized(id string, cat core.InsightCategory, total int) core.Insight {
	return core.Insight{
		ID:           id,
		Category:     cat,
		QualityTotal: total,
	}
}

func eightInsights() []core.Insight {
	return []core.Insight{
		categorized("i1", core.CategoryPain, 45),
		categorized("i2", core.CategoryFear, 40),
		categorized("i3", core.CategoryDesire, 44),
		categorized("i4", core.CategoryMotivation, 38),
		categorized("i5", core.CategoryTrust, 42),
		categorized("i6", core.CategoryCompetitor, 37),
		categorized("i7", core.CategoryObjection, 41),
		categorized("i8", core.CategoryObjection, 36),
	}
}

func TestSequenceBuildsFullArc(t *testing.T) {
	s := NewSequencer(DefaultSequencerConfig())

	campaign, err := s.Sequence(eightInsights(), Request{DurationDays: 14})
	if err != nil {
		t.Fatal(err)
	}

	if campaign.DurationDays != 14 {
		t.Errorf("duration = %d, want 14", campaign.DurationDays)
	}
	if len(campaign.Touchpoints) != 8 {
		t.Fatalf("got %d touchpoints, want one per insight", len(campaign.Touchpoints))
	}

	// Every phase of the arc receives at least one touchpoint.
	byPhase := make(map[core.StoryPhase]int)
	for _, tp := range campaign.Touchpoints {
		byPhase[tp.Phase]++

		if tp.OffsetDays < 0 || tp.OffsetDays >= campaign.DurationDays {
			t.Errorf("touchpoint offset %d outside campaign duration", tp.OffsetDays)
		}
		if tp.Platform == "" {
			t.Errorf("touchpoint %s has no platform", tp.ID)
		}
		if tp.CampaignID != campaign.ID {
			t.Errorf("touchpoint %s references campaign %s", tp.ID, tp.CampaignID)
		}
	}
	for _, phase := range core.Phases() {
		if byPhase[phase] == 0 {
			t.Errorf("phase %s received no touchpoints", phase)
		}
	}

	// Touchpoints are emitted in chronological order.
	for i := 1; i < len(campaign.Touchpoints); i++ {
		if campaign.Touchpoints[i].OffsetDays < campaign.Touchpoints[i-1].OffsetDays {
			t.Error("touchpoints not sorted by offset")
			break
		}
	}
}

func TestSequenceCrossReferences(t *testing.T) {
	s := NewSequencer(DefaultSequencerConfig())

	campaign, err := s.Sequence(eightInsights(), Request{DurationDays: 14})
	if err != nil {
		t.Fatal(err)
	}

	byID := make(map[string]core.Touchpoint)
	var hookIDs []string
	for _, tp := range campaign.Touchpoints {
		byID[tp.ID] = tp
		if tp.Phase == core.PhaseHook {
			hookIDs = append(hookIDs, tp.ID)
		}
	}

	for _, tp := range campaign.Touchpoints {
		switch tp.Phase {
		case core.PhaseReveal:
			if len(tp.ReferencedIDs) == 0 {
				t.Errorf("reveal touchpoint %s references nothing", tp.ID)
				continue
			}
			ref, ok := byID[tp.ReferencedIDs[0]]
			if !ok {
				t.Errorf("reveal references unknown touchpoint %s", tp.ReferencedIDs[0])
			} else if ref.Phase != core.PhaseHook {
				t.Errorf("reveal references %s phase, want hook", ref.Phase)
			}
		case core.PhaseAction:
			if len(tp.ReferencedIDs) == 0 {
				t.Errorf("action touchpoint %s references nothing", tp.ID)
			}
		}
	}
}

func TestSequenceBorrowsForEmptyPhases(t *testing.T) {
	// Only pain insights: hook is the natural home of all of them, so the
	// other phases must borrow to keep a full arc.
	insights := []core.Insight{
		categorized("p1", core.CategoryPain, 48),
		categorized("p2", core.CategoryPain, 44),
		categorized("p3", core.CategoryPain, 40),
		categorized("p4", core.CategoryPain, 38),
		categorized("p5", core.CategoryPain, 36),
	}

	s := NewSequencer(DefaultSequencerConfig())
	campaign, err := s.Sequence(insights, Request{DurationDays: 14})
	if err != nil {
		t.Fatal(err)
	}

	byPhase := make(map[core.StoryPhase][]string)
	for _, tp := range campaign.Touchpoints {
		byPhase[tp.Phase] = append(byPhase[tp.Phase], tp.InsightIDs...)
	}

	populated := 0
	for _, phase := range core.Phases() {
		if len(byPhase[phase]) > 0 {
			populated++
		}
	}
	if populated < 4 {
		t.Errorf("%d phases populated from a single-category pool, want 4", populated)
	}

	// The hook keeps its strongest material; borrowing takes from the bottom.
	hook := byPhase[core.PhaseHook]
	if len(hook) == 0 {
		t.Fatal("hook phase emptied by borrowing")
	}
	for _, id := range hook {
		if id == "p5" {
			t.Error("lowest-scored insight stayed in the donor pool")
		}
	}
}

func TestSequenceDurationClamping(t *testing.T) {
	s := NewSequencer(DefaultSequencerConfig())

	testCases := []struct {
		requested int
		want      int
	}{
		{3, 7},
		{14, 14},
		{90, 30},
	}

	for _, tc := range testCases {
		campaign, err := s.Sequence(eightInsights(), Request{DurationDays: tc.requested})
		if err != nil {
			t.Fatal(err)
		}
		if campaign.DurationDays != tc.want {
			t.Errorf("requested %d days, got %d, want %d", tc.requested, campaign.DurationDays, tc.want)
		}
	}
}

func TestSequenceRespectsWeeklyCadence(t *testing.T) {
	cfg := DefaultSequencerConfig()
	cfg.Platforms = []string{"email"}
	cfg.WeeklyCadence = map[string]int{"email": 2}

	var insights []core.Insight
	for i := 0; i < 8; i++ {
		insights = append(insights, categorized(
			string(rune('a'+i)), core.CategoryPain, 40-i))
	}

	campaign, err := NewSequencer(cfg).Sequence(insights, Request{DurationDays: 28})
	if err != nil {
		t.Fatal(err)
	}

	perWeek := make(map[int]int)
	for _, tp := range campaign.Touchpoints {
		if tp.Platform != "email" {
			t.Errorf("unexpected platform %q", tp.Platform)
		}
		perWeek[tp.OffsetDays/7]++
	}
	for week, count := range perWeek {
		if count > 2 {
			t.Errorf("week %d has %d email touchpoints, cadence cap is 2", week, count)
		}
	}
}

func TestSequenceSpillsWhenCadenceSaturated(t *testing.T) {
	// One platform with room for a single touchpoint per week, six insights,
	// one week: five touchpoints have nowhere legal to go. They must spill
	// past the cap instead of shipping without a platform.
	cfg := DefaultSequencerConfig()
	cfg.Platforms = []string{"email"}
	cfg.WeeklyCadence = map[string]int{"email": 1}

	var insights []core.Insight
	for i := 0; i < 6; i++ {
		insights = append(insights, categorized(
			string(rune('a'+i)), core.CategoryPain, 45-i))
	}

	campaign, err := NewSequencer(cfg).Sequence(insights, Request{DurationDays: 7})
	if err != nil {
		t.Fatal(err)
	}

	if len(campaign.Touchpoints) != 6 {
		t.Fatalf("got %d touchpoints, want one per insight", len(campaign.Touchpoints))
	}
	for _, tp := range campaign.Touchpoints {
		if tp.Platform != "email" {
			t.Errorf("touchpoint %s assigned platform %q, want email", tp.ID, tp.Platform)
		}
		if tp.OffsetDays < 0 || tp.OffsetDays >= campaign.DurationDays {
			t.Errorf("touchpoint offset %d outside campaign duration", tp.OffsetDays)
		}
	}
}

func TestSequenceMarksCheckpoint(t *testing.T) {
	cfg := DefaultSequencerConfig()
	cfg.CheckpointDay = 3

	s := NewSequencer(cfg)

	var hookFired bool
	s.OnCheckpoint(func(_ core.Campaign, tp core.Touchpoint) {
		hookFired = true
		if !tp.CheckpointFlag {
			t.Error("checkpoint hook received an unflagged touchpoint")
		}
	})

	campaign, err := s.Sequence(eightInsights(), Request{DurationDays: 14})
	if err != nil {
		t.Fatal(err)
	}

	flagged := 0
	for _, tp := range campaign.Touchpoints {
		if tp.CheckpointFlag {
			flagged++
		}
	}
	if flagged != 1 {
		t.Errorf("%d touchpoints flagged as checkpoint, want exactly 1", flagged)
	}
	if !hookFired {
		t.Error("checkpoint hook never fired")
	}
}

func TestSequenceNoInsights(t *testing.T) {
	s := NewSequencer(DefaultSequencerConfig())
	if _, err := s.Sequence(nil, Request{DurationDays: 14}); err == nil {
		t.Error("expected error for empty insight set")
	}
}
