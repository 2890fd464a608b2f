package narrative

// cadenceScheduler assigns touchpoints to platforms under per-platform
// weekly frequency caps. Platforms are tried round-robin so no single
// channel absorbs the whole campaign.
type cadenceScheduler struct {
	platforms []string
	cadence   map[string]int
	used      map[string]map[int]int // platform -> week index -> count
	next      int
}

func newCadenceScheduler(platforms []string, cadence map[string]int) *cadenceScheduler {
	return &cadenceScheduler{
		platforms: platforms,
		cadence:   cadence,
		used:      make(map[string]map[int]int),
	}
}

// assign picks the next platform with cadence headroom in the week covering
// offsetDays. Returns false when every platform is at its cap for that week.
func (c *cadenceScheduler) assign(offsetDays int) (string, bool) {
	if len(c.platforms) == 0 {
		return "", false
	}

	week := offsetDays / 7

	for i := 0; i < len(c.platforms); i++ {
		platform := c.platforms[(c.next+i)%len(c.platforms)]

		cap, ok := c.cadence[platform]
		if !ok {
			cap = 3 // Platforms without an explicit cadence get a modest default
		}

		if c.weekCount(platform, week) < cap {
			c.record(platform, week)
			c.next = (c.next + i + 1) % len(c.platforms)
			return platform, true
		}
	}

	return "", false
}

// nextOpenDay finds the earliest day at or after offsetDays with cadence
// headroom on some platform, clamped to the campaign duration.
func (c *cadenceScheduler) nextOpenDay(offsetDays, durationDays int) int {
	for day := offsetDays; day < durationDays; day++ {
		week := day / 7
		for _, platform := range c.platforms {
			cap, ok := c.cadence[platform]
			if !ok {
				cap = 3
			}
			if c.weekCount(platform, week) < cap {
				return day
			}
		}
	}
	return durationDays - 1
}

// spill assigns the least-loaded platform for the week covering offsetDays,
// ignoring its cadence cap. Only reached when the whole remaining campaign
// window is saturated, so the overload lands where there is the most room.
func (c *cadenceScheduler) spill(offsetDays int) string {
	if len(c.platforms) == 0 {
		return ""
	}

	week := offsetDays / 7
	best := c.platforms[0]
	for _, platform := range c.platforms[1:] {
		if c.weekCount(platform, week) < c.weekCount(best, week) {
			best = platform
		}
	}

	c.record(best, week)
	return best
}

func (c *cadenceScheduler) weekCount(platform string, week int) int {
	if weeks, ok := c.used[platform]; ok {
		return weeks[week]
	}
	return 0
}

func (c *cadenceScheduler) record(platform string, week int) {
	if c.used[platform] == nil {
		c.used[platform] = make(map[int]int)
	}
	c.used[platform][week]++
}
