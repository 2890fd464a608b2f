package core

import "time"

// SourceType identifies where a piece of evidence was collected from.
type SourceType string

const (
	SourceReview SourceType = "review"
	SourceSocial SourceType = "social"
	SourceForum  SourceType = "forum"
	SourceNews   SourceType = "news"
	SourceCrawl  SourceType = "crawl"
)

// EvidenceRecord is one immutable unit of collected text with provenance
// metadata. It is owned by the ingestion boundary; the engine never mutates
// or re-derives its fields once produced.
type EvidenceRecord struct {
	ID         string     `json:"id"`          // Unique, stable identifier
	SourceType SourceType `json:"source_type"` // Where the evidence came from
	SourceURL  string     `json:"source_url"`  // Provenance URL
	Text       string     `json:"text"`        // The evidence text itself
	CapturedAt time.Time  `json:"captured_at"` // When the snapshot was taken
	Embedding  []float64  `json:"embedding"`   // Vector embedding, computed once
}

// Cluster is a thematically grouped set of evidence records. Clusters are
// recomputed per run and referenced by ID, never by pointer.
type Cluster struct {
	ID              string    `json:"id"`               // Unique identifier for this run
	EvidenceIDs     []string  `json:"evidence_ids"`     // Member evidence record IDs
	Centroid        []float64 `json:"centroid"`         // Cluster centroid in embedding space
	ThemeLabel      string    `json:"theme_label"`      // Short human-readable theme
	Coherence       float64   `json:"coherence"`        // Avg pairwise member similarity
	SourceDiversity int       `json:"source_diversity"` // Count of distinct source types
	Noise           bool      `json:"noise"`            // Singleton peeled off by the density pass
	CreatedAt       time.Time `json:"created_at"`       // When the cluster was built
}

// Connection is a scored relationship between 2-5 clusters. It is advisory
// input to synthesis prompts and never a source of truth for citations.
type Connection struct {
	ID             string   `json:"id"`
	ClusterIDs     []string `json:"cluster_ids"`     // 2-5 distinct cluster IDs
	Arity          int      `json:"arity"`           // len(ClusterIDs)
	Unexpectedness float64  `json:"unexpectedness"`  // 0-1, distance x inverse co-occurrence
	ThemeLabels    []string `json:"theme_labels"`    // Labels of the connected clusters
}

// InsightCategory classifies what kind of marketing trigger an insight is.
type InsightCategory string

const (
	CategoryPain       InsightCategory = "pain"
	CategoryFear       InsightCategory = "fear"
	CategoryDesire     InsightCategory = "desire"
	CategoryMotivation InsightCategory = "motivation"
	CategoryObjection  InsightCategory = "objection"
	CategoryTrust      InsightCategory = "trust"
	CategoryCompetitor InsightCategory = "competitor"
)

// QualityBreakdown holds the five scoring dimensions, each 0-10.
type QualityBreakdown struct {
	Relevance     int `json:"relevance"`     // Customer relevance
	Actionability int `json:"actionability"` // Can marketing act on it
	Uniqueness    int `json:"uniqueness"`    // Non-generic, non-obvious
	Alignment     int `json:"alignment"`     // Fits the claimed category
	Emotional     int `json:"emotional"`     // Emotional pull
}

// Total sums the five dimensions (0-50).
func (q QualityBreakdown) Total() int {
	return q.Relevance + q.Actionability + q.Uniqueness + q.Alignment + q.Emotional
}

// Insight is a synthesized, citation-validated marketing claim ("trigger").
// An insight that fails citation validation is discarded before it ever
// takes this shape in output; there is no "invalid" flag.
type Insight struct {
	ID               string           `json:"id"`
	Category         InsightCategory  `json:"category"`
	PassName         string           `json:"pass_name"`          // Lens that produced it
	CitedEvidenceIDs []string         `json:"cited_evidence_ids"` // >= 2, subset of ingested IDs
	VerbatimQuote    string           `json:"verbatim_quote"`     // Appears in a cited record's text
	Reasoning        string           `json:"reasoning"`          // Why the evidence supports the claim
	Quality          QualityBreakdown `json:"quality"`
	QualityTotal     int              `json:"quality_total"`
	CreatedAt        time.Time        `json:"created_at"`
}

// StoryPhase is one stage of a campaign's narrative arc.
type StoryPhase string

const (
	PhaseHook   StoryPhase = "hook"   // Problem awareness
	PhaseBuild  StoryPhase = "build"  // Education and desire
	PhaseReveal StoryPhase = "reveal" // Proof and trust
	PhaseAction StoryPhase = "action" // Objection handling + call to action
)

// Phases lists the arc in narrative order.
func Phases() []StoryPhase {
	return []StoryPhase{PhaseHook, PhaseBuild, PhaseReveal, PhaseAction}
}

// Touchpoint is one scheduled content unit within a campaign. Cross-references
// to earlier touchpoints are expressed as IDs to avoid ownership cycles.
type Touchpoint struct {
	ID             string     `json:"id"`
	CampaignID     string     `json:"campaign_id"`
	Phase          StoryPhase `json:"phase"`
	InsightIDs     []string   `json:"insight_ids"` // One or more insights this touchpoint delivers
	Platform       string     `json:"platform"`
	OffsetDays     int        `json:"offset_days"`     // Days from campaign start
	ReferencedIDs  []string   `json:"referenced_ids"`  // Earlier touchpoint IDs for narrative coherence
	CheckpointFlag bool       `json:"checkpoint_flag"` // External performance feedback hook fires here
}

// Campaign is the durable output: an ordered story arc of touchpoints built
// from insights that survived the quality gate.
type Campaign struct {
	ID            string       `json:"id"`
	CampaignType  string       `json:"campaign_type"`
	DurationDays  int          `json:"duration_days"`
	StoryPhases   []StoryPhase `json:"story_phases"` // Ordered arc
	Touchpoints   []Touchpoint `json:"touchpoints"`  // Ordered by offset
	InsightIDs    []string     `json:"insight_ids"`  // All insights used
	DateGenerated time.Time    `json:"date_generated"`
}
