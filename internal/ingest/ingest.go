// Package ingest validates raw evidence at the engine boundary. Records
// entering the pipeline are immutable afterward; everything downstream
// references them by ID.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"groundswell/internal/core"
	"groundswell/internal/logger"
)

// Rejection records why one raw record failed validation. Rejections never
// block the run; the surviving records proceed.
type Rejection struct {
	ID     string `json:"id"` // May be empty when the ID itself was missing
	Reason string `json:"reason"`
}

// Result is the outcome of validating a raw batch.
type Result struct {
	Accepted []core.EvidenceRecord
	Rejected []Rejection
}

var validSourceTypes = map[core.SourceType]struct{}{
	core.SourceReview: {},
	core.SourceSocial: {},
	core.SourceForum:  {},
	core.SourceNews:   {},
	core.SourceCrawl:  {},
}

// Validate checks every raw record for the required fields and a known source
// type. Duplicate IDs keep the first occurrence.
func Validate(records []core.EvidenceRecord) Result {
	log := logger.Get()

	var result Result
	seen := make(map[string]struct{})

	for _, rec := range records {
		if reason := check(rec); reason != "" {
			result.Rejected = append(result.Rejected, Rejection{ID: rec.ID, Reason: reason})
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			result.Rejected = append(result.Rejected, Rejection{ID: rec.ID, Reason: "duplicate id"})
			continue
		}
		seen[rec.ID] = struct{}{}
		result.Accepted = append(result.Accepted, rec)
	}

	if len(result.Rejected) > 0 {
		log.Warn("evidence records rejected at ingestion",
			"accepted", len(result.Accepted), "rejected", len(result.Rejected))
		for _, rej := range result.Rejected {
			log.Debug("rejected evidence record", "evidence_id", rej.ID, "reason", rej.Reason)
		}
	}

	return result
}

// check returns a human-readable reason when a record is invalid, empty
// string otherwise.
func check(rec core.EvidenceRecord) string {
	if strings.TrimSpace(rec.ID) == "" {
		return "missing id"
	}
	if rec.SourceType == "" {
		return "missing source_type"
	}
	if _, ok := validSourceTypes[rec.SourceType]; !ok {
		return fmt.Sprintf("unknown source_type %q", rec.SourceType)
	}
	if strings.TrimSpace(rec.SourceURL) == "" {
		return "missing source_url"
	}
	if strings.TrimSpace(rec.Text) == "" {
		return "missing text"
	}
	if rec.CapturedAt.IsZero() {
		return "missing captured_at"
	}
	return ""
}

// LoadFile reads a JSON array of evidence records from disk and validates it.
func LoadFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read evidence file: %w", err)
	}

	var records []core.EvidenceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return Result{}, fmt.Errorf("failed to parse evidence file %s: %w", path, err)
	}

	return Validate(records), nil
}
