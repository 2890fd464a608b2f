// Package store provides the SQLite-backed cache and durable output storage:
// content-addressed run results, cluster co-occurrence history, and the
// insights/campaigns that survive the pipeline.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"groundswell/internal/connections"
	"groundswell/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "groundswell.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables.
func (s *Store) initialize() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			cache_key TEXT PRIMARY KEY,
			payload TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS cooccurrence (
			pair_key TEXT PRIMARY KEY,
			count INTEGER DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS insights (
			id TEXT PRIMARY KEY,
			category TEXT,
			pass_name TEXT,
			payload TEXT,
			quality_total INTEGER,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS campaigns (
			id TEXT PRIMARY KEY,
			campaign_type TEXT,
			payload TEXT,
			created_at DATETIME
		);`,
	}

	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunCacheKey builds the content-addressed cache key: a hash of the sorted
// evidence ID set plus the configuration fingerprint. Re-running on an
// unchanged evidence set and config is a cache hit, not a recomputation.
func RunCacheKey(evidenceIDs []string, configFingerprint string) string {
	sorted := make([]string, len(evidenceIDs))
	copy(sorted, evidenceIDs)
	sort.Strings(sorted)

	h := sha256.New()
	for _, id := range sorted {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	h.Write([]byte(configFingerprint))

	return hex.EncodeToString(h.Sum(nil))
}

// CacheRun stores a serialized run result under its content-addressed key.
func (s *Store) CacheRun(cacheKey string, payload []byte) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO runs (cache_key, payload, created_at) VALUES (?, ?, ?)`,
		cacheKey, string(payload), time.Now().UTC(),
	)
	return err
}

// GetCachedRun retrieves a run result no older than maxAge. A nil payload
// with nil error is a cache miss.
func (s *Store) GetCachedRun(cacheKey string, maxAge time.Duration) ([]byte, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	row := s.db.QueryRow(
		`SELECT payload FROM runs WHERE cache_key = ? AND created_at > ?`,
		cacheKey, cutoff,
	)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cached run: %w", err)
	}

	return []byte(payload), nil
}

// RecordCooccurrences bumps the historical counter for every pair among the
// given theme labels. Called once per run so future connection discovery can
// weight rarely-seen pairings higher.
func (s *Store) RecordCooccurrences(themeLabels []string) error {
	for i := 0; i < len(themeLabels); i++ {
		for j := i + 1; j < len(themeLabels); j++ {
			key := connections.PairKey(themeLabels[i], themeLabels[j])
			_, err := s.db.Exec(
				`INSERT INTO cooccurrence (pair_key, count) VALUES (?, 1)
				 ON CONFLICT(pair_key) DO UPDATE SET count = count + 1`,
				key,
			)
			if err != nil {
				return fmt.Errorf("failed to record co-occurrence: %w", err)
			}
		}
	}
	return nil
}

// CooccurrenceCount implements connections.History.
func (s *Store) CooccurrenceCount(themeA, themeB string) int {
	row := s.db.QueryRow(`SELECT count FROM cooccurrence WHERE pair_key = ?`, connections.PairKey(themeA, themeB))
	var count int
	if err := row.Scan(&count); err != nil {
		return 0
	}
	return count
}

// SaveInsights persists gated insights as durable output.
func (s *Store) SaveInsights(insights []core.Insight) error {
	for _, ins := range insights {
		payload, err := json.Marshal(ins)
		if err != nil {
			return fmt.Errorf("failed to marshal insight %s: %w", ins.ID, err)
		}
		_, err = s.db.Exec(
			`INSERT OR REPLACE INTO insights (id, category, pass_name, payload, quality_total, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			ins.ID, string(ins.Category), ins.PassName, string(payload), ins.QualityTotal, ins.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save insight %s: %w", ins.ID, err)
		}
	}
	return nil
}

// SaveCampaign persists a finalized campaign.
func (s *Store) SaveCampaign(campaign core.Campaign) error {
	payload, err := json.Marshal(campaign)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO campaigns (id, campaign_type, payload, created_at) VALUES (?, ?, ?, ?)`,
		campaign.ID, campaign.CampaignType, string(payload), campaign.DateGenerated,
	)
	if err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}
	return nil
}

// Stats summarizes what the store holds.
type Stats struct {
	CachedRuns    int       `json:"cached_runs"`
	InsightCount  int       `json:"insight_count"`
	CampaignCount int       `json:"campaign_count"`
	PairCount     int       `json:"pair_count"`
	DatabaseSize  int64     `json:"database_size"`
	LastUpdated   time.Time `json:"last_updated"`
}

// GetStats returns store statistics.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}

	queries := map[string]*int{
		"SELECT COUNT(*) FROM runs":         &stats.CachedRuns,
		"SELECT COUNT(*) FROM insights":     &stats.InsightCount,
		"SELECT COUNT(*) FROM campaigns":    &stats.CampaignCount,
		"SELECT COUNT(*) FROM cooccurrence": &stats.PairCount,
	}

	for query, target := range queries {
		if err := s.db.QueryRow(query).Scan(target); err != nil {
			return nil, fmt.Errorf("failed to get count: %w", err)
		}
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.DatabaseSize = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}

	return stats, nil
}

// ClearCache drops cached runs and co-occurrence history. Durable insights
// and campaigns are kept; they are output, not cache.
func (s *Store) ClearCache() error {
	for _, table := range []string{"runs", "cooccurrence"} {
		if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("failed to clear %s table: %w", table, err)
		}
	}

	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	return nil
}

// CleanupExpiredRuns removes cached runs older than maxAge.
func (s *Store) CleanupExpiredRuns(maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge)
	if _, err := s.db.Exec("DELETE FROM runs WHERE created_at < ?", cutoff); err != nil {
		return fmt.Errorf("failed to clean expired runs: %w", err)
	}
	return nil
}
