package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func baseConfig() *Config {
	return &Config{
		Connections: Connections{MaxArity: 5, TopNPerArity: 5, MinScore: 0.2, MaxClusters: 12},
		Synthesis: Synthesis{
			QuoteMatchThreshold: 0.9,
			MinCitations:        2,
			Lenses:              DefaultLenses(),
		},
		Quality:  Quality{Threshold: 35},
		Campaign: Campaign{MinDays: 7, MaxDays: 30},
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"arity too low", func(c *Config) { c.Connections.MaxArity = 1 }, "max_arity"},
		{"arity too high", func(c *Config) { c.Connections.MaxArity = 6 }, "max_arity"},
		{"threshold out of range", func(c *Config) { c.Quality.Threshold = 51 }, "threshold"},
		{"quote threshold zero", func(c *Config) { c.Synthesis.QuoteMatchThreshold = 0 }, "quote_match_threshold"},
		{"quote threshold above one", func(c *Config) { c.Synthesis.QuoteMatchThreshold = 1.5 }, "quote_match_threshold"},
		{"min citations below contract", func(c *Config) { c.Synthesis.MinCitations = 1 }, "min_citations"},
		{"campaign too short", func(c *Config) { c.Campaign.MinDays = 3 }, "duration"},
		{"campaign too long", func(c *Config) { c.Campaign.MaxDays = 60 }, "duration"},
		{"lens without name", func(c *Config) { c.Synthesis.Lenses[0].Name = "" }, "lens"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tc.wantErr)
			}
		})
	}
}

func TestDefaultLensesCoverAllCategories(t *testing.T) {
	lenses := DefaultLenses()
	if len(lenses) != 4 {
		t.Fatalf("got %d default lenses, want 4", len(lenses))
	}

	covered := make(map[string]bool)
	for _, lens := range lenses {
		if lens.Name == "" || lens.Focus == "" {
			t.Errorf("lens %+v missing name or focus", lens)
		}
		for _, cat := range lens.Categories {
			covered[cat] = true
		}
	}

	for _, cat := range []string{"pain", "fear", "desire", "motivation", "objection", "trust", "competitor"} {
		if !covered[cat] {
			t.Errorf("no default lens produces category %q", cat)
		}
	}
}

func TestLoadLensFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lenses.yaml")
	body := `lenses:
  - name: seasonal
    categories: [desire]
    filter_keywords: [summer, holiday]
    focus: seasonal purchase triggers
  - name: loyalty
    categories: [motivation, trust]
    focus: repeat visit drivers
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	lenses, err := LoadLensFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(lenses) != 2 {
		t.Fatalf("got %d lenses, want 2", len(lenses))
	}
	if lenses[0].Name != "seasonal" || len(lenses[0].FilterKeywords) != 2 {
		t.Errorf("first lens = %+v", lenses[0])
	}
	if lenses[1].Categories[1] != "trust" {
		t.Errorf("second lens categories = %v", lenses[1].Categories)
	}
}

func TestLoadLensFileRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		name string
		body string
	}{
		{"empty", "lenses: []"},
		{"nameless lens", "lenses:\n  - categories: [pain]\n"},
		{"no categories", "lenses:\n  - name: broken\n"},
		{"malformed yaml", "lenses: ["},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".yaml")
			if err := os.WriteFile(path, []byte(tc.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadLensFile(path); err == nil {
				t.Error("expected error for invalid lens file")
			}
		})
	}

	if _, err := LoadLensFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
