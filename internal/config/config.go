package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all engine configuration, loaded once per process.
type Config struct {
	App         App         `mapstructure:"app"`
	AI          AI          `mapstructure:"ai"`
	Clustering  Clustering  `mapstructure:"clustering"`
	Connections Connections `mapstructure:"connections"`
	Synthesis   Synthesis   `mapstructure:"synthesis"`
	Quality     Quality     `mapstructure:"quality"`
	Campaign    Campaign    `mapstructure:"campaign"`
	Cache       Cache       `mapstructure:"cache"`
}

// App holds general application configuration.
type App struct {
	Debug   bool   `mapstructure:"debug"`
	DataDir string `mapstructure:"data_dir"`
}

// AI holds provider configuration for language model and embedding calls.
type AI struct {
	Provider string       `mapstructure:"provider"` // "gemini" or "openai" (embeddings)
	Gemini   GeminiConfig `mapstructure:"gemini"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	// MaxRetries bounds exponential backoff on provider calls. There are no
	// artificial timeouts; cancellation is cooperative via context only.
	MaxRetries int `mapstructure:"max_retries"`
}

// GeminiConfig holds Google Gemini configuration.
type GeminiConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Temperature    float32 `mapstructure:"temperature"`
	MaxTokens      int32   `mapstructure:"max_tokens"`
}

// OpenAIConfig holds OpenAI configuration (alternate embedding provider).
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	Dimensions     int    `mapstructure:"dimensions"`
}

// Clustering holds semantic clustering configuration.
type Clustering struct {
	MaxClusters   int     `mapstructure:"max_clusters"`   // Upper bound on K
	MinEvidence   int     `mapstructure:"min_evidence"`   // Below this, skip clustering
	MaxIterations int     `mapstructure:"max_iterations"` // K-means iteration cap
	NoiseFloor    float64 `mapstructure:"noise_floor"`    // Min similarity to centroid before peeling
}

// Connections holds connection discovery configuration.
type Connections struct {
	MaxArity     int     `mapstructure:"max_arity"`      // 2-5
	TopNPerArity int     `mapstructure:"top_n_per_arity"`
	MinScore     float64 `mapstructure:"min_score"`
	MaxClusters  int     `mapstructure:"max_clusters"` // Cap so arity-5 enumeration stays tractable
}

// Synthesis holds the lens/pass configuration and citation contract knobs.
type Synthesis struct {
	// QuoteMatchThreshold is the fuzzy-match similarity a verbatim quote must
	// reach against a cited record's text. Default 0.9: exact matching breaks
	// on whitespace and quoting artifacts, looser than ~0.85 starts admitting
	// paraphrase, which defeats the grounding guarantee.
	QuoteMatchThreshold float64      `mapstructure:"quote_match_threshold"`
	MinCitations        int          `mapstructure:"min_citations"`
	MaxInsightsPerPass  int          `mapstructure:"max_insights_per_pass"`
	PassRetries         int          `mapstructure:"pass_retries"`
	LensFile            string       `mapstructure:"lens_file"` // Optional YAML override for lenses
	Lenses              []LensConfig `mapstructure:"lenses"`
}

// LensConfig defines one synthesis pass as a tagged configuration variant
// consumed by the generic pass runner.
type LensConfig struct {
	Name           string   `mapstructure:"name" yaml:"name"`
	Categories     []string `mapstructure:"categories" yaml:"categories"`
	FilterKeywords []string `mapstructure:"filter_keywords" yaml:"filter_keywords"`
	Focus          string   `mapstructure:"focus" yaml:"focus"` // Prompt focus line
}

// Quality holds quality gate configuration.
type Quality struct {
	Threshold int    `mapstructure:"threshold"` // Minimum total (0-50) to pass
	Scorer    string `mapstructure:"scorer"`    // "heuristic" or "llm"
}

// Campaign holds narrative sequencing configuration.
type Campaign struct {
	MinDays        int            `mapstructure:"min_days"`
	MaxDays        int            `mapstructure:"max_days"`
	Platforms      []string       `mapstructure:"platforms"`
	WeeklyCadence  map[string]int `mapstructure:"weekly_cadence"` // Max posts per platform per week
	CheckpointDay  int            `mapstructure:"checkpoint_day"` // External feedback hook day
}

// Cache holds run cache configuration.
type Cache struct {
	Directory string `mapstructure:"directory"`
	TTLHours  int    `mapstructure:"ttl_hours"`
}

// setDefaults registers default values with viper.
func setDefaults() {
	viper.SetDefault("app.data_dir", defaultDataDir())

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.embedding_model", "gemini-embedding-001")
	viper.SetDefault("ai.gemini.temperature", 0.4)
	viper.SetDefault("ai.gemini.max_tokens", 4096)
	viper.SetDefault("ai.openai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("ai.openai.dimensions", 768)
	viper.SetDefault("ai.max_retries", 3)

	viper.SetDefault("clustering.max_clusters", 50)
	viper.SetDefault("clustering.min_evidence", 5)
	viper.SetDefault("clustering.max_iterations", 100)
	viper.SetDefault("clustering.noise_floor", 0.35)

	viper.SetDefault("connections.max_arity", 5)
	viper.SetDefault("connections.top_n_per_arity", 5)
	viper.SetDefault("connections.min_score", 0.2)
	viper.SetDefault("connections.max_clusters", 12)

	viper.SetDefault("synthesis.quote_match_threshold", 0.9)
	viper.SetDefault("synthesis.min_citations", 2)
	viper.SetDefault("synthesis.max_insights_per_pass", 8)
	viper.SetDefault("synthesis.pass_retries", 2)

	viper.SetDefault("quality.threshold", 35)
	viper.SetDefault("quality.scorer", "heuristic")

	viper.SetDefault("campaign.min_days", 7)
	viper.SetDefault("campaign.max_days", 30)
	viper.SetDefault("campaign.platforms", []string{"instagram", "facebook", "linkedin", "email"})
	viper.SetDefault("campaign.weekly_cadence", map[string]int{
		"instagram": 5,
		"facebook":  4,
		"linkedin":  3,
		"email":     2,
	})
	viper.SetDefault("campaign.checkpoint_day", 3)

	viper.SetDefault("cache.ttl_hours", 24)
}

// Load reads configuration from .env, environment variables, and an optional
// config file, then unmarshals into Config. Lens definitions come from the
// config file, an optional lens YAML file, or built-in defaults, in that
// order of precedence.
func Load(cfgFile string) (*Config, error) {
	_ = godotenv.Load() // Optional; env vars may already be set

	setDefaults()

	viper.SetEnvPrefix("GROUNDSWELL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	} else {
		viper.SetConfigName(".groundswell")
		viper.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		_ = viper.ReadInConfig() // Config file is optional
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// API keys fall back to conventional env var names.
	if cfg.AI.Gemini.APIKey == "" {
		cfg.AI.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.AI.OpenAI.APIKey == "" {
		cfg.AI.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if cfg.Cache.Directory == "" {
		cfg.Cache.Directory = cfg.App.DataDir
	}

	if cfg.Synthesis.LensFile != "" {
		lenses, err := LoadLensFile(cfg.Synthesis.LensFile)
		if err != nil {
			return nil, err
		}
		cfg.Synthesis.Lenses = lenses
	}
	if len(cfg.Synthesis.Lenses) == 0 {
		cfg.Synthesis.Lenses = DefaultLenses()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration bounds that would otherwise fail deep inside
// the pipeline.
func (c *Config) Validate() error {
	if c.Connections.MaxArity < 2 || c.Connections.MaxArity > 5 {
		return fmt.Errorf("connections.max_arity must be 2-5, got %d", c.Connections.MaxArity)
	}
	if c.Quality.Threshold < 0 || c.Quality.Threshold > 50 {
		return fmt.Errorf("quality.threshold must be 0-50, got %d", c.Quality.Threshold)
	}
	if c.Synthesis.QuoteMatchThreshold <= 0 || c.Synthesis.QuoteMatchThreshold > 1 {
		return fmt.Errorf("synthesis.quote_match_threshold must be in (0, 1], got %.2f", c.Synthesis.QuoteMatchThreshold)
	}
	if c.Synthesis.MinCitations < 2 {
		return fmt.Errorf("synthesis.min_citations must be at least 2, got %d", c.Synthesis.MinCitations)
	}
	if c.Campaign.MinDays < 7 || c.Campaign.MaxDays > 30 || c.Campaign.MinDays > c.Campaign.MaxDays {
		return fmt.Errorf("campaign duration bounds must satisfy 7 <= min <= max <= 30")
	}
	for _, lens := range c.Synthesis.Lenses {
		if lens.Name == "" || len(lens.Categories) == 0 {
			return fmt.Errorf("lens definitions require a name and at least one category")
		}
	}
	return nil
}

// DefaultLenses returns the four baseline synthesis passes. More lenses may
// be added through config without touching the pass runner.
func DefaultLenses() []LensConfig {
	return []LensConfig{
		{
			Name:       "pain_fear",
			Categories: []string{"pain", "fear"},
			FilterKeywords: []string{
				"problem", "issue", "frustrat", "annoying", "wait", "slow",
				"broken", "worried", "afraid", "disappoint", "terrible", "worst",
				"complain", "hate", "never again", "avoid",
			},
			Focus: "customer pain points, frustrations, and fears",
		},
		{
			Name:       "desire_motivation",
			Categories: []string{"desire", "motivation"},
			FilterKeywords: []string{
				"love", "wish", "want", "hope", "favorite", "best", "amazing",
				"perfect", "dream", "excited", "recommend", "worth", "again",
			},
			Focus: "what customers desire, celebrate, and come back for",
		},
		{
			Name:       "objection_trust",
			Categories: []string{"objection", "trust"},
			FilterKeywords: []string{
				"expensive", "price", "cost", "worth it", "skeptic", "doubt",
				"hesitat", "but", "however", "not sure", "trust", "reliable",
				"honest", "consistent",
			},
			Focus: "purchase objections and what builds or erodes trust",
		},
		{
			Name:       "competitor",
			Categories: []string{"competitor"},
			FilterKeywords: []string{
				"better than", "compared to", "vs", "versus", "instead of",
				"switched from", "alternative", "other place", "used to go",
				"unlike", "competitor",
			},
			Focus: "comparisons with competitors and switching behavior",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".groundswell"
	}
	return filepath.Join(home, ".groundswell")
}
