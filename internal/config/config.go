package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Settings is the tunable surface of the matching engine. Every threshold
// the matcher, anchor selector, and cluster registry consult lives here;
// nothing is baked into logic paths.
type Settings struct {
	SimilarityThreshold   float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.75"`
	CustomTargetThreshold float64 `envconfig:"CUSTOM_TARGET_THRESHOLD" default:"0.65"`
	ClusterThreshold      float64 `envconfig:"CLUSTER_THRESHOLD" default:"0.75"`

	MaxLinksPerSource    int `envconfig:"MAX_LINKS_PER_SOURCE" default:"10"`
	MaxLinksPerTargetURL int `envconfig:"MAX_LINKS_PER_TARGET_URL" default:"10"`

	MinAnchorWords int `envconfig:"MIN_ANCHOR_WORDS" default:"3"`
	MaxAnchorWords int `envconfig:"MAX_ANCHOR_WORDS" default:"10"`

	SameCategoryOnly       bool `envconfig:"SAME_CATEGORY_ONLY" default:"true"`
	SecondaryFilterEnabled bool `envconfig:"SECONDARY_FILTER_ENABLED" default:"false"`

	ExcludedPostTypes  []string `envconfig:"EXCLUDED_POST_TYPES"`
	ExcludedCategories []string `envconfig:"EXCLUDED_CATEGORIES"`
	ExcludedIDs        []int64  `envconfig:"EXCLUDED_IDS"`

	IndexPageSize  int `envconfig:"INDEX_PAGE_SIZE" default:"20"`
	MatchPageSize  int `envconfig:"MATCH_PAGE_SIZE" default:"10"`
	FilterPageSize int `envconfig:"FILTER_PAGE_SIZE" default:"25"`

	MaxPendingCandidates int           `envconfig:"MAX_PENDING_CANDIDATES" default:"500"`
	MaxClusters          int           `envconfig:"MAX_CLUSTERS" default:"2000"`
	ProgressTTL          time.Duration `envconfig:"PROGRESS_TTL" default:"24h"`
}

// Validate checks every setting against its documented range.
func (s *Settings) Validate() error {
	if s.SimilarityThreshold < 0.50 || s.SimilarityThreshold > 1.00 {
		return fmt.Errorf("similarity threshold must be within [0.50, 1.00], got %.2f", s.SimilarityThreshold)
	}
	if s.CustomTargetThreshold < 0.20 || s.CustomTargetThreshold > 0.90 {
		return fmt.Errorf("custom target threshold must be within [0.20, 0.90], got %.2f", s.CustomTargetThreshold)
	}
	if s.ClusterThreshold < 0.50 || s.ClusterThreshold > 0.99 {
		return fmt.Errorf("cluster threshold must be within [0.50, 0.99], got %.2f", s.ClusterThreshold)
	}
	if s.MaxLinksPerSource < 1 || s.MaxLinksPerSource > 30 {
		return fmt.Errorf("max links per source must be within [1, 30], got %d", s.MaxLinksPerSource)
	}
	if s.MaxLinksPerTargetURL < 1 {
		return fmt.Errorf("max links per target URL must be at least 1, got %d", s.MaxLinksPerTargetURL)
	}
	if s.MinAnchorWords < 1 || s.MinAnchorWords > 15 {
		return fmt.Errorf("min anchor words must be within [1, 15], got %d", s.MinAnchorWords)
	}
	if s.MaxAnchorWords < 1 || s.MaxAnchorWords > 15 {
		return fmt.Errorf("max anchor words must be within [1, 15], got %d", s.MaxAnchorWords)
	}
	if s.MinAnchorWords > s.MaxAnchorWords {
		return fmt.Errorf("min anchor words (%d) cannot exceed max anchor words (%d)", s.MinAnchorWords, s.MaxAnchorWords)
	}
	if s.IndexPageSize < 1 || s.MatchPageSize < 1 || s.FilterPageSize < 1 {
		return fmt.Errorf("page sizes must be at least 1")
	}
	if s.MaxPendingCandidates < 1 {
		return fmt.Errorf("max pending candidates must be at least 1, got %d", s.MaxPendingCandidates)
	}
	if s.ProgressTTL <= 0 {
		return fmt.Errorf("progress TTL must be positive, got %s", s.ProgressTTL)
	}
	return nil
}

// IsExcludedID reports whether a document id is excluded from matching.
func (s *Settings) IsExcludedID(id int64) bool {
	for _, excluded := range s.ExcludedIDs {
		if excluded == id {
			return true
		}
	}
	return false
}

// IsExcludedPostType reports whether a document type is excluded from
// matching.
func (s *Settings) IsExcludedPostType(postType string) bool {
	for _, excluded := range s.ExcludedPostTypes {
		if excluded == postType {
			return true
		}
	}
	return false
}

// IsExcludedCategory reports whether any of the categories is excluded.
func (s *Settings) IsExcludedCategory(categories []string) bool {
	for _, excluded := range s.ExcludedCategories {
		for _, c := range categories {
			if excluded == c {
				return true
			}
		}
	}
	return false
}

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// RedisURL selects the Redis progress store; empty keeps the Postgres one.
	RedisURL string `envconfig:"REDIS_URL"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL"`
	EvaluatorModel string `envconfig:"EVALUATOR_MODEL"`

	ContentSourceURL    string `envconfig:"CONTENT_SOURCE_URL"`
	ContentSourceAPIKey string `envconfig:"CONTENT_SOURCE_API_KEY"`

	// APIToken protects the pipeline endpoints; empty disables the check
	// (the daemon is assumed to sit behind a trusted internal network).
	APIToken string `envconfig:"API_TOKEN"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"interlink-reports"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Processed with its own envconfig pass: nested under Config the field
	// name would leak into every key (INTERLINK_SETTINGS_*).
	Settings Settings `ignored:"true"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("INTERLINK", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := envconfig.Process("INTERLINK", &cfg.Settings); err != nil {
		return nil, fmt.Errorf("failed to process settings: %w", err)
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}
