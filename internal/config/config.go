// Package config provides configuration loading and validation for the CLI.
// Values come from environment variables (a .env file is loaded by main);
// core components receive the resulting struct explicitly and never read
// the environment themselves.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults for tunable fields. Documented here rather than scattered
// through the components that consume them.
const (
	// DefaultDailyLimit is the number of articles posted per limited run.
	DefaultDailyLimit = 2
	// DefaultMaxReadmeLength is the truncation bound applied to README
	// text before it is sent to the generation model.
	DefaultMaxReadmeLength = 8000
	// DefaultMaxRetries is the total attempt budget for retryable remote
	// calls (generation and publishing).
	DefaultMaxRetries = 3
	// DefaultHTTPTimeout bounds every outbound HTTP request.
	DefaultHTTPTimeout = 30 * time.Second
	// DefaultFetchConcurrency caps parallel GitHub API requests during
	// README/metadata fetching.
	DefaultFetchConcurrency = 5
	// DefaultTrendingLimit is the number of repositories taken from the
	// trending page per week.
	DefaultTrendingLimit = 18
)

// Config holds every externally supplied setting. Secrets stay empty when
// the corresponding feature is unused; the Require* helpers enforce
// presence only for the fields a given command actually needs.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string

	// GeminiAPIKey authenticates against the generation service.
	GeminiAPIKey string

	// GitHubToken is an optional PAT for the GitHub REST API. Without it
	// the unauthenticated rate limit applies.
	GitHubToken string

	// BlogAPIURL is the publishing endpoint.
	BlogAPIURL string `validate:"omitempty,url"`
	// BlogAPIKey is sent as the x-api-key header on publish requests.
	BlogAPIKey string
	// HeaderImageURL, when set, is attached to every published post.
	HeaderImageURL string `validate:"omitempty,url"`

	// DailyLimit is the batch size for limited-mode posting.
	DailyLimit int `validate:"min=1"`
	// MaxReadmeLength is the README truncation bound in characters.
	MaxReadmeLength int `validate:"min=1"`
	// MaxRetries is the total attempt budget for retryable remote calls.
	MaxRetries int `validate:"min=1"`
	// HTTPTimeout bounds outbound HTTP requests.
	HTTPTimeout time.Duration `validate:"min=1s"`
	// FetchConcurrency caps parallel GitHub API requests.
	FetchConcurrency int `validate:"min=1,max=20"`
	// TrendingLimit is the number of repositories scraped per week.
	TrendingLimit int `validate:"min=1,max=50"`

	// DataDir is where intermediate JSON artifacts are written.
	DataDir string `validate:"required"`
}

// Load builds a Config from the environment, applying defaults for every
// unset tunable.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GitHubToken:      os.Getenv("GITHUB_TOKEN_PAT"),
		BlogAPIURL:       os.Getenv("BLOG_API_URL"),
		BlogAPIKey:       os.Getenv("BLOG_API_KEY"),
		HeaderImageURL:   os.Getenv("HEADER_IMAGE_URL"),
		DailyLimit:       DefaultDailyLimit,
		MaxReadmeLength:  DefaultMaxReadmeLength,
		MaxRetries:       DefaultMaxRetries,
		HTTPTimeout:      DefaultHTTPTimeout,
		FetchConcurrency: DefaultFetchConcurrency,
		TrendingLimit:    DefaultTrendingLimit,
		DataDir:          "data",
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	var err error
	if cfg.DailyLimit, err = intEnv("DAILY_POST_LIMIT", cfg.DailyLimit); err != nil {
		return nil, err
	}
	if cfg.MaxReadmeLength, err = intEnv("MAX_README_LENGTH", cfg.MaxReadmeLength); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = intEnv("MAX_RETRIES", cfg.MaxRetries); err != nil {
		return nil, err
	}
	if cfg.FetchConcurrency, err = intEnv("FETCH_CONCURRENCY", cfg.FetchConcurrency); err != nil {
		return nil, err
	}
	if cfg.TrendingLimit, err = intEnv("TRENDING_LIMIT", cfg.TrendingLimit); err != nil {
		return nil, err
	}
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("config error: invalid HTTP_TIMEOUT %q: %w", v, err)
		}
		cfg.HTTPTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field-level constraints. Presence of secrets is checked
// by the commands that need them, not here.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// RequireDatabase returns an error unless DatabaseURL is set.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required (set it in the environment or .env file)")
	}
	return nil
}

// RequireGemini returns an error unless GeminiAPIKey is set.
func (c *Config) RequireGemini() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required (set it in the environment or .env file)")
	}
	return nil
}

// RequireBlog returns an error unless the publishing endpoint and its key
// are both set.
func (c *Config) RequireBlog() error {
	if c.BlogAPIURL == "" {
		return fmt.Errorf("BLOG_API_URL is required (set it in the environment or .env file)")
	}
	if c.BlogAPIKey == "" {
		return fmt.Errorf("BLOG_API_KEY is required (set it in the environment or .env file)")
	}
	return nil
}

func intEnv(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config error: invalid %s %q: %w", name, v, err)
	}
	return n, nil
}
