package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/provguard/provguard/internal/configs/env"
	"github.com/provguard/provguard/internal/normalize"
	"github.com/provguard/provguard/internal/provenance"
)

// ErrInvalidConfig is returned for configuration the core must reject
// before any fingerprinting begins.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for the application
type Config struct {
	// Repositories
	SourceRepo string
	TargetRepo string

	// Substitution rules
	Rules RuleSet

	// Matching tunables. Empirically tuned; re-validate against the
	// backtest regression after any change.
	ShingleWidth           int
	MaxDistance            int
	JaccardThreshold       float64
	MinTokens              int
	MinLines               int
	MinNetNewLines         int
	MovementRatioThreshold float64

	// Fingerprint database partitions
	PRDBPath     string
	CommitDBPath string

	// GitHub fetch
	GitHubBaseURL    string
	GitHubToken      string
	GitHubRPS        float64
	FetchRetries     int
	FetchBackoffBase time.Duration

	// Concurrency
	ValidationWorkers int
	CheckTimeout      time.Duration

	// MongoDB (optional; report persistence is skipped when unset)
	MongoURI    string
	MongoDBName string

	// Redis diff cache (optional)
	RedisHost     string
	RedisPassword string
	DiffCacheTTL  time.Duration

	// API
	JWTSecret    string
	RateLimitRPS float64
	ServerPort   string

	// Logging
	LogLevel string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Repositories
	cfg.SourceRepo = env.GetEnv("SOURCE_REPO", "")
	cfg.TargetRepo = env.GetEnv("TARGET_REPO", "")

	// Substitution rules: YAML file first, env pairs appended
	rulesFile := env.GetEnv("RULES_FILE", "")
	if rulesFile != "" {
		rs, err := LoadRuleSet(rulesFile)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rs
	}
	branding, err := ParsePairList(env.GetEnv("BRANDING_PAIRS", ""))
	if err != nil {
		return nil, err
	}
	cfg.Rules.BrandingPairs = append(cfg.Rules.BrandingPairs, branding...)
	prefix, err := ParsePairList(env.GetEnv("PREFIX_PAIRS", ""))
	if err != nil {
		return nil, err
	}
	cfg.Rules.PrefixPairs = append(cfg.Rules.PrefixPairs, prefix...)

	// Matching tunables
	cfg.ShingleWidth = env.GetEnvInt("SHINGLE_WIDTH", 3)
	cfg.MaxDistance = env.GetEnvInt("MAX_DISTANCE", 3)
	cfg.JaccardThreshold = env.GetEnvFloat("JACCARD_THRESHOLD", 0.85)
	cfg.MinTokens = env.GetEnvInt("MIN_TOKENS", 5)
	cfg.MinLines = env.GetEnvInt("MIN_LINES", 5)
	cfg.MinNetNewLines = env.GetEnvInt("MIN_NET_NEW_LINES", 5)
	cfg.MovementRatioThreshold = env.GetEnvFloat("MOVEMENT_RATIO_THRESHOLD", 0.70)

	// Fingerprint databases
	cfg.PRDBPath = env.GetEnv("PR_DB_PATH", "")
	cfg.CommitDBPath = env.GetEnv("COMMIT_DB_PATH", "")

	// GitHub fetch
	cfg.GitHubBaseURL = env.GetEnv("GITHUB_BASE_URL", "https://api.github.com")
	cfg.GitHubToken = env.GetEnv("GITHUB_TOKEN", "")
	cfg.GitHubRPS = env.GetEnvFloat("GITHUB_RPS", 2.0)
	cfg.FetchRetries = env.GetEnvInt("FETCH_RETRIES", 3)
	cfg.FetchBackoffBase = env.GetEnvDuration("FETCH_BACKOFF_BASE", time.Second)

	// Concurrency
	cfg.ValidationWorkers = env.GetEnvInt("VALIDATION_WORKERS", 4)
	cfg.CheckTimeout = env.GetEnvDuration("CHECK_TIMEOUT", 5*time.Minute)

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "provguard")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.DiffCacheTTL = env.GetEnvDuration("DIFF_CACHE_TTL", 24*time.Hour)

	// API
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SourceRepo == "" {
		return fmt.Errorf("%w: SOURCE_REPO is required", ErrInvalidConfig)
	}
	if c.TargetRepo == "" {
		return fmt.Errorf("%w: TARGET_REPO is required", ErrInvalidConfig)
	}
	if c.PRDBPath == "" && c.CommitDBPath == "" {
		return fmt.Errorf("%w: at least one of PR_DB_PATH and COMMIT_DB_PATH is required", ErrInvalidConfig)
	}
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	if c.ShingleWidth < 1 {
		return fmt.Errorf("%w: SHINGLE_WIDTH must be at least 1", ErrInvalidConfig)
	}
	if c.MaxDistance < 0 || c.MaxDistance > 64 {
		return fmt.Errorf("%w: MAX_DISTANCE must be in [0,64]", ErrInvalidConfig)
	}
	if c.JaccardThreshold <= 0 || c.JaccardThreshold > 1 {
		return fmt.Errorf("%w: JACCARD_THRESHOLD must be in (0,1]", ErrInvalidConfig)
	}
	if c.ValidationWorkers <= 0 {
		return fmt.Errorf("%w: VALIDATION_WORKERS must be greater than 0", ErrInvalidConfig)
	}
	if c.FetchRetries < 1 {
		return fmt.Errorf("%w: FETCH_RETRIES must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// CheckParams builds the immutable per-check parameter value from the
// validated configuration.
func (c *Config) CheckParams() provenance.CheckParams {
	preserved := normalize.DefaultPreservedKeywords()
	preserved = append(preserved, c.Rules.PreservedKeywords...)

	return provenance.CheckParams{
		Rules:                  normalize.NewRules(c.Rules.BrandingPairs, c.Rules.PrefixPairs, preserved),
		ShingleWidth:           c.ShingleWidth,
		MaxDistance:            c.MaxDistance,
		JaccardThreshold:       c.JaccardThreshold,
		MinTokens:              c.MinTokens,
		MinLines:               c.MinLines,
		MinNetNewLines:         c.MinNetNewLines,
		MovementRatioThreshold: c.MovementRatioThreshold,
		InfrastructurePatterns: c.Rules.InfrastructurePatterns,
		ValidationWorkers:      c.ValidationWorkers,
	}
}
