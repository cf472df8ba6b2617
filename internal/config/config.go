// Package config loads SkewSentry's ambient, environment-driven settings.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default values
const (
	// HTTP adapter defaults (spec.md §4.2.2)
	DefaultHTTPBatchSize = 256
	DefaultHTTPTimeout   = 10 * time.Second
	DefaultHTTPRetries   = 1

	// Devserver
	DefaultDevserverHost = "127.0.0.1"
	DefaultDevserverPort = "8089"

	// Explainer (optional, §8 of SPEC_FULL.md)
	DefaultExplainModel        = "gpt-4o-mini"
	DefaultExplainTimeout      = 20 * time.Second
	DefaultExplainMaxRetries   = 2
	DefaultExplainRetryDelay   = 500 * time.Millisecond
	DefaultExplainCacheTTL     = 1 * time.Hour
	DefaultExplainMaxCacheSize = 256

	// Google Sheets input loader
	DefaultSheetsHTTPTimeout = 30 * time.Second
)

// Config holds every tunable the core and its collaborators read at startup.
type Config struct {
	// HTTP adapter
	HTTPBatchSize int
	HTTPTimeout   time.Duration
	HTTPRetries   int

	// HTTP adapter oauth2 client-credentials auth, optional (spec.md §4.2.2).
	// Only used when HTTPOAuthTokenURL is set.
	HTTPOAuthClientID     string
	HTTPOAuthClientSecret string
	HTTPOAuthTokenURL     string
	HTTPOAuthScopes       []string

	// Devserver (internal/devserver)
	DevserverHost string
	DevserverPort string

	// Explainer (internal/explain)
	OpenAIAPIKey        string
	ExplainEnabled      bool // auto-enabled when OPENAI_API_KEY is set
	ExplainModel        string
	ExplainTimeout      time.Duration
	ExplainMaxRetries   int
	ExplainRetryDelay   time.Duration
	ExplainCacheTTL     time.Duration
	ExplainMaxCacheSize int

	// Google Sheets input loader (internal/inputs)
	GoogleCredentialsPath string
	SheetsHTTPTimeout     time.Duration
}

// LoadConfig reads the process environment into a Config, applying defaults for
// anything unset. Call ValidateConfig afterward to fail fast on bad values.
func LoadConfig() *Config {
	apiKey := getEnv("OPENAI_API_KEY", "")
	explainEnabled := apiKey != ""
	if explainEnabled {
		slog.Info("explainer enabled (OPENAI_API_KEY is set)")
	} else {
		slog.Info("explainer disabled (OPENAI_API_KEY not set)")
	}

	return &Config{
		HTTPBatchSize: getEnvInt("SKEWSENTRY_HTTP_BATCH_SIZE", DefaultHTTPBatchSize),
		HTTPTimeout:   getEnvDuration("SKEWSENTRY_HTTP_TIMEOUT", DefaultHTTPTimeout),
		HTTPRetries:   getEnvInt("SKEWSENTRY_HTTP_RETRIES", DefaultHTTPRetries),

		HTTPOAuthClientID:     getEnv("SKEWSENTRY_HTTP_OAUTH_CLIENT_ID", ""),
		HTTPOAuthClientSecret: getEnv("SKEWSENTRY_HTTP_OAUTH_CLIENT_SECRET", ""),
		HTTPOAuthTokenURL:     getEnv("SKEWSENTRY_HTTP_OAUTH_TOKEN_URL", ""),
		HTTPOAuthScopes:       getEnvList("SKEWSENTRY_HTTP_OAUTH_SCOPES"),

		DevserverHost: getEnv("SKEWSENTRY_DEVSERVER_HOST", DefaultDevserverHost),
		DevserverPort: getEnv("SKEWSENTRY_DEVSERVER_PORT", DefaultDevserverPort),

		OpenAIAPIKey:      apiKey,
		ExplainEnabled:    explainEnabled,
		ExplainModel:      getEnv("SKEWSENTRY_EXPLAIN_MODEL", DefaultExplainModel),
		ExplainTimeout:    getEnvDuration("SKEWSENTRY_EXPLAIN_TIMEOUT", DefaultExplainTimeout),
		ExplainMaxRetries: getEnvInt("SKEWSENTRY_EXPLAIN_MAX_RETRIES", DefaultExplainMaxRetries),
		ExplainRetryDelay: getEnvDuration("SKEWSENTRY_EXPLAIN_RETRY_DELAY", DefaultExplainRetryDelay),

		ExplainCacheTTL:     getEnvDuration("SKEWSENTRY_EXPLAIN_CACHE_TTL", DefaultExplainCacheTTL),
		ExplainMaxCacheSize: getEnvInt("SKEWSENTRY_EXPLAIN_MAX_CACHE_SIZE", DefaultExplainMaxCacheSize),

		GoogleCredentialsPath: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		SheetsHTTPTimeout:     getEnvDuration("SKEWSENTRY_SHEETS_HTTP_TIMEOUT", DefaultSheetsHTTPTimeout),
	}
}

// ValidateConfig checks config values and returns an aggregated error on failure.
// Call after LoadConfig to fail fast on invalid configuration.
func ValidateConfig(cfg *Config) error {
	var problems []string

	if cfg.HTTPBatchSize <= 0 {
		problems = append(problems, "SKEWSENTRY_HTTP_BATCH_SIZE must be positive")
	}
	if cfg.HTTPTimeout <= 0 {
		problems = append(problems, "SKEWSENTRY_HTTP_TIMEOUT must be positive")
	}
	if cfg.HTTPRetries < 0 {
		problems = append(problems, "SKEWSENTRY_HTTP_RETRIES must not be negative")
	}
	if cfg.HTTPOAuthTokenURL != "" && (cfg.HTTPOAuthClientID == "" || cfg.HTTPOAuthClientSecret == "") {
		problems = append(problems, "SKEWSENTRY_HTTP_OAUTH_TOKEN_URL requires both SKEWSENTRY_HTTP_OAUTH_CLIENT_ID and SKEWSENTRY_HTTP_OAUTH_CLIENT_SECRET")
	}
	if cfg.DevserverPort != "" {
		if _, err := strconv.Atoi(cfg.DevserverPort); err != nil {
			problems = append(problems, fmt.Sprintf("SKEWSENTRY_DEVSERVER_PORT must be numeric, got %q", cfg.DevserverPort))
		}
	}
	if cfg.ExplainMaxRetries < 0 {
		problems = append(problems, "SKEWSENTRY_EXPLAIN_MAX_RETRIES must not be negative")
	}
	if cfg.ExplainMaxCacheSize <= 0 {
		problems = append(problems, "SKEWSENTRY_EXPLAIN_MAX_CACHE_SIZE must be positive")
	}
	if cfg.ExplainTimeout <= 0 {
		problems = append(problems, "SKEWSENTRY_EXPLAIN_TIMEOUT must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	value := getEnv(key, "")
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
