// Package config provides configuration for the chat server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	// Server settings
	HTTPPort         int
	WSMaxMessageSize int64

	// LLM
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string
	SiteURL           string
	AppName           string
	LLMTemperature    float64
	LLMMaxTokens      int
	LLMMode           string
	MaxToolIterations int

	// Content APIs
	JikanBaseURL         string
	TVMazeBaseURL        string
	OpenLibraryBaseURL   string
	JikanRateLimit       time.Duration
	TVMazeRateLimit      time.Duration
	OpenLibraryRateLimit time.Duration
	HTTPTimeout          time.Duration
	HTTPMaxRetries       int
	CacheTTL             time.Duration
	CacheMaxSize         int

	// Sessions
	MaxConversationHistory int
	SessionTTL             time.Duration
	SessionSweepInterval   time.Duration

	// Storage and logs
	DatabasePath           string
	ConversationLogEnabled bool
	LogLevel               string
	LogFormat              string

	// Semantic context
	ContextEnabled             bool
	ContextDBPath              string
	ContextMaxResults          int
	ContextSimilarityThreshold float64
	ContextCrossSession        bool
	EmbeddingProvider          string
	EmbeddingModel             string
	EmbeddingBaseURL           string
	EmbeddingDimensions        int

	// Tool policy
	DisabledTools []string
}

var placeholderKeys = map[string]bool{
	"":                  true,
	"sk-or-v1-xxxxx":    true,
	"your-api-key-here": true,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", 5000)
	v.SetDefault("WS_MAX_MESSAGE_SIZE", 65536)

	v.SetDefault("OPENROUTER_API_KEY", "")
	v.SetDefault("OPENROUTER_MODEL", "google/gemini-2.0-flash-001")
	v.SetDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("OPENROUTER_SITE_URL", "http://localhost:5000")
	v.SetDefault("OPENROUTER_APP_NAME", "EntertainBot")
	v.SetDefault("LLM_TEMPERATURE", 0.7)
	v.SetDefault("LLM_MAX_TOKENS", 2048)
	v.SetDefault("LLM_MODE", "")
	v.SetDefault("MAX_TOOL_ITERATIONS", 5)

	v.SetDefault("JIKAN_BASE_URL", "https://api.jikan.moe/v4")
	v.SetDefault("TVMAZE_BASE_URL", "https://api.tvmaze.com")
	v.SetDefault("OPENLIBRARY_BASE_URL", "https://openlibrary.org")
	v.SetDefault("JIKAN_RATE_LIMIT", 1.0)
	v.SetDefault("TVMAZE_RATE_LIMIT", 0.5)
	v.SetDefault("OPENLIBRARY_RATE_LIMIT", 1.0)
	v.SetDefault("HTTP_TIMEOUT", 30)
	v.SetDefault("HTTP_MAX_RETRIES", 3)
	v.SetDefault("CACHE_TTL", 300)
	v.SetDefault("CACHE_MAX_SIZE", 256)

	v.SetDefault("MAX_CONVERSATION_HISTORY", 20)
	v.SetDefault("SESSION_TTL_SECONDS", 3600)
	v.SetDefault("SESSION_SWEEP_INTERVAL", 60)

	v.SetDefault("DATABASE_PATH", "data/entertainbot.db")
	v.SetDefault("CONVERSATION_LOG_ENABLED", true)
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CONTEXT_ENABLED", true)
	v.SetDefault("CONTEXT_DB_PATH", "data/context")
	v.SetDefault("CONTEXT_MAX_RESULTS", 3)
	v.SetDefault("CONTEXT_SIMILARITY_THRESHOLD", 1.2)
	v.SetDefault("CONTEXT_CROSS_SESSION", false)
	v.SetDefault("EMBEDDING_PROVIDER", "local")
	v.SetDefault("EMBEDDING_MODEL", "text-embedding-3-small")
	v.SetDefault("EMBEDDING_BASE_URL", "")
	v.SetDefault("EMBEDDING_DIMENSIONS", 256)

	v.SetDefault("DISABLED_TOOLS", "")
}

// Load reads configuration from a .env file (when present), the environment
// and an optional YAML file. Environment values win over the file.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper builds and validates a Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	openRouterBase := trimURL(v.GetString("OPENROUTER_BASE_URL"))
	embeddingBase := trimURL(v.GetString("EMBEDDING_BASE_URL"))
	if embeddingBase == "" {
		embeddingBase = openRouterBase
	}

	cfg := &Config{
		HTTPPort:         v.GetInt("HTTP_PORT"),
		WSMaxMessageSize: v.GetInt64("WS_MAX_MESSAGE_SIZE"),

		OpenRouterAPIKey:  strings.TrimSpace(v.GetString("OPENROUTER_API_KEY")),
		OpenRouterModel:   v.GetString("OPENROUTER_MODEL"),
		OpenRouterBaseURL: openRouterBase,
		SiteURL:           v.GetString("OPENROUTER_SITE_URL"),
		AppName:           v.GetString("OPENROUTER_APP_NAME"),
		LLMTemperature:    v.GetFloat64("LLM_TEMPERATURE"),
		LLMMaxTokens:      v.GetInt("LLM_MAX_TOKENS"),
		LLMMode:           strings.ToUpper(strings.TrimSpace(v.GetString("LLM_MODE"))),
		MaxToolIterations: v.GetInt("MAX_TOOL_ITERATIONS"),

		JikanBaseURL:         trimURL(v.GetString("JIKAN_BASE_URL")),
		TVMazeBaseURL:        trimURL(v.GetString("TVMAZE_BASE_URL")),
		OpenLibraryBaseURL:   trimURL(v.GetString("OPENLIBRARY_BASE_URL")),
		JikanRateLimit:       seconds(v.GetFloat64("JIKAN_RATE_LIMIT")),
		TVMazeRateLimit:      seconds(v.GetFloat64("TVMAZE_RATE_LIMIT")),
		OpenLibraryRateLimit: seconds(v.GetFloat64("OPENLIBRARY_RATE_LIMIT")),
		HTTPTimeout:          time.Duration(v.GetInt("HTTP_TIMEOUT")) * time.Second,
		HTTPMaxRetries:       v.GetInt("HTTP_MAX_RETRIES"),
		CacheTTL:             time.Duration(v.GetInt("CACHE_TTL")) * time.Second,
		CacheMaxSize:         v.GetInt("CACHE_MAX_SIZE"),

		MaxConversationHistory: v.GetInt("MAX_CONVERSATION_HISTORY"),
		SessionTTL:             time.Duration(v.GetInt("SESSION_TTL_SECONDS")) * time.Second,
		SessionSweepInterval:   time.Duration(v.GetInt("SESSION_SWEEP_INTERVAL")) * time.Second,

		DatabasePath:           v.GetString("DATABASE_PATH"),
		ConversationLogEnabled: v.GetBool("CONVERSATION_LOG_ENABLED"),
		LogLevel:               strings.ToUpper(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		LogFormat:              strings.ToLower(strings.TrimSpace(v.GetString("LOG_FORMAT"))),

		ContextEnabled:             v.GetBool("CONTEXT_ENABLED"),
		ContextDBPath:              v.GetString("CONTEXT_DB_PATH"),
		ContextMaxResults:          v.GetInt("CONTEXT_MAX_RESULTS"),
		ContextSimilarityThreshold: v.GetFloat64("CONTEXT_SIMILARITY_THRESHOLD"),
		ContextCrossSession:        v.GetBool("CONTEXT_CROSS_SESSION"),
		EmbeddingProvider:          strings.ToLower(strings.TrimSpace(v.GetString("EMBEDDING_PROVIDER"))),
		EmbeddingModel:             v.GetString("EMBEDDING_MODEL"),
		EmbeddingBaseURL:           embeddingBase,
		EmbeddingDimensions:        v.GetInt("EMBEDDING_DIMENSIONS"),

		DisabledTools: splitList(v.GetString("DISABLED_TOOLS")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MockLLM reports whether the scripted mock gateway is selected.
func (c *Config) MockLLM() bool {
	return c.LLMMode == "MOCK"
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if placeholderKeys[c.OpenRouterAPIKey] && !c.MockLLM() {
		errs = append(errs, errors.New("OPENROUTER_API_KEY must be set to a valid API key"))
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.HTTPPort))
	}
	if c.MaxConversationHistory < 1 || c.MaxConversationHistory > 100 {
		errs = append(errs, fmt.Errorf("MAX_CONVERSATION_HISTORY must be between 1 and 100, got %d", c.MaxConversationHistory))
	}
	if c.SessionTTL < time.Minute {
		errs = append(errs, fmt.Errorf("SESSION_TTL_SECONDS must be at least 60, got %d", int(c.SessionTTL/time.Second)))
	}
	if c.SessionSweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive"))
	}
	if c.ContextMaxResults < 1 || c.ContextMaxResults > 10 {
		errs = append(errs, fmt.Errorf("CONTEXT_MAX_RESULTS must be between 1 and 10, got %d", c.ContextMaxResults))
	}
	if c.ContextSimilarityThreshold < 0 || c.ContextSimilarityThreshold > 2 {
		errs = append(errs, fmt.Errorf("CONTEXT_SIMILARITY_THRESHOLD must be between 0 and 2, got %g", c.ContextSimilarityThreshold))
	}
	if c.MaxToolIterations < 1 || c.MaxToolIterations > 10 {
		errs = append(errs, fmt.Errorf("MAX_TOOL_ITERATIONS must be between 1 and 10, got %d", c.MaxToolIterations))
	}
	if c.HTTPTimeout < time.Second || c.HTTPTimeout > 120*time.Second {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be between 1 and 120 seconds"))
	}
	if c.HTTPMaxRetries < 0 || c.HTTPMaxRetries > 10 {
		errs = append(errs, fmt.Errorf("HTTP_MAX_RETRIES must be between 0 and 10, got %d", c.HTTPMaxRetries))
	}
	if c.JikanRateLimit < 0 || c.TVMazeRateLimit < 0 || c.OpenLibraryRateLimit < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("CACHE_TTL must not be negative"))
	}
	if c.CacheMaxSize < 1 {
		errs = append(errs, errors.New("CACHE_MAX_SIZE must be at least 1"))
	}
	switch c.LogLevel {
	case "DEBUG", "INFO", "WARNING", "WARN", "ERROR", "CRITICAL":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of DEBUG, INFO, WARNING, ERROR, CRITICAL, got %q", c.LogLevel))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, errors.New("LOG_FORMAT must be 'json' or 'console'"))
	}
	if c.EmbeddingProvider != "local" && c.EmbeddingProvider != "openai" {
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER must be 'local' or 'openai', got %q", c.EmbeddingProvider))
	}
	if c.EmbeddingDimensions < 8 {
		errs = append(errs, errors.New("EMBEDDING_DIMENSIONS must be at least 8"))
	}
	return errors.Join(errs...)
}

func trimURL(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
