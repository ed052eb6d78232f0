package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the SentinelSlice server.
type Config struct {
	Server   ServerConfig
	Elastic  ElasticConfig
	Redis    RedisConfig
	AI       AIConfig
	Pipeline PipelineConfig
	Seed     SeedConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type ElasticConfig struct {
	URL     string
	APIKey  string
	Index   string
	Timeout time.Duration
}

// RedisConfig is optional: with no URL the server runs without a cache and
// the rate limiter becomes a pass-through.
type RedisConfig struct {
	URL                string
	RateLimitPerMinute int
}

type AIConfig struct {
	Provider string
	OpenAI   OpenAIConfig
}

type OpenAIConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	BaseURL        string
	Timeout        time.Duration
}

// PipelineConfig carries the tunables of the retrieval and synthesis stages.
type PipelineConfig struct {
	RankConstant      int
	WindowMultiplier  int
	AnalysisMaxTokens int
	RunbookMaxTokens  int
}

type SeedConfig struct {
	Path string // optional YAML corpus seeded alongside the built-in slices
}

var validProviders = map[string]bool{
	"openai": true,
	"mock":   true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("SENTINEL_PORT", 8080),
			Env:  envString("SENTINEL_ENV", "development"),
		},
		Elastic: ElasticConfig{
			URL:     envString("ELASTIC_URL", "http://localhost:9200"),
			APIKey:  os.Getenv("ELASTIC_API_KEY"),
			Index:   envString("SENTINEL_INDEX", "sentinel-slices"),
			Timeout: envDuration("ELASTIC_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:                os.Getenv("REDIS_URL"),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		AI: AIConfig{
			Provider: os.Getenv("AI_PROVIDER"),
			OpenAI: OpenAIConfig{
				APIKey:         os.Getenv("OPENAI_API_KEY"),
				Model:          envString("OPENAI_MODEL", "gpt-4o"),
				EmbeddingModel: envString("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
				BaseURL:        os.Getenv("OPENAI_BASE_URL"),
				Timeout:        envDurationSecs("AI_COMPLETION_TIMEOUT_SECS", 60*time.Second),
			},
		},
		Pipeline: PipelineConfig{
			RankConstant:      envInt("SENTINEL_RANK_CONSTANT", 60),
			WindowMultiplier:  envInt("SENTINEL_RANK_WINDOW_MULTIPLIER", 3),
			AnalysisMaxTokens: envInt("SENTINEL_ANALYSIS_MAX_TOKENS", 300),
			RunbookMaxTokens:  envInt("SENTINEL_RUNBOOK_MAX_TOKENS", 800),
		},
		Seed: SeedConfig{
			Path: os.Getenv("SENTINEL_SEED_PATH"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Elastic.URL == "" {
		return fmt.Errorf("ELASTIC_URL is required")
	}
	if !strings.HasPrefix(c.Elastic.URL, "http://") && !strings.HasPrefix(c.Elastic.URL, "https://") {
		return fmt.Errorf("ELASTIC_URL must start with http:// or https://, got %q", c.Elastic.URL)
	}
	if c.Elastic.Index == "" {
		return fmt.Errorf("SENTINEL_INDEX is required")
	}

	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of openai, mock; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}

	if c.Pipeline.RankConstant < 1 {
		return fmt.Errorf("SENTINEL_RANK_CONSTANT must be >= 1, got %d", c.Pipeline.RankConstant)
	}
	if c.Pipeline.WindowMultiplier < 1 {
		return fmt.Errorf("SENTINEL_RANK_WINDOW_MULTIPLIER must be >= 1, got %d", c.Pipeline.WindowMultiplier)
	}
	if c.Pipeline.AnalysisMaxTokens < 1 {
		return fmt.Errorf("SENTINEL_ANALYSIS_MAX_TOKENS must be >= 1, got %d", c.Pipeline.AnalysisMaxTokens)
	}
	if c.Pipeline.RunbookMaxTokens < 1 {
		return fmt.Errorf("SENTINEL_RUNBOOK_MAX_TOKENS must be >= 1, got %d", c.Pipeline.RunbookMaxTokens)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
