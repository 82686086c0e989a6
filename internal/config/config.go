package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	StaticDir   string
	// Storage - empty DatabaseURL selects the in-memory diagram store
	DatabaseURL string
	TablePrefix string
	// Bootstrap system provider (all four must be set)
	DefaultAIName    string
	DefaultAIBaseURL string
	DefaultAIAPIKey  string
	DefaultAIModel   string
	// Extra provider records loaded at startup
	ProvidersFile string
	// Generation
	SystemPromptFile      string
	ProviderTimeout       time.Duration
	ProviderStreamTimeout time.Duration
	Temperature           float32
	ProbeConcurrency      int
	// Rate limiting of generation endpoints, 0 disables
	RateLimitRPM   int
	RateLimitBurst int
	// Comma separated IPs/CIDRs whose forwarding headers are trusted
	TrustedProxies string
	// Logging
	LogDir      string
	LogMaxFiles int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:             getEnv("PORT", "8000"),
		Environment:      env,
		CORSOrigins:      getEnv("CORS_ORIGINS", "*"),
		StaticDir:        getEnv("STATIC_DIR", "../frontend/dist"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		TablePrefix:      getTablePrefix(env),
		DefaultAIName:    getEnv("DEFAULT_AI_NAME", ""),
		DefaultAIBaseURL: getEnv("DEFAULT_AI_BASE_URL", ""),
		DefaultAIAPIKey:  getEnv("DEFAULT_AI_API_KEY", ""),
		DefaultAIModel:   getEnv("DEFAULT_AI_MODEL", ""),
		ProvidersFile:    getEnv("PROVIDERS_FILE", ""),
		SystemPromptFile: getEnv("SYSTEM_PROMPT_FILE", ""),
		// Buffered calls wait for the whole answer; streams get more headroom
		ProviderTimeout:       getDuration("PROVIDER_TIMEOUT", 60*time.Second),
		ProviderStreamTimeout: getDuration("PROVIDER_STREAM_TIMEOUT", 120*time.Second),
		Temperature:           float32(getFloat("GENERATION_TEMPERATURE", 0.7)),
		ProbeConcurrency:      getInt("PROBE_CONCURRENCY", 4),
		RateLimitRPM:          getInt("RATE_LIMIT_RPM", 0),
		RateLimitBurst:        getInt("RATE_LIMIT_BURST", 5),
		TrustedProxies:        getEnv("TRUSTED_PROXIES", ""),
		LogDir:                getEnv("LOG_DIR", ""),
		LogMaxFiles:           getInt("LOG_MAX_FILES", 10),
	}
}

// HasDefaultProvider reports whether the bootstrap system provider is fully configured
func (c *Config) HasDefaultProvider() bool {
	return c.DefaultAIName != "" && c.DefaultAIBaseURL != "" && c.DefaultAIAPIKey != "" && c.DefaultAIModel != ""
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 32); err == nil {
		return f
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
