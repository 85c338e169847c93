package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string
	LogLevel   string

	ApifyToken          string
	ApifyBaseURL        string
	ActorIDInstagram    string
	ActorIDTikTok       string
	ResultsLimit        int
	MaxRequestsPerCrawl int
	MaxConcurrency      int
	PollInterval        time.Duration
	PollMaxAttempts     int
	RequestTimeout      time.Duration

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RateLimitPerDay int

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		ApifyToken:          getEnv("APIFY_TOKEN", ""),
		ApifyBaseURL:        getEnv("APIFY_API_BASE_URL", "https://api.apify.com"),
		ActorIDInstagram:    getEnv("APIFY_ACTOR_ID_INSTAGRAM", ""),
		ActorIDTikTok:       getEnv("APIFY_ACTOR_ID_TIKTOK", ""),
		ResultsLimit:        getEnvAsInt("RESULTS_LIMIT", 3),
		MaxRequestsPerCrawl: getEnvAsInt("MAX_REQUESTS_PER_CRAWL", 5),
		MaxConcurrency:      getEnvAsInt("MAX_CONCURRENCY", 1),
		PollInterval:        getEnvAsSeconds("POLL_INTERVAL_SECONDS", 2),
		PollMaxAttempts:     getEnvAsInt("POLL_MAX_ATTEMPTS", 60),
		RequestTimeout:      getEnvAsSeconds("REQUEST_TIMEOUT_SECONDS", 30),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		RateLimitPerDay: getEnvAsInt("RATE_LIMIT_PER_DAY", 10),

		PostgresHost:     getEnv("POSTGRES_HOST", ""),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "user"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresDB:       getEnv("POSTGRES_DB", "trends"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Second
}
