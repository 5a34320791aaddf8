package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI string
	DBName   string

	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis (asynq broker + embedding cache)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Gemini
	GeminiAPIKey string
	GeminiTier   string
	GeminiModel  string

	// Embeddings
	EmbeddingsProvider    string // "google" (default), "openai"
	GoogleEmbeddingsModel string // e.g. "text-embedding-004"
	EmbeddingMaxChars     int    // input truncation budget before the provider call
	EmbedConcurrency      int    // parallel items per batch
	EmbedCacheTTL         time.Duration

	// Scraping
	ScrapeMaxPages   int
	ScrapeMaxRetries int           // transient-failure ceiling before terminal failed
	ScrapeTimeout    time.Duration // wall-clock budget per job
	ScrapeRefreshTTL time.Duration // re-scrape institutions older than this
	ScrapeStaleAfter time.Duration // reclaim in_progress jobs idle past this
	ScrapeRenderJS   bool

	// Retrieval / prompt assembly
	TopKDefault       int
	TopKMax           int
	PassageCharBudget int

	// Rate limiting
	RateLimitReqs   int // requests per window per IP+endpoint
	RateLimitWindow int // window in seconds

	// Telemetry
	OTLPEndpoint string
}

func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/student_advisor"),
		DBName:   getEnv("DB_NAME", "student_advisor"),

		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiTier:   getEnv("GEMINI_TIER", "free"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		EmbeddingMaxChars:     getEnvInt("EMBEDDING_MAX_CHARS", 8000),
		EmbedConcurrency:      getEnvInt("EMBED_CONCURRENCY", 4),
		EmbedCacheTTL:         getEnvDuration("EMBED_CACHE_TTL", 24*time.Hour),

		ScrapeMaxPages:   getEnvInt("SCRAPE_MAX_PAGES", 50),
		ScrapeMaxRetries: getEnvInt("SCRAPE_MAX_RETRIES", 3),
		ScrapeTimeout:    getEnvDuration("SCRAPE_TIMEOUT", 10*time.Minute),
		ScrapeRefreshTTL: getEnvDuration("SCRAPE_REFRESH_TTL", 168*time.Hour),
		ScrapeStaleAfter: getEnvDuration("SCRAPE_STALE_AFTER", 30*time.Minute),
		ScrapeRenderJS:   getEnvBool("SCRAPE_RENDER_JS", false),

		TopKDefault:       getEnvInt("RETRIEVAL_TOP_K", 5),
		TopKMax:           getEnvInt("RETRIEVAL_TOP_K_MAX", 10),
		PassageCharBudget: getEnvInt("PASSAGE_CHAR_BUDGET", 1200),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
