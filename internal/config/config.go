package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Ai         AIConfig
	Enrichment EnrichmentConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
	NatsURL     string
	RedisURL    string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	GeminiApiKey      string
}

// EnrichmentConfig groups the tunable policy parameters of the learning
// pipeline. Constructed once at bootstrap and injected, so tests and
// per-tenant setups can override without touching call sites.
type EnrichmentConfig struct {
	Similarity SimilarityConfig
	Decay      DecayConfig
	Confidence ConfidenceConfig
}

type SimilarityConfig struct {
	SemanticThreshold float64 // cosine similarity at/above which two insights are duplicates
	LexicalThreshold  float64 // string-similarity fallback threshold
}

type DecayConfig struct {
	GracePeriodDays int     // no decay applied within this window
	RatePerDay      float64 // percent of original confidence lost per day after the grace window
}

type ConfidenceConfig struct {
	Default      int // assigned when the extractor omits confidence
	High         int // string-replace override threshold in conflict resolution
	AutoApplyMin int // default minimum confidence for the application engine
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "logs/app.log"),
			NatsURL:     getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			GeminiApiKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Enrichment: DefaultEnrichmentConfig(),
	}
}

// DefaultEnrichmentConfig returns the pipeline defaults, individually
// overridable through the environment.
func DefaultEnrichmentConfig() EnrichmentConfig {
	return EnrichmentConfig{
		Similarity: SimilarityConfig{
			SemanticThreshold: getEnvAsFloat("SIMILARITY_SEMANTIC_THRESHOLD", 0.85),
			LexicalThreshold:  getEnvAsFloat("SIMILARITY_LEXICAL_THRESHOLD", 0.85),
		},
		Decay: DecayConfig{
			GracePeriodDays: getEnvAsInt("DECAY_GRACE_PERIOD_DAYS", 7),
			RatePerDay:      getEnvAsFloat("DECAY_RATE_PER_DAY", 0.5),
		},
		Confidence: ConfidenceConfig{
			Default:      getEnvAsInt("CONFIDENCE_DEFAULT", 70),
			High:         getEnvAsInt("CONFIDENCE_HIGH", 90),
			AutoApplyMin: getEnvAsInt("CONFIDENCE_AUTO_APPLY_MIN", 80),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
