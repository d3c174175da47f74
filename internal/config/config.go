package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Summary  SummaryConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JwtSecret     string
	WebhookSecret string
}

type AIConfig struct {
	Provider        string // "gemini" or "ollama"
	GeminiApiKey    string
	GeminiBaseURL   string
	OllamaBaseURL   string
	PrimaryModel    string
	FallbackModels  []string
	Temperature     float64
	MaxOutputTokens int
	RepairMaxTokens int
}

type SummaryConfig struct {
	LeaseTTL       time.Duration
	MaxAnswerChars int
	LeaseStore     string // "postgres" or "memory"
	CacheTTL       time.Duration
	PurchaseType   string
	EntitlementId  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "logs/ai_generation_events.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnv("OTEL_ENABLED", "false") == "true",
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JwtSecret:     getEnv("JWT_SECRET", ""),
			WebhookSecret: getEnv("REVENUECAT_WEBHOOK_SECRET", ""),
		},
		Ai: AIConfig{
			Provider:        getEnv("LLM_PROVIDER", "gemini"),
			GeminiApiKey:    getEnv("GEMINI_API_KEY", ""),
			GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			PrimaryModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			FallbackModels:  getEnvAsList("GEMINI_FALLBACK_MODELS", []string{"gemini-2.0-flash", "gemini-1.5-flash"}),
			Temperature:     getEnvAsFloat("LLM_TEMPERATURE", 0.4),
			MaxOutputTokens: getEnvAsInt("LLM_MAX_OUTPUT_TOKENS", 4096),
			RepairMaxTokens: getEnvAsInt("LLM_REPAIR_MAX_TOKENS", 2048),
		},
		Summary: SummaryConfig{
			LeaseTTL:       getEnvAsDuration("SUMMARY_LEASE_TTL", 180*time.Second),
			MaxAnswerChars: getEnvAsInt("SUMMARY_MAX_ANSWER_CHARS", 90000),
			LeaseStore:     getEnv("SUMMARY_LEASE_STORE", "postgres"),
			CacheTTL:       getEnvAsDuration("SUMMARY_CACHE_TTL", 24*time.Hour),
			PurchaseType:   getEnv("ENTITLEMENT_PURCHASE_TYPE", "lifetime_unlock"),
			EntitlementId:  getEnv("REVENUECAT_ENTITLEMENT_ID", "aligna_pro"),
		},
	}
}

// Models is the generation order: primary first, then fallbacks, without
// duplicates or blanks.
func (c AIConfig) Models() []string {
	seen := make(map[string]bool)
	models := make([]string, 0, len(c.FallbackModels)+1)
	for _, m := range append([]string{c.PrimaryModel}, c.FallbackModels...) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		models = append(models, m)
	}
	return models
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

// getEnvAsDuration accepts Go durations ("3m") or plain seconds ("180").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
