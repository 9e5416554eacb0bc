package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port             string
	APIBaseURL       string
	JWTSecret        string
	DatabaseURL      string
	RabbitMQURL      string
	AllowedOrigins   []string
	DefaultLocale    string
	SupportedLocales []string
	SecureCookies    bool

	RefreshMinInterval    time.Duration
	RefreshActivityWindow time.Duration
	RefreshStaleAfter     time.Duration

	CacheStaleTime     time.Duration
	CacheGCTime        time.Duration
	CacheSweepInterval time.Duration
	SessionIdleTimeout time.Duration

	RetryAttempts uint
	RetryMaxDelay time.Duration

	OTelEndpoint string
	OTelInsecure bool
}

func Load() AppConfig {
	_ = godotenv.Load() // load .env if present
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		log.Fatal("missing required env: API_BASE_URL")
	}
	return AppConfig{
		Port:             port,
		APIBaseURL:       apiURL,
		JWTSecret:        os.Getenv("JWT_SECRET"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		AllowedOrigins:   readList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		DefaultLocale:    readString("DEFAULT_LOCALE", "en"),
		SupportedLocales: readList("SUPPORTED_LOCALES", []string{"en", "am"}),
		SecureCookies:    readBool("SECURE_COOKIES", false),

		RefreshMinInterval:    readDuration("REFRESH_MIN_INTERVAL", 2*time.Second),
		RefreshActivityWindow: readDuration("REFRESH_ACTIVITY_WINDOW", 5*time.Minute),
		RefreshStaleAfter:     readDuration("REFRESH_STALE_AFTER", 30*time.Second),

		CacheStaleTime:     readDuration("CACHE_STALE_TIME", 5*time.Minute),
		CacheGCTime:        readDuration("CACHE_GC_TIME", 10*time.Minute),
		CacheSweepInterval: readDuration("CACHE_SWEEP_INTERVAL", time.Minute),
		SessionIdleTimeout: readDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),

		RetryAttempts: uint(readInt("API_RETRY_ATTEMPTS", 3)),
		RetryMaxDelay: readDuration("API_RETRY_MAX_DELAY", 30*time.Second),

		OTelEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelInsecure: readBool("OTEL_EXPORTER_OTLP_INSECURE", false),
	}
}

func readString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		log.Printf("config: ignoring invalid %s=%q", key, raw)
		return fallback
	}
	return value
}

func readList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
