package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	// Matching engine knobs
	MatchMaxCandidates     int
	MatchLookaheadDays     int
	ContactLimitPerWindow  int
	ContactWindowHours     int
	OutboxBatchSize        int
	OutboxInterval         time.Duration
	IntakeRatePerSecond    float64
	IntakeRateBurst        int

	// Admin auth
	AdminJWTSecret string

	// CORS
	CORSAllowedOrigins []string

	// Redis (contact velocity window)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Email delivery
	EmailProvider       string // sendgrid | ses | stub
	EmailFrom           string
	EmailFromName       string
	NotifyOpsRecipients []string

	// SendGrid Email Configuration
	SendGridAPIKey string

	// AWS (SES fallback sender, SQS event queue)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	EventsQueueURL      string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		MatchMaxCandidates:    getEnvAsInt("MATCH_MAX_CANDIDATES", 3),
		MatchLookaheadDays:    getEnvAsInt("MATCH_LOOKAHEAD_DAYS", 21),
		ContactLimitPerWindow: getEnvAsInt("CONTACT_LIMIT_PER_WINDOW", 3),
		ContactWindowHours:    getEnvAsInt("CONTACT_WINDOW_HOURS", 24),
		OutboxBatchSize:       getEnvAsInt("OUTBOX_BATCH_SIZE", 25),
		OutboxInterval:        getEnvAsDuration("OUTBOX_INTERVAL", 2*time.Second),
		IntakeRatePerSecond:   getEnvAsFloat("INTAKE_RATE_PER_SECOND", 1),
		IntakeRateBurst:       getEnvAsInt("INTAKE_RATE_BURST", 5),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		EmailProvider:       strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		EmailFrom:           getEnv("EMAIL_FROM", ""),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "Praxisfinder"),
		NotifyOpsRecipients: splitAndTrim(getEnv("NOTIFY_OPS_RECIPIENTS", "")),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		AWSRegion:           getEnv("AWS_REGION", "eu-central-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		EventsQueueURL:      getEnv("EVENTS_QUEUE_URL", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitAndTrim(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
