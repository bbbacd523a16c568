package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Record Store
	RecordStore           string
	DatabaseURL           string
	DynamoRecordsTable    string
	RedisAddr             string
	RedisPassword         string
	RedisTLS              bool
	MirrorBucket          string
	DefaultAcquisitionSrc string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// External Case System
	CaseAPIBaseURL       string
	CaseAPIKey           string
	CaseAPITimeout       time.Duration
	CaseSubmitRetryDelay time.Duration

	// Notifications
	NotifyChannel     string
	NotifyWebhookURL  string
	NotifyEmailTo     []string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	// Admin dashboard
	AdminPassword      string
	AdminSessionSecret string
	AdminSessionTTL    time.Duration

	DisplayTimezone    string
	CORSAllowedOrigins []string
	IntakeRateLimit    float64
	IntakeRateBurst    int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		RecordStore:           strings.ToLower(strings.TrimSpace(getEnv("RECORD_STORE", "memory"))),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		DynamoRecordsTable:    getEnv("DYNAMODB_RECORDS_TABLE", "lead_records"),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisTLS:              getEnvAsBool("REDIS_TLS", false),
		MirrorBucket:          getEnv("MIRROR_BUCKET", ""),
		DefaultAcquisitionSrc: getEnv("DEFAULT_ACQUISITION_SOURCE", "website"),

		AWSRegion:           getEnv("AWS_REGION", "ap-northeast-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		CaseAPIBaseURL:       getEnv("CASE_API_BASE_URL", ""),
		CaseAPIKey:           getEnv("CASE_API_KEY", ""),
		CaseAPITimeout:       getEnvAsDuration("CASE_API_TIMEOUT", 10*time.Second),
		CaseSubmitRetryDelay: getEnvAsDuration("CASE_SUBMIT_RETRY_DELAY", time.Second),

		NotifyChannel:     strings.ToLower(strings.TrimSpace(getEnv("NOTIFY_CHANNEL", "log"))),
		NotifyWebhookURL:  getEnv("NOTIFY_WEBHOOK_URL", ""),
		NotifyEmailTo:     getEnvAsList("NOTIFY_EMAIL_TO"),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Lead Intake"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		AdminSessionSecret: getEnv("ADMIN_SESSION_SECRET", ""),
		AdminSessionTTL:    getEnvAsDuration("ADMIN_SESSION_TTL", 12*time.Hour),

		DisplayTimezone:    getEnv("DISPLAY_TIMEZONE", "Asia/Seoul"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		IntakeRateLimit:    getEnvAsFloat("INTAKE_RATE_LIMIT", 1),
		IntakeRateBurst:    getEnvAsInt("INTAKE_RATE_BURST", 5),
	}
}

// DisplayLocation resolves DisplayTimezone, falling back to UTC when it is unknown.
func (c *Config) DisplayLocation() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.DisplayTimezone))
	if err != nil {
		return time.UTC
	}
	return loc
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
