package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	// Directory (patient/appointment store) backend: memory, sheets or postgres.
	DirectoryBackend string
	DatabaseURL      string
	SpreadsheetID    string
	// Raw service-account JSON; takes precedence over GoogleCredentialsFile.
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
	BackupDir             string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration

	// Long-term transcript persistence (Postgres, optional).
	PersistTranscripts bool

	NoShowWeightsPath string

	SpeechBaseURL string
	SpeechAPIKey  string
	SpeechModel   string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		DirectoryBackend:      strings.ToLower(strings.TrimSpace(getEnv("DIRECTORY_BACKEND", "memory"))),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		SpreadsheetID:         getEnv("SHEETS_SPREADSHEET_ID", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "credenciales.json"),
		BackupDir:             getEnv("BACKUP_DIR", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		PersistTranscripts: getEnvAsBool("PERSIST_TRANSCRIPTS", false),

		NoShowWeightsPath: getEnv("NOSHOW_WEIGHTS_PATH", ""),

		SpeechBaseURL: getEnv("SPEECH_BASE_URL", ""),
		SpeechAPIKey:  getEnv("SPEECH_API_KEY", ""),
		SpeechModel:   getEnv("SPEECH_MODEL", "whisper-1"),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Clínica Dental"),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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

func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
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
