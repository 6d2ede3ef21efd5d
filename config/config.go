package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	OpenAI   OpenAIConfig
	Azure    AzureConfig
	AWS      AWSConfig
	CORS     CORSConfig

	// SnapshotSchedule is a cron spec for the forward book snapshot job.
	// Empty disables the job.
	SnapshotSchedule string
	SentryDSN        string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	MaxUploadMB int64
}

// DatabaseConfig holds database settings.
type DatabaseConfig struct {
	Path string
}

// OpenAIConfig holds the field extraction model settings.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// AzureConfig holds Azure Computer Vision OCR settings.
type AzureConfig struct {
	Endpoint string
	Key      string
	Tier     string
}

// Enabled reports whether both endpoint and key are set.
func (a AzureConfig) Enabled() bool {
	return a.Endpoint != "" && a.Key != ""
}

// AWSConfig holds Textract settings. Textract is only used when both keys
// are set.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	// Missing .env is fine.
	_ = godotenv.Load()

	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return nil, err
	}
	maxUpload, err := getEnvInt("MAX_UPLOAD_MB", 10)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port:        port,
			MaxUploadMB: int64(maxUpload),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "contracts.db"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  firstEnv("OPENAI_API_KEY", "OPENAI_KEY"),
			Model:   getEnv("OPENAI_MODEL", "gpt-4"),
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		},
		Azure: AzureConfig{
			Endpoint: firstEnv("AZURE_VISION_ENDPOINT", "AZURE_COMPUTER_VISION_ENDPOINT"),
			Key:      firstEnv("AZURE_VISION_KEY", "AZURE_COMPUTER_VISION_KEY"),
			Tier:     getEnv("AZURE_VISION_TIER", "F0"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		},
		SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", "@daily"),
		SentryDSN:        os.Getenv("SENTRY_DSN"),
	}, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// firstEnv returns the first non-empty variable among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &InvalidValueError{Key: key, Value: value, Err: err}
	}
	return n, nil
}

func getEnvList(key, defaultCSV string) []string {
	value := getEnv(key, defaultCSV)
	var out []string
	for _, part := range strings.Split(value, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// InvalidValueError reports an environment variable that failed to parse.
type InvalidValueError struct {
	Key   string
	Value string
	Err   error
}

func (e *InvalidValueError) Error() string {
	return "config: invalid " + e.Key + "=" + strconv.Quote(e.Value) + ": " + e.Err.Error()
}

func (e *InvalidValueError) Unwrap() error { return e.Err }
