package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the full runtime configuration of the service
type Config struct {
	Environment    string
	Port           string
	LogLevel       slog.Level
	DatabaseURL    string
	RedisURL       string
	AllowedOrigins []string

	Casdoor  CasdoorConfig
	Kafka    KafkaConfig
	Session  SessionConfig
	Progress ProgressConfig
	Storage  StorageConfig
}

// CasdoorConfig holds the hosted auth provider settings
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

// KafkaConfig enables the Kafka transport for session events when Brokers is non-empty
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
}

// SessionConfig tunes the session reconciler
type SessionConfig struct {
	ProbeTimeout           time.Duration
	ConfirmationWindow     time.Duration
	TTL                    time.Duration
	PendingConfirmationTTL time.Duration
}

// ProgressConfig tunes the progress outbox
type ProgressConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// StorageConfig configures cover image storage
type StorageConfig struct {
	Dir          string
	PublicURL    string
	MaxCoverSize int64
}

// LoadConfig reads .env (if present) and the process environment
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Environment:    v.GetString("ENVIRONMENT"),
		Port:           v.GetString("PORT"),
		LogLevel:       parseLevel(v.GetString("LOG_LEVEL")),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		RedisURL:       v.GetString("REDIS_URL"),
		AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS")),
	}

	cfg.Casdoor = CasdoorConfig{
		Endpoint:     v.GetString("CASDOOR_ENDPOINT"),
		ClientID:     v.GetString("CASDOOR_CLIENT_ID"),
		ClientSecret: v.GetString("CASDOOR_CLIENT_SECRET"),
		Cert:         v.GetString("CASDOOR_CERT"),
		Organization: v.GetString("CASDOOR_ORGANIZATION"),
		Application:  v.GetString("CASDOOR_APPLICATION"),
	}

	cfg.Kafka = KafkaConfig{
		Brokers:       splitAndTrim(v.GetString("KAFKA_BROKERS")),
		Topic:         v.GetString("KAFKA_TOPIC"),
		ConsumerGroup: v.GetString("KAFKA_CONSUMER_GROUP"),
	}

	cfg.Session = SessionConfig{
		ProbeTimeout:           parseDuration(v.GetString("SESSION_PROBE_TIMEOUT"), 2*time.Second),
		ConfirmationWindow:     parseDuration(v.GetString("SESSION_CONFIRMATION_WINDOW"), 120*time.Second),
		TTL:                    parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour),
		PendingConfirmationTTL: parseDuration(v.GetString("PENDING_CONFIRMATION_TTL"), 72*time.Hour),
	}

	cfg.Progress = ProgressConfig{
		MaxAttempts:  v.GetInt("PROGRESS_MAX_ATTEMPTS"),
		RetryBackoff: parseDuration(v.GetString("PROGRESS_RETRY_BACKOFF"), 500*time.Millisecond),
	}
	if cfg.Progress.MaxAttempts <= 0 {
		cfg.Progress.MaxAttempts = 5
	}

	cfg.Storage = StorageConfig{
		Dir:          v.GetString("STORAGE_DIR"),
		PublicURL:    strings.TrimRight(v.GetString("STORAGE_PUBLIC_URL"), "/"),
		MaxCoverSize: v.GetInt64("MAX_COVER_SIZE"),
	}
	if cfg.Storage.MaxCoverSize <= 0 {
		cfg.Storage.MaxCoverSize = 5 * 1024 * 1024
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required: sessions are stored in redis")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", EnvDevelopment)
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("ALLOWED_ORIGINS", "")

	v.SetDefault("CASDOOR_ENDPOINT", "http://localhost:8000")
	v.SetDefault("CASDOOR_CLIENT_ID", "")
	v.SetDefault("CASDOOR_CLIENT_SECRET", "")
	v.SetDefault("CASDOOR_CERT", "")
	v.SetDefault("CASDOOR_ORGANIZATION", "built-in")
	v.SetDefault("CASDOOR_APPLICATION", "elearning")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "session.events")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "")

	v.SetDefault("SESSION_PROBE_TIMEOUT", "2s")
	v.SetDefault("SESSION_CONFIRMATION_WINDOW", "120s")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("PENDING_CONFIRMATION_TTL", "72h")

	v.SetDefault("PROGRESS_MAX_ATTEMPTS", 5)
	v.SetDefault("PROGRESS_RETRY_BACKOFF", "500ms")

	v.SetDefault("STORAGE_DIR", "./uploads")
	v.SetDefault("STORAGE_PUBLIC_URL", "/uploads")
	v.SetDefault("MAX_COVER_SIZE", 5*1024*1024)
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(raw)))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
