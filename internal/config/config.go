package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Webhook
	DefaultProvider    string
	DefaultCountryCode string
	MaxBodyBytes       int64
	FormLabelsFile     string

	// Rate Limit
	RateLimitWebhook int

	// Logging
	LogLevel string

	// Server
	ServerPort string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DefaultProvider = strings.ToLower(getEnvString("DEFAULT_PROVIDER", "tally"))
	cfg.DefaultCountryCode = strings.TrimPrefix(getEnvString("DEFAULT_COUNTRY_CODE", "1"), "+")
	cfg.MaxBodyBytes = getEnvInt64("WEBHOOK_MAX_BODY_BYTES", 1048576)
	cfg.FormLabelsFile = getEnvString("FORM_LABELS_FILE", "")
	cfg.RateLimitWebhook = getEnvInt("RATE_LIMIT_WEBHOOK", 600)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}
