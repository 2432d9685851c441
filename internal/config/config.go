package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultMaxPixels = 1920 * 1080

var defaultExchanges = []string{
	"BINANCE", "BYBIT", "OKX", "COINBASE", "KRAKEN", "KUCOIN",
	"MEXC", "GATEIO", "BITGET", "DRIFT", "HYPERLIQUID",
}

var defaultPopularTokens = []string{
	"BTC", "ETH", "SOL", "BNB", "XRP", "DOGE", "ADA", "AVAX", "LINK", "SUI",
}

// Config holds all configuration for the chart vault API.
type Config struct {
	// Chart provider settings
	ChartImgAPIKey    string
	ChartImgBaseURL   string
	ChartImgTimeoutMS int
	FastTimeoutMS     int

	// Object storage settings
	StorageBucket   string
	StorageEndpoint string
	StorageRegion   string
	AccessKeyID     string
	SecretAccessKey string
	PublicDomain    string

	// Server settings
	BindAddr string
	LogLevel string
	LogFile  string

	// Business policy
	MaxPixels        int
	AllowedExchanges []string
	PopularTokens    []string
}

// Load reads configuration from environment variables and optional .env file.
// It fails when a required value (provider API key, bucket name) is missing.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		ChartImgAPIKey:    os.Getenv("CHARTIMG_API_KEY"),
		ChartImgBaseURL:   getEnvOrDefault("CHARTIMG_BASE_URL", "https://api.chart-img.com"),
		ChartImgTimeoutMS: getEnvIntOrDefault("CHARTIMG_TIMEOUT_MS", 30000),
		FastTimeoutMS:     getEnvIntOrDefault("CHARTIMG_FAST_TIMEOUT_MS", 15000),
		StorageBucket:     os.Getenv("STORAGE_BUCKET"),
		StorageEndpoint:   os.Getenv("STORAGE_ENDPOINT"),
		StorageRegion:     getEnvOrDefault("STORAGE_REGION", "auto"),
		AccessKeyID:       os.Getenv("STORAGE_ACCESS_KEY_ID"),
		SecretAccessKey:   os.Getenv("STORAGE_SECRET_ACCESS_KEY"),
		PublicDomain:      os.Getenv("PUBLIC_DOMAIN"),
		BindAddr:          getEnvOrDefault("VAULT_BIND_ADDR", "127.0.0.1:8190"),
		LogLevel:          strings.ToLower(getEnvOrDefault("VAULT_LOG_LEVEL", "info")),
		LogFile:           getEnvOrDefault("VAULT_LOG_FILE", "logs/chart_vault.log"),
		MaxPixels:         getEnvIntOrDefault("VAULT_MAX_PIXELS", defaultMaxPixels),
		AllowedExchanges:  getEnvListOrDefault("VAULT_ALLOWED_EXCHANGES", defaultExchanges),
		PopularTokens:     getEnvListOrDefault("VAULT_POPULAR_TOKENS", defaultPopularTokens),
	}

	if cfg.ChartImgAPIKey == "" {
		return nil, fmt.Errorf("CHARTIMG_API_KEY is required")
	}
	if cfg.StorageBucket == "" {
		return nil, fmt.Errorf("STORAGE_BUCKET is required")
	}
	if cfg.ChartImgTimeoutMS < 1000 {
		cfg.ChartImgTimeoutMS = 1000
	}
	if cfg.FastTimeoutMS < 1000 {
		cfg.FastTimeoutMS = 1000
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
