package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	LoggingConfig    LoggingConfig    `json:"logging"`
	ServerConfig     ServerConfig     `json:"server"`
	MarketConfig     MarketConfig     `json:"market"`
	ConfluenceConfig ConfluenceConfig `json:"confluence"`
	QueueConfig      QueueConfig      `json:"queue"`
	RedisConfig      RedisConfig      `json:"redis"`
	DatabaseConfig   DatabaseConfig   `json:"database"`
	AIConfig         AIConfig         `json:"ai"`
}

type LoggingConfig struct {
	Level   string `json:"level"`   // debug, info, warn, error
	Console bool   `json:"console"` // human-readable output instead of JSON
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// MarketConfig holds the exchange data source configuration
type MarketConfig struct {
	BaseURL       string   `json:"base_url"`
	WSBaseURL     string   `json:"ws_base_url"`
	Interval      string   `json:"interval"` // kline interval, e.g. "1h"
	Symbols       []string `json:"symbols"`
	MockMode      bool     `json:"mock_mode"` // use simulated data when the exchange is unavailable
	Depth         int      `json:"depth"`     // order book depth per request
	CandleLimit   int      `json:"candle_limit"`
	StreamEnabled bool     `json:"stream_enabled"`
}

type ConfluenceConfig struct {
	WindowSeconds   int64 `json:"window_seconds"`
	CooldownSeconds int64 `json:"cooldown_seconds"`
}

type QueueConfig struct {
	TTLSeconds         int64    `json:"ttl_seconds"`
	StopTimeoutSeconds int64    `json:"stop_timeout_seconds"`
	ExpiryKinds        []string `json:"expiry_kinds"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type DatabaseConfig struct {
	Enabled bool   `json:"enabled"`
	DSN     string `json:"dsn"`
}

type AIConfig struct {
	Enabled     bool    `json:"enabled"`
	BaseURL     string  `json:"base_url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultString(cfg.LoggingConfig.Level, "info"))
	cfg.LoggingConfig.Console = getEnvBoolOrDefault("LOG_CONSOLE", cfg.LoggingConfig.Console)

	cfg.ServerConfig.Host = getEnvOrDefault("SERVER_HOST", defaultString(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", defaultInt(cfg.ServerConfig.Port, 8080))

	cfg.MarketConfig.BaseURL = getEnvOrDefault("MARKET_BASE_URL", defaultString(cfg.MarketConfig.BaseURL, "https://api.binance.com"))
	cfg.MarketConfig.WSBaseURL = getEnvOrDefault("MARKET_WS_BASE_URL", defaultString(cfg.MarketConfig.WSBaseURL, "wss://stream.binance.com:9443"))
	cfg.MarketConfig.Interval = getEnvOrDefault("MARKET_INTERVAL", defaultString(cfg.MarketConfig.Interval, "1h"))
	cfg.MarketConfig.MockMode = getEnvBoolOrDefault("MOCK_MODE", cfg.MarketConfig.MockMode)
	cfg.MarketConfig.Depth = getEnvIntOrDefault("MARKET_DEPTH", defaultInt(cfg.MarketConfig.Depth, 100))
	cfg.MarketConfig.CandleLimit = getEnvIntOrDefault("MARKET_CANDLE_LIMIT", defaultInt(cfg.MarketConfig.CandleLimit, 200))
	cfg.MarketConfig.StreamEnabled = getEnvBoolOrDefault("MARKET_STREAM_ENABLED", cfg.MarketConfig.StreamEnabled)
	if symbols := os.Getenv("MARKET_SYMBOLS"); symbols != "" {
		cfg.MarketConfig.Symbols = splitAndTrim(symbols)
	}
	if len(cfg.MarketConfig.Symbols) == 0 {
		cfg.MarketConfig.Symbols = []string{"BTCUSDT"}
	}

	cfg.ConfluenceConfig.WindowSeconds = getEnvInt64OrDefault("CONFLUENCE_WINDOW_SECONDS", defaultInt64(cfg.ConfluenceConfig.WindowSeconds, 7200))
	cfg.ConfluenceConfig.CooldownSeconds = getEnvInt64OrDefault("CONFLUENCE_COOLDOWN_SECONDS", defaultInt64(cfg.ConfluenceConfig.CooldownSeconds, 3600))

	cfg.QueueConfig.TTLSeconds = getEnvInt64OrDefault("QUEUE_TTL_SECONDS", defaultInt64(cfg.QueueConfig.TTLSeconds, 86400))
	cfg.QueueConfig.StopTimeoutSeconds = getEnvInt64OrDefault("QUEUE_STOP_TIMEOUT_SECONDS", defaultInt64(cfg.QueueConfig.StopTimeoutSeconds, 30))
	if kinds := os.Getenv("QUEUE_EXPIRY_KINDS"); kinds != "" {
		cfg.QueueConfig.ExpiryKinds = splitAndTrim(kinds)
	}
	if len(cfg.QueueConfig.ExpiryKinds) == 0 {
		cfg.QueueConfig.ExpiryKinds = []string{"bull", "bear"}
	}

	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultString(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	cfg.DatabaseConfig.Enabled = getEnvBoolOrDefault("DATABASE_ENABLED", cfg.DatabaseConfig.Enabled)
	cfg.DatabaseConfig.DSN = getEnvOrDefault("DATABASE_DSN", cfg.DatabaseConfig.DSN)

	cfg.AIConfig.Enabled = getEnvBoolOrDefault("AI_ENABLED", cfg.AIConfig.Enabled)
	cfg.AIConfig.BaseURL = getEnvOrDefault("AI_BASE_URL", defaultString(cfg.AIConfig.BaseURL, "https://api.openai.com/v1"))
	cfg.AIConfig.APIKey = getEnvOrDefault("AI_API_KEY", cfg.AIConfig.APIKey)
	cfg.AIConfig.Model = getEnvOrDefault("AI_MODEL", defaultString(cfg.AIConfig.Model, "gpt-4o-mini"))
	cfg.AIConfig.MaxTokens = getEnvIntOrDefault("AI_MAX_TOKENS", defaultInt(cfg.AIConfig.MaxTokens, 1024))
	cfg.AIConfig.Temperature = getEnvFloatOrDefault("AI_TEMPERATURE", cfg.AIConfig.Temperature)
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func defaultInt(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}

func defaultInt64(value, fallback int64) int64 {
	if value == 0 {
		return fallback
	}
	return value
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
