package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит все настройки приложения
type Config struct {
	Telegram TelegramConfig
	Trading  TradingConfig
	Database DatabaseConfig
	AI       AIConfig
	News     NewsConfig
	Autonomy AutonomyConfig
	APIPort  int
	LogLevel string
}

type TelegramConfig struct {
	BotToken  string
	AdminIDs  string
	Whitelist string
}

// TradingConfig настройки торгового sandbox API
type TradingConfig struct {
	APIKey  string
	BaseURL string
	// Лимит запросов к API (запросов в секунду)
	RateLimit float64
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AIConfig struct {
	Provider string // openai-compatible или anthropic
	APIKey   string
	BaseURL  string
	Model    string
}

type NewsConfig struct {
	Feeds      []string
	FetchLimit int
}

// AutonomyConfig настройки автономных сессий
type AutonomyConfig struct {
	CycleInterval   time.Duration
	MaxTradeSize    float64
	RiskLevel       string
	TestingMode     bool
	RiskProfilePath string
}

// Load загружает конфигурацию из .env файла и переменных окружения
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxOpenConns, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}

	maxIdleConns, err := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}

	connMaxLifetime, err := time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}

	rateLimit, err := strconv.ParseFloat(getEnv("TRADING_API_RATE_LIMIT", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TRADING_API_RATE_LIMIT: %w", err)
	}

	cycleInterval, err := time.ParseDuration(getEnv("CYCLE_INTERVAL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CYCLE_INTERVAL: %w", err)
	}

	maxTradeSize, err := strconv.ParseFloat(getEnv("MAX_TRADE_SIZE_USD", "500"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_TRADE_SIZE_USD: %w", err)
	}

	testingMode, err := strconv.ParseBool(getEnv("TESTING_MODE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid TESTING_MODE: %w", err)
	}

	newsLimit, err := strconv.Atoi(getEnv("NEWS_FETCH_LIMIT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid NEWS_FETCH_LIMIT: %w", err)
	}

	apiPort, err := strconv.Atoi(getEnv("API_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_PORT: %w", err)
	}

	config := &Config{
		Telegram: TelegramConfig{
			BotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
			AdminIDs:  getEnv("TELEGRAM_ADMIN_IDS", ""),
			Whitelist: getEnv("TELEGRAM_WHITELIST", ""),
		},
		Trading: TradingConfig{
			APIKey:    getEnv("TRADING_API_KEY", ""),
			BaseURL:   getEnv("TRADING_API_URL", "https://api.sandbox.example.com"),
			RateLimit: rateLimit,
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            dbPort,
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			DBName:          getEnv("DB_NAME", "trading_copilot"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    maxOpenConns,
			MaxIdleConns:    maxIdleConns,
			ConnMaxLifetime: connMaxLifetime,
		},
		AI: AIConfig{
			Provider: getEnv("AI_PROVIDER", "openai"),
			APIKey:   getEnv("AI_API_KEY", ""),
			BaseURL:  getEnv("AI_BASE_URL", ""),
			Model:    getEnv("AI_MODEL", "gpt-4o-mini"),
		},
		News: NewsConfig{
			Feeds:      splitList(getEnv("NEWS_FEEDS", defaultFeeds)),
			FetchLimit: newsLimit,
		},
		Autonomy: AutonomyConfig{
			CycleInterval:   cycleInterval,
			MaxTradeSize:    maxTradeSize,
			RiskLevel:       getEnv("RISK_LEVEL", "moderate"),
			TestingMode:     testingMode,
			RiskProfilePath: getEnv("RISK_PROFILE_PATH", "configs/risk_profiles.yaml"),
		},
		APIPort:  apiPort,
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

const defaultFeeds = "https://cointelegraph.com/rss,https://www.coindesk.com/arc/outboundfeeds/rss/"

// Validate проверяет обязательные поля конфигурации
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.Trading.APIKey == "" {
		return fmt.Errorf("TRADING_API_KEY is required")
	}
	if c.AI.APIKey == "" {
		return fmt.Errorf("AI_API_KEY is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
