package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	pkgRetry "github.com/protolab/prototype-backend/internal/pkg/retry"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR,notEmpty"`

	// Database configuration
	DatabaseURL         string        `env:"DATABASE_URL,notEmpty"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// External service configurations
	LLMConnectorCfg     LLMConnectorConfig     `envPrefix:"LLM_"`
	StorageConnectorCfg StorageConnectorConfig `envPrefix:"STORAGE_"`

	// Conversation configuration
	HistoryLimit int `env:"HISTORY_LIMIT" envDefault:"20"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL,notEmpty"`

	// Resource upload configuration
	ResourceUploadCfg ResourceUploadConfig `envPrefix:"RESOURCE_UPLOAD_"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS,notEmpty"`

	// Telegram notification configuration (optional)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// LLMConnectorConfig configures the chat completion provider. BaseURL allows
// pointing at any OpenAI-compatible endpoint.
type LLMConnectorConfig struct {
	APIKey      string               `env:"API_KEY"`
	BaseURL     string               `env:"BASE_URL"`
	Model       string               `env:"MODEL,notEmpty"`
	MaxTokens   int                  `env:"MAX_TOKENS" envDefault:"8192"`
	Temperature float32              `env:"TEMPERATURE" envDefault:"0.7"`
	Retry       pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// StorageConnectorConfig configures the object store uploads go to.
type StorageConnectorConfig struct {
	HTTPClientConfig
	UploadEndpoint string               `env:"UPLOAD_ENDPOINT,notEmpty"`
	PublicBaseURL  string               `env:"PUBLIC_BASE_URL,notEmpty"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// TelegramConfig holds the optional notification bot configuration.
type TelegramConfig struct {
	Enabled  bool   `env:"ENABLED" envDefault:"false"`
	BotToken string `env:"BOT_TOKEN"`
	ChatID   int64  `env:"CHAT_ID"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT,notEmpty"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT,notEmpty"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE,notEmpty"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT,notEmpty"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT,notEmpty"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL,notEmpty"`
}

// ResourceUploadConfig holds image upload limits
type ResourceUploadConfig struct {
	MaxFileSize   int64 `env:"MAX_FILE_SIZE,notEmpty"`  // per file
	MaxFileCount  int   `env:"MAX_FILE_COUNT,notEmpty"` // per request
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE,notEmpty"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	if cfg.HistoryLimit < 1 || cfg.HistoryLimit > 200 {
		errors = append(errors, fmt.Sprintf("HISTORY_LIMIT must be between 1 and 200, got %d", cfg.HistoryLimit))
	}

	if !cfg.EnableMocks && cfg.LLMConnectorCfg.APIKey == "" {
		errors = append(errors, "LLM_API_KEY is required when mocks are disabled")
	}

	if cfg.TelegramCfg.Enabled && cfg.TelegramCfg.BotToken == "" {
		errors = append(errors, "TELEGRAM_BOT_TOKEN is required when notifications are enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", errors[0])
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
