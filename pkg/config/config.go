package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool

	// SecretsKey is the 32-byte key sealing exchange credentials at rest.
	SecretsKey []byte

	// PlatformFeeBps is the platform's cut of each conversion in basis points.
	PlatformFeeBps int64

	// Exchange call behaviour.
	ExchangeCallTimeout  time.Duration
	OrderMaxRetries      int
	WithdrawalMaxRetries int

	// WebhookRateLimit is a ulule/limiter formatted rate, e.g. "100-M".
	WebhookRateLimit string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("SECRETS_KEY", "")
	viper.SetDefault("PLATFORM_FEE_BPS", 100)
	viper.SetDefault("EXCHANGE_CALL_TIMEOUT", "30s")
	viper.SetDefault("ORDER_MAX_RETRIES", 3)
	viper.SetDefault("WITHDRAWAL_MAX_RETRIES", 5)
	viper.SetDefault("WEBHOOK_RATE_LIMIT", "300-M")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	keyHex := viper.GetString("SECRETS_KEY")
	if keyHex == "" {
		if cfg.IsProduction {
			return nil, fmt.Errorf("SECRETS_KEY must be set in production")
		}
		// Deterministic dev-only key so local runs work out of the box.
		keyHex = "6465762d6f6e6c792d696e7365637572652d7365637265742d6b6579212121" + "21"
		log.Println("Warning: SECRETS_KEY not set. Using insecure development key.")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("SECRETS_KEY must be 32 bytes of hex: %w", err)
	}
	cfg.SecretsKey = key

	cfg.PlatformFeeBps = viper.GetInt64("PLATFORM_FEE_BPS")
	if cfg.PlatformFeeBps < 0 {
		log.Printf("Warning: Invalid PLATFORM_FEE_BPS (%d). Defaulting to 100.\n", cfg.PlatformFeeBps)
		cfg.PlatformFeeBps = 100
	}

	timeoutStr := viper.GetString("EXCHANGE_CALL_TIMEOUT")
	cfg.ExchangeCallTimeout, err = time.ParseDuration(timeoutStr)
	if err != nil {
		cfg.ExchangeCallTimeout = 30 * time.Second
		log.Printf("Warning: Invalid value for EXCHANGE_CALL_TIMEOUT ('%s'). Defaulting to %s.\n", timeoutStr, cfg.ExchangeCallTimeout)
	}

	cfg.OrderMaxRetries = viper.GetInt("ORDER_MAX_RETRIES")
	if cfg.OrderMaxRetries < 0 {
		cfg.OrderMaxRetries = 3
	}
	cfg.WithdrawalMaxRetries = viper.GetInt("WITHDRAWAL_MAX_RETRIES")
	if cfg.WithdrawalMaxRetries < 0 {
		cfg.WithdrawalMaxRetries = 5
	}

	cfg.WebhookRateLimit = viper.GetString("WEBHOOK_RATE_LIMIT")

	return cfg, nil
}
