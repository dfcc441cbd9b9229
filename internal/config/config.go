package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration, read from the environment after the
// optional .env file has been loaded.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`
	Port   string `envconfig:"PORT" default:"3000"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBUser      string `envconfig:"DB_USER" default:"postgres"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"stockledger"`
	DBPort      string `envconfig:"DB_PORT" default:"5432"`
	DBTimeZone  string `envconfig:"DB_TIMEZONE" default:"UTC"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	JWTSecret string `envconfig:"JWT_SECRET"`

	// RedisAddr enables Redis-backed stock guards shared across instances.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	Stock StockConfig
}

// StockConfig tunes the stock transaction coordinator and ledger.
type StockConfig struct {
	OperationTimeout   time.Duration `envconfig:"STOCK_OP_TIMEOUT" default:"10s"`
	MaxRetries         uint64        `envconfig:"STOCK_TX_MAX_RETRIES" default:"3"`
	LockTTL            time.Duration `envconfig:"STOCK_LOCK_TTL" default:"15s"`
	ConversionStrategy string        `envconfig:"CONVERSION_STRATEGY" default:"legacy"`
	CreateOnCredit     bool          `envconfig:"STOCK_CREATE_ON_CREDIT" default:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.IsProduction() && cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be provided in production")
	}
	if cfg.Stock.OperationTimeout <= 0 {
		return nil, fmt.Errorf("STOCK_OP_TIMEOUT must be positive, got %s", cfg.Stock.OperationTimeout)
	}
	return &cfg, nil
}

// DSN returns DATABASE_URL, or a DSN assembled from the DB_* variables.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBTimeZone,
	)
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
