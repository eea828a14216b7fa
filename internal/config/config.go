// Package config содержит логику чтения конфигурации сервиса продуктового магазина.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`

	NearExpiryDays            int             `env:"NEAR_EXPIRY_DAYS" envDefault:"7"`
	NearExpiryDiscountPercent decimal.Decimal `env:"NEAR_EXPIRY_DISCOUNT_PERCENT" envDefault:"20"`
	NearExpirySchedule        string          `env:"NEAR_EXPIRY_SCHEDULE" envDefault:"0 0 * * *"`
	NearExpirySweepOnStart    bool            `env:"NEAR_EXPIRY_SWEEP_ON_START" envDefault:"true"`

	RazorpayKeyID         string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string `env:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string `env:"RAZORPAY_WEBHOOK_SECRET"`
	RazorpayAPIURL        string `env:"RAZORPAY_API_URL" envDefault:"https://api.razorpay.com"`

	MerchantVPA  string `env:"MERCHANT_VPA" envDefault:"merchant@upi"`
	MerchantName string `env:"MERCHANT_NAME" envDefault:"Merchant"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	NotifyQueue   string `env:"NOTIFY_QUEUE" envDefault:"notifications"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for signing auth tokens")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.NearExpiryDays < 0 {
		return fmt.Errorf("NEAR_EXPIRY_DAYS must not be negative, got %d", c.NearExpiryDays)
	}

	if !c.NearExpiryDiscountPercent.IsPositive() || c.NearExpiryDiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("NEAR_EXPIRY_DISCOUNT_PERCENT must be in (0, 100], got %s", c.NearExpiryDiscountPercent)
	}

	if _, err := cron.ParseStandard(c.NearExpirySchedule); err != nil {
		return fmt.Errorf("NEAR_EXPIRY_SCHEDULE: %w", err)
	}

	return nil
}
