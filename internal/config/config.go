package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	ierr "github.com/dinematters/dinematters/internal/errors"
)

// Configuration is the full application configuration, loaded once at
// startup and injected everywhere (never read ad hoc from the environment
// mid-request).
type Configuration struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Razorpay RazorpayConfig `mapstructure:"razorpay"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type PostgresConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_minutes"`
}

// RazorpayConfig carries the site-wide gateway credentials. A restaurant
// may override the webhook secret with its own merchant-level secret.
type RazorpayConfig struct {
	KeyID         string `mapstructure:"key_id" validate:"required"`
	KeySecret     string `mapstructure:"key_secret" validate:"required"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// BillingConfig holds the fee schedule and retry policy. Amounts are in
// minor currency units.
type BillingConfig struct {
	Currency           string  `mapstructure:"currency"`
	FeeRate            float64 `mapstructure:"fee_rate" validate:"gt=0,lt=1"`
	MinFee             int64   `mapstructure:"min_fee" validate:"gt=0"`
	MaxFee             int64   `mapstructure:"max_fee" validate:"gtefield=MinFee"`
	RetryBackoffCapMin int     `mapstructure:"retry_backoff_cap_minutes" validate:"gt=0"`
	MaxRetryCount      int     `mapstructure:"max_retry_count" validate:"gt=0"`
	RetrySweepWorkers  int     `mapstructure:"retry_sweep_workers"`
}

type WebhookConfig struct {
	Topic             string  `mapstructure:"topic"`
	ReclaimAfterMin   int     `mapstructure:"reclaim_after_minutes"`
	RateLimitPerSec   float64 `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst    int     `mapstructure:"rate_limit_burst"`
	DispatchRetries   int     `mapstructure:"dispatch_retries"`
	PublishMaxRetries int     `mapstructure:"publish_max_retries"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type CacheConfig struct {
	Type string `mapstructure:"type"`
}

// NewConfig loads configuration from config files and the environment.
func NewConfig() (*Configuration, error) {
	// Best effort; the file is optional in containerised deployments.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("DINEMATTERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ierr.WithError(err).
				WithHint("Failed to read configuration file").
				Mark(ierr.ErrConfiguration)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to unmarshal configuration").
			Mark(ierr.ErrConfiguration)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 30)
	v.SetDefault("billing.currency", "INR")
	v.SetDefault("billing.fee_rate", 0.01)
	v.SetDefault("billing.min_fee", 99900)
	v.SetDefault("billing.max_fee", 399900)
	v.SetDefault("billing.retry_backoff_cap_minutes", 1440)
	v.SetDefault("billing.max_retry_count", 10)
	v.SetDefault("billing.retry_sweep_workers", 4)
	v.SetDefault("webhook.topic", "webhook_events")
	v.SetDefault("webhook.reclaim_after_minutes", 10)
	v.SetDefault("webhook.rate_limit_per_sec", 50)
	v.SetDefault("webhook.rate_limit_burst", 100)
	v.SetDefault("webhook.dispatch_retries", 3)
	v.SetDefault("webhook.publish_max_retries", 3)
	v.SetDefault("sentry.sample_rate", 1.0)
	v.SetDefault("cache.type", "inmemory")
}

// Validate checks the configuration with struct tags plus the invariants
// validator cannot express.
func (c *Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid configuration").
			Mark(ierr.ErrConfiguration)
	}
	return nil
}

// GetDefaultConfig returns a config suitable for scripts and tests. The
// gateway credentials are placeholders; anything touching the real gateway
// must load a full configuration.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Server:  ServerConfig{Address: ":8080"},
		Logging: LoggingConfig{Level: "debug"},
		Razorpay: RazorpayConfig{
			KeyID:         "rzp_test_key",
			KeySecret:     "rzp_test_secret",
			WebhookSecret: "whsec_test",
		},
		Billing: BillingConfig{
			Currency:           "INR",
			FeeRate:            0.01,
			MinFee:             99900,
			MaxFee:             399900,
			RetryBackoffCapMin: 1440,
			MaxRetryCount:      10,
			RetrySweepWorkers:  4,
		},
		Webhook: WebhookConfig{
			Topic:             "webhook_events",
			ReclaimAfterMin:   10,
			RateLimitPerSec:   50,
			RateLimitBurst:    100,
			DispatchRetries:   3,
			PublishMaxRetries: 3,
		},
		Cache: CacheConfig{Type: "inmemory"},
	}
}
