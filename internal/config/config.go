// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

// Config holds every setting the api and worker binaries read.
type Config struct {
	Port     string
	RunLocal bool

	XenditSecret    string
	XenditBaseURL   string
	GatewayTimeout  time.Duration
	WebhookToken    string
	DebugWebhookURL string

	StoreBackend      string
	TransactionsTable string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisPrefix       string

	EventsQueueURL   string
	MetricsNamespace string

	LogLevel  string
	LogFormat string
}

// ErrMissingSecret is returned when a required secret is not set.
var ErrMissingSecret = errors.New("required secret not set")

var keys = []string{
	"port", "run_local",
	"xendit_secret", "xendit_base_url", "gateway_timeout",
	"webhook_token", "debug_webhook_url",
	"store_backend", "transactions_table",
	"redis_addr", "redis_password", "redis_db", "redis_prefix",
	"events_queue_url", "metrics_namespace",
	"log_level", "log_format",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	v.SetDefault("port", "8080")
	v.SetDefault("xendit_base_url", "https://api.xendit.co")
	v.SetDefault("gateway_timeout", "15s")
	v.SetDefault("store_backend", BackendMemory)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_prefix", "qris:")
	v.SetDefault("metrics_namespace", "QRISPayflow")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	return v
}

// Load reads the API configuration. Secrets have no defaults: an empty
// XENDIT_SECRET or WEBHOOK_TOKEN fails startup.
func Load() (*Config, error) {
	cfg := read(newViper())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker reads the configuration for the queue worker, which never
// talks to Xendit and so needs no secrets.
func LoadWorker() *Config {
	return read(newViper())
}

func read(v *viper.Viper) *Config {
	return &Config{
		Port:              v.GetString("port"),
		RunLocal:          v.GetBool("run_local"),
		XenditSecret:      v.GetString("xendit_secret"),
		XenditBaseURL:     v.GetString("xendit_base_url"),
		GatewayTimeout:    v.GetDuration("gateway_timeout"),
		WebhookToken:      v.GetString("webhook_token"),
		DebugWebhookURL:   v.GetString("debug_webhook_url"),
		StoreBackend:      strings.ToLower(v.GetString("store_backend")),
		TransactionsTable: v.GetString("transactions_table"),
		RedisAddr:         v.GetString("redis_addr"),
		RedisPassword:     v.GetString("redis_password"),
		RedisDB:           v.GetInt("redis_db"),
		RedisPrefix:       v.GetString("redis_prefix"),
		EventsQueueURL:    v.GetString("events_queue_url"),
		MetricsNamespace:  v.GetString("metrics_namespace"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
	}
}

// Validate checks required settings and backend-specific options.
func (c *Config) Validate() error {
	if c.XenditSecret == "" {
		return fmt.Errorf("XENDIT_SECRET: %w", ErrMissingSecret)
	}
	if c.WebhookToken == "" {
		return fmt.Errorf("WEBHOOK_TOKEN: %w", ErrMissingSecret)
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive, got %s", c.GatewayTimeout)
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendDynamoDB:
		if c.TransactionsTable == "" {
			return errors.New("TRANSACTIONS_TABLE is required for the dynamodb store")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}
