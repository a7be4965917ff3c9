// Package config loads the audit configuration from defaults, an optional
// config file, CATALOG_AUDIT_* environment variables and command-line flags.
package config

import (
	"time"

	"github.com/Sternrassler/catalog-audit/pkg/audit"
	"github.com/Sternrassler/catalog-audit/pkg/client"
	"github.com/Sternrassler/catalog-audit/pkg/logging"
	"github.com/Sternrassler/catalog-audit/pkg/pagination"
)

// Config is the complete audit configuration.
type Config struct {
	Account  string `mapstructure:"account"`
	AppKey   string `mapstructure:"app_key"`
	AppToken string `mapstructure:"app_token"`

	// BaseURL overrides the account-derived API host.
	BaseURL string `mapstructure:"base_url"`

	Output      string `mapstructure:"output"`
	PageSize    int    `mapstructure:"page_size"`
	BatchSize   int    `mapstructure:"batch_size"`
	Concurrency int    `mapstructure:"concurrency"`
	OnFailure   string `mapstructure:"on_failure"`

	Retry   RetryConfig   `mapstructure:"retry"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// RetryConfig configures per-request retries.
type RetryConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	RetryClientErrors bool          `mapstructure:"retry_client_errors"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// RedisConfig enables the Redis sink when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ClientConfig returns the catalog client configuration.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.Account, c.AppKey, c.AppToken)
	cfg.BaseURL = c.BaseURL
	cfg.Timeout = c.HTTP.Timeout
	cfg.Retry.MaxAttempts = c.Retry.MaxAttempts
	cfg.Retry.InitialBackoff = c.Retry.InitialBackoff
	cfg.Retry.MaxBackoff = c.Retry.MaxBackoff
	cfg.Retry.RetryClientErrors = c.Retry.RetryClientErrors
	return cfg
}

// PaginationConfig returns the paginator configuration.
func (c *Config) PaginationConfig() pagination.Config {
	cfg := pagination.DefaultConfig()
	cfg.PageSize = c.PageSize
	return cfg
}

// AuditConfig returns the orchestrator configuration. Call Validate first;
// an unknown failure policy falls back to skip.
func (c *Config) AuditConfig() audit.Config {
	policy, err := audit.ParseFailurePolicy(c.OnFailure)
	if err != nil {
		policy = audit.FailureSkip
	}
	return audit.Config{
		BatchSize:   c.BatchSize,
		Concurrency: c.Concurrency,
		OnFailure:   policy,
	}
}

// LoggingConfig returns the logger configuration.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}
