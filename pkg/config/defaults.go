package config

import (
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. CATALOG_AUDIT_APP_KEY.
const EnvPrefix = "CATALOG_AUDIT"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Credentials have no defaults; registering them lets AutomaticEnv see them
	v.SetDefault("account", "")
	v.SetDefault("app_key", "")
	v.SetDefault("app_token", "")
	v.SetDefault("base_url", "")

	v.SetDefault("output", "invalid-product-ids.txt")
	v.SetDefault("page_size", 500)
	v.SetDefault("batch_size", 1000)
	v.SetDefault("concurrency", 50)
	v.SetDefault("on_failure", "skip")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff", 200*time.Millisecond)
	v.SetDefault("retry.max_backoff", 5*time.Second)
	v.SetDefault("retry.retry_client_errors", false)

	v.SetDefault("http.timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	// Redis sink is disabled without an address
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", time.Duration(0))

	v.SetDefault("metrics.addr", "")
}

// BindSensitiveEnvVars explicitly binds credentials to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("app_key", EnvPrefix+"_APP_KEY")
	v.BindEnv("app_token", EnvPrefix+"_APP_TOKEN")
	v.BindEnv("redis.password", EnvPrefix+"_REDIS_PASSWORD")
}
