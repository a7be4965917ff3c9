package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/catalog-audit/pkg/audit"
	"github.com/Sternrassler/catalog-audit/pkg/client"
)

func validConfig(t *testing.T) *Config {
	t.Helper()

	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	cfg.Account = "mystore"
	cfg.AppKey = "key"
	cfg.AppToken = "token"
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	// Create isolated viper instance without environment binding
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, "invalid-product-ids.txt", cfg.Output)
	assert.Equal(t, 500, cfg.PageSize)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, 50, cfg.Concurrency)
	assert.Equal(t, "skip", cfg.OnFailure)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Retry.InitialBackoff)
	assert.Equal(t, 5*time.Second, cfg.Retry.MaxBackoff)
	assert.False(t, cfg.Retry.RetryClientErrors)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CATALOG_AUDIT_ACCOUNT", "envstore")
	t.Setenv("CATALOG_AUDIT_APP_KEY", "env-key")
	t.Setenv("CATALOG_AUDIT_APP_TOKEN", "env-token")
	t.Setenv("CATALOG_AUDIT_CONCURRENCY", "8")
	t.Setenv("CATALOG_AUDIT_RETRY_INITIAL_BACKOFF", "50ms")
	t.Setenv("CATALOG_AUDIT_REDIS_ADDR", "localhost:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "envstore", cfg.Account)
	assert.Equal(t, "env-key", cfg.AppKey)
	assert.Equal(t, "env-token", cfg.AppToken)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 50*time.Millisecond, cfg.Retry.InitialBackoff)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.yaml")
	content := `
account: filestore
app_key: file-key
app_token: file-token
batch_size: 250
on_failure: abort
retry:
  max_attempts: 5
  max_backoff: 10s
redis:
  addr: redis:6379
  ttl: 24h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "filestore", cfg.Account)
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, 50, cfg.Concurrency)
	assert.Equal(t, "abort", cfg.OnFailure)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Retry.InitialBackoff)
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxBackoff)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account: filestore\napp_key: k\napp_token: t\n"), 0o644))
	t.Setenv("CATALOG_AUDIT_ACCOUNT", "envstore")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "envstore", cfg.Account)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_MissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		missing string
	}{
		{"account", func(c *Config) { c.Account = "" }, "account"},
		{"app key", func(c *Config) { c.AppKey = " " }, "app-key"},
		{"app token", func(c *Config) { c.AppToken = "" }, "app-token"},
		{"all", func(c *Config) { *c = Config{} }, "account, app-key, app-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingCredentials))
			assert.True(t, errors.Is(err, client.ErrMissingCredentials))
			assert.Contains(t, err.Error(), tt.missing)
			assert.NotEmpty(t, errors.GetAllHints(err))
		})
	}
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, true},
		{"negative batch size", func(c *Config) { c.BatchSize = -1 }, true},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, true},
		{"concurrency above batch size is valid", func(c *Config) { c.Concurrency = 5000 }, false},
		{"unknown failure policy", func(c *Config) { c.OnFailure = "retry" }, true},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, true},
		{"zero initial backoff is valid", func(c *Config) { c.Retry.InitialBackoff = 0 }, false},
		{"max below initial backoff", func(c *Config) { c.Retry.MaxBackoff = time.Millisecond }, true},
		{"zero http timeout", func(c *Config) { c.HTTP.Timeout = 0 }, true},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }, true},
		{"negative redis db", func(c *Config) { c.Redis.DB = -1 }, true},
		{"negative redis ttl", func(c *Config) { c.Redis.TTL = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Conversions(t *testing.T) {
	cfg := validConfig(t)
	cfg.BaseURL = "http://localhost:8080"
	cfg.OnFailure = "abort"
	cfg.Retry.RetryClientErrors = true
	cfg.Log.Level = "debug"
	cfg.Log.Pretty = false

	cc := cfg.ClientConfig()
	assert.Equal(t, "mystore", cc.Account)
	assert.Equal(t, "http://localhost:8080", cc.BaseURL)
	assert.Equal(t, 3, cc.Retry.MaxAttempts)
	assert.Equal(t, 2.0, cc.Retry.BackoffMultiplier)
	assert.True(t, cc.Retry.RetryClientErrors)

	assert.Equal(t, 500, cfg.PaginationConfig().PageSize)

	ac := cfg.AuditConfig()
	assert.Equal(t, audit.FailureAbort, ac.OnFailure)
	assert.Equal(t, 1000, ac.BatchSize)
	assert.Equal(t, 50, ac.Concurrency)

	lc := cfg.LoggingConfig()
	assert.Equal(t, "debug", string(lc.Level))
	assert.False(t, lc.Pretty)
}
