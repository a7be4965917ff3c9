package config

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/Sternrassler/catalog-audit/pkg/audit"
	"github.com/Sternrassler/catalog-audit/pkg/client"
	"github.com/Sternrassler/catalog-audit/pkg/logging"
)

// ErrMissingCredentials is the client's sentinel, so errors.Is matches
// whichever layer detected the gap.
var ErrMissingCredentials = client.ErrMissingCredentials

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Account) == "" {
		missing = append(missing, "account")
	}
	if strings.TrimSpace(c.AppKey) == "" {
		missing = append(missing, "app-key")
	}
	if strings.TrimSpace(c.AppToken) == "" {
		missing = append(missing, "app-token")
	}
	if len(missing) > 0 {
		err := errors.Wrapf(ErrMissingCredentials, "missing %s", strings.Join(missing, ", "))
		return errors.WithHint(err,
			"usage: catalog-audit <account> <app-key> <app-token>, or set "+
				EnvPrefix+"_ACCOUNT, "+EnvPrefix+"_APP_KEY and "+EnvPrefix+"_APP_TOKEN")
	}

	if c.PageSize <= 0 {
		return errors.Newf("page_size must be > 0, got %d", c.PageSize)
	}
	if c.BatchSize <= 0 {
		return errors.Newf("batch_size must be > 0, got %d", c.BatchSize)
	}
	if c.Concurrency <= 0 {
		return errors.Newf("concurrency must be > 0, got %d", c.Concurrency)
	}
	if _, err := audit.ParseFailurePolicy(c.OnFailure); err != nil {
		return errors.Wrap(err, "on_failure")
	}

	if c.Retry.MaxAttempts <= 0 {
		return errors.Newf("retry.max_attempts must be > 0, got %d", c.Retry.MaxAttempts)
	}
	// 0 retries immediately
	if c.Retry.InitialBackoff < 0 {
		return errors.Newf("retry.initial_backoff must be >= 0, got %s", c.Retry.InitialBackoff)
	}
	if c.Retry.MaxBackoff < c.Retry.InitialBackoff {
		return errors.Newf("retry.max_backoff (%s) must be >= retry.initial_backoff (%s)",
			c.Retry.MaxBackoff, c.Retry.InitialBackoff)
	}
	if c.HTTP.Timeout <= 0 {
		return errors.Newf("http.timeout must be > 0, got %s", c.HTTP.Timeout)
	}

	if !logging.ValidLevel(c.Log.Level) {
		return errors.Newf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	if c.Redis.DB < 0 {
		return errors.Newf("redis.db must be >= 0, got %d", c.Redis.DB)
	}
	if c.Redis.TTL < 0 {
		return errors.Newf("redis.ttl must be >= 0, got %s", c.Redis.TTL)
	}

	return nil
}
