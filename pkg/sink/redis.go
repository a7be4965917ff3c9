package sink

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/catalog-audit/pkg/audit"
	"github.com/Sternrassler/catalog-audit/pkg/catalog"
)

// ErrNoRun is returned by LastRun when no run was stored for the account.
var ErrNoRun = errors.New("no audit run stored")

const keyPrefix = "catalog-audit"

// Key names one Redis key of an account.
type Key struct {
	Account string
	Name    string
}

// String returns the Redis key.
// Format: catalog-audit:{account}:{name}
func (k Key) String() string {
	return keyPrefix + ":" + strings.ToLower(strings.TrimSpace(k.Account)) + ":" + k.Name
}

// RunInfo is the metadata stored next to the id set.
type RunInfo struct {
	RunID        string
	InvalidCount int
	FailedCount  int
	SKUsTotal    int
	FinishedAt   time.Time
}

// RedisSink stores the final id list as a Redis set plus a metadata hash.
// Both keys are replaced in one MULTI/EXEC, so readers never see a mix of
// two runs.
type RedisSink struct {
	redis   *redis.Client
	account string
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewRedisSink creates a Redis sink for account. A ttl of 0 keeps the keys.
func NewRedisSink(redisClient *redis.Client, account string, ttl time.Duration) *RedisSink {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisSink{
		redis:   redisClient,
		account: account,
		ttl:     ttl,
		logger:  log.With().Str("component", "redis-sink").Str("account", account).Logger(),
	}
}

// Dial connects to Redis and checks the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.WithHint(
			errors.Wrapf(err, "connect to redis at %s", addr),
			"check redis.addr or unset it to disable the Redis sink",
		)
	}
	return client, nil
}

func (s *RedisSink) setKey() string { return Key{Account: s.account, Name: "invalid_product_ids"}.String() }
func (s *RedisSink) runKey() string { return Key{Account: s.account, Name: "last_run"}.String() }

func (s *RedisSink) Write(ctx context.Context, report *audit.Report) error {
	return observe("redis", s.write(ctx, report))
}

func (s *RedisSink) write(ctx context.Context, report *audit.Report) error {
	setKey, runKey := s.setKey(), s.runKey()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, setKey, runKey)

		if len(report.InvalidProductIDs) > 0 {
			members := make([]any, len(report.InvalidProductIDs))
			for i, id := range report.InvalidProductIDs {
				members[i] = string(id)
			}
			pipe.SAdd(ctx, setKey, members...)
		}

		pipe.HSet(ctx, runKey,
			"run_id", report.RunID,
			"invalid_count", len(report.InvalidProductIDs),
			"failed_count", len(report.FailedSKUs),
			"skus_total", report.SKUsTotal,
			"finished_at", report.StartedAt.Add(report.Duration).UTC().Format(time.RFC3339),
		)

		if s.ttl > 0 {
			pipe.Expire(ctx, setKey, s.ttl)
			pipe.Expire(ctx, runKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "redis transaction")
	}

	s.logger.Info().
		Str("run_id", report.RunID).
		Str("key", setKey).
		Int("invalid_products", len(report.InvalidProductIDs)).
		Dur("ttl", s.ttl).
		Msg("Report stored in Redis")
	return nil
}

// InvalidProductIDs returns the stored id set, sorted.
func (s *RedisSink) InvalidProductIDs(ctx context.Context) ([]catalog.ProductID, error) {
	members, err := s.redis.SMembers(ctx, s.setKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis smembers")
	}

	ids := make([]catalog.ProductID, len(members))
	for i, m := range members {
		ids[i] = catalog.ProductID(m)
	}
	catalog.SortProductIDs(ids)
	return ids, nil
}

// LastRun returns the metadata of the stored run.
func (s *RedisSink) LastRun(ctx context.Context) (*RunInfo, error) {
	fields, err := s.redis.HGetAll(ctx, s.runKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis hgetall")
	}
	if len(fields) == 0 {
		return nil, ErrNoRun
	}

	info := &RunInfo{RunID: fields["run_id"]}
	info.InvalidCount, _ = strconv.Atoi(fields["invalid_count"])
	info.FailedCount, _ = strconv.Atoi(fields["failed_count"])
	info.SKUsTotal, _ = strconv.Atoi(fields["skus_total"])
	if info.FinishedAt, err = time.Parse(time.RFC3339, fields["finished_at"]); err != nil {
		return nil, errors.Wrap(err, "parse finished_at")
	}
	return info, nil
}
