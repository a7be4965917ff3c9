//go:build integration

package sink

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/catalog-audit/internal/testutil"
	"github.com/Sternrassler/catalog-audit/pkg/audit"
	"github.com/Sternrassler/catalog-audit/pkg/catalog"
	"github.com/Sternrassler/catalog-audit/pkg/client"
	"github.com/Sternrassler/catalog-audit/pkg/pagination"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	redisClient, err := Dial(ctx, endpoint, "", 0)
	if err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	t.Cleanup(func() {
		redisClient.Close()
		container.Terminate(ctx)
	})

	return redisClient
}

func TestRedisSink_Integration_AuditRun(t *testing.T) {
	redisClient := setupRedis(t)
	ctx := context.Background()

	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetPages([]any{1, 2, 3}, []any{4, 5})
	mock.SetDetailJSON("1", `{"Id":1,"ProductId":10,"ProductRefId":"A"}`)
	mock.SetDetailJSON("2", `{"Id":2,"ProductId":20,"ProductRefId":""}`)
	mock.SetDetail("3", testutil.NewServerErrorResponse())
	mock.SetDetailJSON("4", `{"Id":4,"ProductId":20,"ProductRefId":null}`)
	mock.SetDetailJSON("5", `{"Id":5,"ProductId":50}`)

	cfg := client.DefaultConfig("teststore", "key", "token")
	cfg.BaseURL = mock.URL()
	cfg.Retry = client.RetryConfig{MaxAttempts: 3}
	c, err := client.New(cfg)
	require.NoError(t, err)

	auditor := audit.NewAuditor(
		pagination.NewPaginator(c, pagination.DefaultConfig(), nil),
		audit.NewOrchestrator(c, audit.DefaultConfig(), nil),
	)
	report, err := auditor.Run(ctx)
	require.NoError(t, err)

	s := NewRedisSink(redisClient, "teststore", 10*time.Minute)
	require.NoError(t, s.Write(ctx, report))

	ids, err := s.InvalidProductIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.ProductID{"20", "50"}, ids)

	info, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, info.RunID)
	assert.Equal(t, 1, info.FailedCount)
	assert.Equal(t, 5, info.SKUsTotal)

	ttl, err := redisClient.TTL(ctx, Key{Account: "teststore", Name: "invalid_product_ids"}.String()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 9*time.Minute)
}
