//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookiegate/internal/platform/config"
	"cookiegate/internal/platform/redis"
	"cookiegate/pkg/testutil/containers"
)

func TestClientAgainstContainer(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()

	client, err := redis.New(ctx, config.RedisConfig{URL: rc.URL, PoolSize: 4, DialTimeout: 5 * time.Second})
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	require.NoError(t, client.Health(ctx))
	require.NoError(t, client.Set(ctx, "cookiegate:probe", "1", time.Minute).Err())

	client.RecordPoolStats()
	client.RecordPoolStats()
	assert.GreaterOrEqual(t, client.PoolStats().TotalConns, uint32(1))
}

func TestNewWithoutURL(t *testing.T) {
	client, err := redis.New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}
