package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/shelf-booking/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getTestClient connects to TEST_REDIS_HOST or skips the test
func getTestClient(t *testing.T) *Client {
	t.Helper()

	host := os.Getenv("TEST_REDIS_HOST")
	if host == "" {
		t.Skip("TEST_REDIS_HOST not set, skipping redis integration test")
	}

	cfg := DefaultConfig()
	cfg.Host = host
	cfg.Password = os.Getenv("TEST_REDIS_PASSWORD")
	cfg.Retry = retry.Config{Attempts: 1}

	client, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6379, cfg.Port)
	assert.Equal(t, 50, cfg.PoolSize)
}

func TestConfig_Addr(t *testing.T) {
	cfg := &Config{Host: "redis.example.com", Port: 6380}
	assert.Equal(t, "redis.example.com:6380", cfg.Addr())
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := &Config{
		Host:        "127.0.0.1",
		Port:        1,
		DialTimeout: 200 * time.Millisecond,
		Retry:       retry.Config{Attempts: 2, Initial: 10 * time.Millisecond},
	}

	client, err := NewClient(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, client)
}

func TestClient_SetGetIncr(t *testing.T) {
	client := getTestClient(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, key, key+":n") })

	require.NoError(t, client.Set(ctx, key, "v1", time.Minute))
	val, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v1", val)

	ok, err := client.SetNX(ctx, key, "v2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := client.Incr(ctx, key+":n")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	assert.True(t, errors.Is(err, Nil))
}
