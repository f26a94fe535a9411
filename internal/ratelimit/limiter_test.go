package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/invoicely/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestDisabledWithoutRedis(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	l, err := New(lc, config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, l)
	assert.False(t, l.Enabled())

	res, err := l.AllowWrite(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRejectsNonPositiveLimits(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	_, err := New(lc, config.Config{RedisAddr: "localhost:6379", RateLimitRPS: 0, RateLimitBurst: 5}, zap.NewNop())
	assert.Error(t, err)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 4*time.Second, bucketTTL(10, 20))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 1))
}

func TestScriptValueConversion(t *testing.T) {
	assert.Equal(t, int64(1), toInt(int64(1)))
	assert.Equal(t, int64(7), toInt("7"))
	assert.Equal(t, 0.5, toFloat("0.5"))
	assert.Equal(t, float64(3), toFloat(int64(3)))
	assert.Equal(t, float64(0), toFloat(nil))
}

func TestTokenBucketAgainstRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	key := "invoicely:test:" + t.Name()
	require.NoError(t, client.Del(ctx, key).Err())

	bucket := NewTokenBucket(client)
	for i := 0; i < 2; i++ {
		res, err := bucket.Allow(ctx, key, 0.1, 2)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := bucket.Allow(ctx, key, 0.1, 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}
