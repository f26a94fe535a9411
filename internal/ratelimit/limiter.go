package ratelimit

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/invoicely/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyWrite = "invoicely:write:%s"

// Limiter throttles writes per client. A nil *Limiter allows everything.
type Limiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// New returns nil when REDIS_ADDR is unset, which disables rate limiting.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*Limiter, error) {
	if cfg.RedisAddr == "" {
		log.Info("rate limiting disabled, REDIS_ADDR not set")
		return nil, nil
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return nil, errors.New("rate limit rps and burst must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return NewLimiter(client, cfg.RateLimitRPS, cfg.RateLimitBurst), nil
}

func NewLimiter(client redis.Scripter, rate float64, burst int) *Limiter {
	return &Limiter{
		bucket: NewTokenBucket(client),
		rate:   rate,
		burst:  burst,
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowWrite takes one write token for client.
func (l *Limiter) AllowWrite(ctx context.Context, client string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyWrite, client), l.rate, l.burst)
}
