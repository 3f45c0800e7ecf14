// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package token

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	xglog "github.com/ManuGH/inqwatch/internal/log"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultRedisPollInterval = 2 * time.Second

// RedisConfig holds Redis connection configuration for the shared token store.
type RedisConfig struct {
	Addr     string        // Redis server address (host:port)
	Password string        // Redis password (optional)
	DB       int           // Redis database number
	Key      string        // key holding the bearer token
	Interval time.Duration // poll interval
}

// RedisProvider mirrors a token kept under a Redis key by another service.
type RedisProvider struct {
	client   redis.UniversalClient
	key      string
	interval time.Duration
	value    atomic.Pointer[string]
	now      func() time.Time
	logger   zerolog.Logger
}

// NewRedisProvider connects to Redis and performs an initial read.
func NewRedisProvider(ctx context.Context, cfg RedisConfig) (*RedisProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	p := newRedisProvider(client, cfg.Key, cfg.Interval)
	if err := p.Refresh(ctx); err != nil {
		p.logger.Warn().Err(err).Str(xglog.FieldEvent, "token.redis_refresh_failed").Msg("initial token read failed")
	}

	p.logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Str("key", cfg.Key).
		Msg("connected to Redis token store")
	return p, nil
}

func newRedisProvider(client redis.UniversalClient, key string, interval time.Duration) *RedisProvider {
	if interval <= 0 {
		interval = defaultRedisPollInterval
	}
	return &RedisProvider{
		client:   client,
		key:      key,
		interval: interval,
		now:      time.Now,
		logger:   xglog.WithComponent("token"),
	}
}

// Token implements Provider.
func (p *RedisProvider) Token() (string, bool) {
	v := p.value.Load()
	if v == nil {
		return "", false
	}
	return usable(*v, p.now())
}

// Refresh reads the key once. A missing key clears the cached token.
func (p *RedisProvider) Refresh(ctx context.Context) error {
	getCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	val, err := p.client.Get(getCtx, p.key).Result()
	if errors.Is(err, redis.Nil) {
		p.value.Store(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis get %q: %w", p.key, err)
	}
	p.value.Store(&val)
	return nil
}

// Run refreshes the cached token every interval until ctx is done. Read
// failures keep the last known token.
func (p *RedisProvider) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn().
					Err(err).
					Str(xglog.FieldEvent, "token.redis_refresh_failed").
					Msg("token refresh failed, keeping last value")
			}
		}
	}
}

// Ping checks that the token store is reachable.
func (p *RedisProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (p *RedisProvider) Close() error {
	return p.client.Close()
}
