package redisclient

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"go.uber.org/zap"
)

// New builds a client for the shared counter store from a redis:// URL.
// It does not dial; connectivity is checked by Ping.
func New(cfg config.RedisConfig) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	return redis.NewClient(opts), nil
}

// Ping reports whether the store answered within ctx. Failure is logged but
// not fatal: the rate limiter applies its configured failure policy instead.
func Ping(ctx context.Context, client redis.UniversalClient, logger *logging.Service) error {
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup; rate limiter will apply its failure policy", zap.Error(err))
		return err
	}
	logger.Info("redis connected")
	return nil
}
