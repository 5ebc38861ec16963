package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Limiters holds the two middleware chains every service installs.
type Limiters struct {
	Global    echo.MiddlewareFunc
	Sensitive echo.MiddlewareFunc
}

// Stores groups the backends a limiter can be built on. MemoryStore and
// RedisStore both satisfy CounterStore and BucketStore.
type Stores interface {
	CounterStore
	BucketStore
}

func NewStore(cfg *config.RateLimitConfig, client redis.UniversalClient) (Stores, error) {
	switch cfg.Store {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("rate limit store %q requires a redis client", cfg.Store)
		}
		return NewRedisStore(client, cfg.KeyPrefix), nil
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown rate limit store %q", cfg.Store)
	}
}

// NewGlobalLimiter builds the limiter selected by RATE_LIMIT_STRATEGY.
func NewGlobalLimiter(cfg *config.RateLimitConfig, store Stores) Limiter {
	if cfg.Strategy == config.StrategyPoints {
		return &PointsBucket{
			Budget:   cfg.Points,
			Cost:     cfg.PointsCost,
			Duration: cfg.PointsDuration,
			Store:    store,
		}
	}
	return &FixedWindow{Max: cfg.Max, Window: cfg.Window, Store: store}
}

// NewSensitiveLimiter is always a fixed window with the tighter budget.
func NewSensitiveLimiter(cfg *config.RateLimitConfig, store Stores) Limiter {
	return &FixedWindow{Max: cfg.SensitiveMax, Window: cfg.SensitiveWindow, Store: store}
}

var sensitivePath = regexp.MustCompile(`^(/api/auth|/v[0-9]+/auth)/register/?$`)

// IsSensitive reports whether a request targets an endpoint guarded by the
// sensitive limiter.
func IsSensitive(c echo.Context) bool {
	return c.Request().Method == http.MethodPost && sensitivePath.MatchString(c.Request().URL.Path)
}

// Namespace prefixes every counter key with the name of the service that
// owns it.
type Namespace string

type LimitersParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *logging.Service
	Namespace Namespace             `optional:"true"`
	Redis     redis.UniversalClient `optional:"true"`
	Recorder  Recorder              `optional:"true"`
}

func ProvideLimiters(p LimitersParams) (*Limiters, error) {
	return NewLimiters(p.Lifecycle, &p.Config.RateLimit, string(p.Namespace), p.Redis, p.Logger.Named("ratelimit"), p.Recorder)
}

func NewLimiters(lc fx.Lifecycle, cfg *config.RateLimitConfig, namespace string, client redis.UniversalClient, logger *logging.Service, recorder Recorder) (*Limiters, error) {
	if !cfg.Enabled {
		passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
		return &Limiters{Global: passthrough, Sensitive: passthrough}, nil
	}

	store, err := NewStore(cfg, client)
	if err != nil {
		return nil, err
	}

	if memory, ok := store.(*MemoryStore); ok && lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return memory.Close() },
		})
	}

	logger.Info("rate limiting enabled",
		zap.String("namespace", namespace),
		zap.String("store", cfg.Store),
		zap.String("strategy", string(cfg.Strategy)))

	return &Limiters{
		Global: Middleware(&Config{
			Limiter:     NewGlobalLimiter(cfg, store),
			Namespace:   namespace,
			Scope:       "global",
			FailureMode: cfg.FailureMode,
			Timeout:     cfg.StoreTimeout,
			Logger:      logger,
			Recorder:    recorder,
		}),
		Sensitive: Middleware(&Config{
			Limiter:     NewSensitiveLimiter(cfg, store),
			Namespace:   namespace,
			Scope:       "sensitive",
			FailureMode: cfg.SensitiveFailureMode,
			Timeout:     cfg.StoreTimeout,
			Skipper:     func(c echo.Context) bool { return !IsSensitive(c) },
			Logger:      logger,
			Recorder:    recorder,
		}),
	}, nil
}

var Module = fx.Options(
	fx.Provide(ProvideLimiters),
)
