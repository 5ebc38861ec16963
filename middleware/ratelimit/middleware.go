package ratelimit

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"go.uber.org/zap"
)

const (
	OutcomeAllowed      = "allowed"
	OutcomeDenied       = "denied"
	OutcomeFailedOpen   = "store_error_open"
	OutcomeFailedClosed = "store_error_closed"
)

// Recorder receives one observation per limiter decision.
type Recorder interface {
	ObserveRateLimit(scope, outcome string)
}

type Config struct {
	Limiter Limiter
	// Namespace separates services sharing one store, e.g. a gateway and
	// the identity service behind it.
	Namespace      string
	Scope          string
	FailureMode    config.FailureMode
	Timeout        time.Duration
	Skipper        func(c echo.Context) bool
	KeyGenerator   func(c echo.Context) string
	OnLimitReached func(c echo.Context) error
	Logger         *logging.Service
	Recorder       Recorder
}

// Middleware rejects requests over the limiter's budget before they reach
// any handler. Counter state is never exposed in the response.
func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = &FixedWindow{Max: 100, Window: 15 * time.Minute, Store: NewMemoryStore()}
	}

	if cfg.Scope == "" {
		cfg.Scope = "global"
	}

	if cfg.FailureMode == "" {
		cfg.FailureMode = config.FailOpen
	}

	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = DefaultKeyGenerator
	}

	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			key := cfg.Scope + ":" + cfg.KeyGenerator(c)
			if cfg.Namespace != "" {
				key = cfg.Namespace + ":" + key
			}

			ctx := c.Request().Context()
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
			}

			decision, err := cfg.Limiter.Allow(ctx, key)
			if err != nil {
				if cfg.FailureMode == config.FailClosed {
					cfg.Logger.Error("rate limit store failed, rejecting request",
						zap.String("scope", cfg.Scope),
						zap.Error(err))
					cfg.observe(OutcomeFailedClosed)
					return cfg.OnLimitReached(c)
				}

				cfg.Logger.Warn("rate limit store failed, admitting request",
					zap.String("scope", cfg.Scope),
					zap.Error(err))
				cfg.observe(OutcomeFailedOpen)
				return next(c)
			}

			if !decision.Allowed {
				cfg.Logger.Debug("rate limit exceeded",
					zap.String("scope", cfg.Scope),
					zap.String("ip", c.RealIP()))
				cfg.observe(OutcomeDenied)
				return cfg.OnLimitReached(c)
			}

			cfg.observe(OutcomeAllowed)
			return next(c)
		}
	}
}

func (cfg *Config) observe(outcome string) {
	if cfg.Recorder != nil {
		cfg.Recorder.ObserveRateLimit(cfg.Scope, outcome)
	}
}

func DefaultKeyGenerator(c echo.Context) string {
	realIP := c.RealIP()

	if realIP == "" || realIP == "unknown" {
		realIP = "fallback"
	}

	return realIP
}

func DefaultOnLimitReached(c echo.Context) error {
	return c.JSON(http.StatusTooManyRequests, map[string]any{
		"success": false,
		"message": "Too many requests",
	})
}
