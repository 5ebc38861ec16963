package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"github.com/tech-arch1tect/authrelay/testutils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recorderStub struct {
	mu       sync.Mutex
	outcomes map[string][]string
}

func (r *recorderStub) ObserveRateLimit(scope, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string][]string{}
	}
	r.outcomes[scope] = append(r.outcomes[scope], outcome)
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func serve(e *echo.Echo, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":41234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_DeniesAfterLimit(t *testing.T) {
	recorder := &recorderStub{}
	e := echo.New()
	e.Use(Middleware(&Config{
		Limiter:  &FixedWindow{Max: 2, Window: time.Minute, Store: newMemoryStore(time.Now, 0)},
		Recorder: recorder,
	}))
	e.GET("/", okHandler)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/", "203.0.113.5").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/", "203.0.113.5").Code)

	rec := serve(e, http.MethodGet, "/", "203.0.113.5")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Too many requests"}`, rec.Body.String())

	for header := range rec.Header() {
		assert.NotContains(t, header, "Ratelimit", "counter state must not leak")
	}
	assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))
	assert.Empty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/", "203.0.113.6").Code)
	assert.Equal(t, []string{OutcomeAllowed, OutcomeAllowed, OutcomeDenied, OutcomeAllowed}, recorder.outcomes["global"])
}

func TestMiddleware_DeniedRequestNeverReachesHandler(t *testing.T) {
	calls := 0
	e := echo.New()
	e.Use(Middleware(&Config{
		Limiter: &FixedWindow{Max: 1, Window: time.Minute, Store: newMemoryStore(time.Now, 0)},
	}))
	e.POST("/api/auth/register", func(c echo.Context) error {
		calls++
		return c.NoContent(http.StatusCreated)
	})

	serve(e, http.MethodPost, "/api/auth/register", "203.0.113.5")
	serve(e, http.MethodPost, "/api/auth/register", "203.0.113.5")

	assert.Equal(t, 1, calls)
}

func TestMiddleware_KeyIncludesScope(t *testing.T) {
	mr, client := testutils.SetupTestRedis(t)
	e := echo.New()
	e.Use(Middleware(&Config{
		Limiter: &FixedWindow{Max: 5, Window: time.Minute, Store: NewRedisStore(client, "rl:")},
		Scope:   "sensitive",
	}))
	e.GET("/", okHandler)

	serve(e, http.MethodGet, "/", "198.51.100.23")

	assert.True(t, mr.Exists("rl:sensitive:198.51.100.23"))
}

func TestMiddleware_KeyIncludesNamespace(t *testing.T) {
	mr, client := testutils.SetupTestRedis(t)
	store := NewRedisStore(client, "rl:")

	e := echo.New()
	e.Use(Middleware(&Config{
		Limiter:   &FixedWindow{Max: 1, Window: time.Minute, Store: store},
		Namespace: "gateway",
	}))
	e.GET("/", okHandler)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/", "198.51.100.23").Code)
	assert.True(t, mr.Exists("rl:gateway:global:198.51.100.23"))

	other := echo.New()
	other.Use(Middleware(&Config{
		Limiter:   &FixedWindow{Max: 1, Window: time.Minute, Store: store},
		Namespace: "identity",
	}))
	other.GET("/", okHandler)

	assert.Equal(t, http.StatusOK, serve(other, http.MethodGet, "/", "198.51.100.23").Code,
		"a second service sharing the store keeps its own budget")
}

func TestMiddleware_FailurePolicy(t *testing.T) {
	limiter := &FixedWindow{Max: 1, Window: time.Minute, Store: failingStore{}}

	t.Run("fail open admits and warns", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		recorder := &recorderStub{}
		e := echo.New()
		e.Use(Middleware(&Config{
			Limiter:     limiter,
			FailureMode: config.FailOpen,
			Logger:      logging.FromZap(zap.New(core)),
			Recorder:    recorder,
		}))
		e.GET("/", okHandler)

		rec := serve(e, http.MethodGet, "/", "203.0.113.5")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
		assert.Equal(t, []string{OutcomeFailedOpen}, recorder.outcomes["global"])
	})

	t.Run("fail closed rejects with the same body", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		e := echo.New()
		e.Use(Middleware(&Config{
			Limiter:     limiter,
			FailureMode: config.FailClosed,
			Logger:      logging.FromZap(zap.New(core)),
		}))
		e.GET("/", okHandler)

		rec := serve(e, http.MethodGet, "/", "203.0.113.5")

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.JSONEq(t, `{"success":false,"message":"Too many requests"}`, rec.Body.String())
		assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	})

	t.Run("dead redis with fail open", func(t *testing.T) {
		mr, client := testutils.SetupTestRedis(t)
		mr.Close()

		e := echo.New()
		e.Use(Middleware(&Config{
			Limiter:     &FixedWindow{Max: 1, Window: time.Minute, Store: NewRedisStore(client, "rl:")},
			FailureMode: config.FailOpen,
			Timeout:     100 * time.Millisecond,
		}))
		e.GET("/", okHandler)

		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/", "203.0.113.5").Code)
	})
}

type slowLimiter struct{}

func (slowLimiter) Allow(ctx context.Context, _ string) (Decision, error) {
	<-ctx.Done()
	return Decision{}, ctx.Err()
}

func TestMiddleware_StoreTimeout(t *testing.T) {
	e := echo.New()
	e.Use(Middleware(&Config{
		Limiter:     slowLimiter{},
		FailureMode: config.FailClosed,
		Timeout:     20 * time.Millisecond,
	}))
	e.GET("/", okHandler)

	start := time.Now()
	rec := serve(e, http.MethodGet, "/", "203.0.113.5")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Less(t, time.Since(start), time.Second)
}

func TestMiddleware_Defaults(t *testing.T) {
	cfg := &Config{}
	Middleware(cfg)

	assert.NotNil(t, cfg.Limiter)
	assert.Equal(t, "global", cfg.Scope)
	assert.Equal(t, config.FailOpen, cfg.FailureMode)
	assert.NotNil(t, cfg.KeyGenerator)
	assert.NotNil(t, cfg.OnLimitReached)
}

func TestDefaultKeyGenerator(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", DefaultKeyGenerator(e.NewContext(req, httptest.NewRecorder())))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ""
	assert.Equal(t, "fallback", DefaultKeyGenerator(e.NewContext(req, httptest.NewRecorder())))
}

func TestIsSensitive(t *testing.T) {
	e := echo.New()
	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/api/auth/register", true},
		{http.MethodPost, "/v1/auth/register", true},
		{http.MethodPost, "/v12/auth/register/", true},
		{http.MethodGet, "/api/auth/register", false},
		{http.MethodPost, "/api/auth/login", false},
		{http.MethodPost, "/v1/auth/registerx", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			assert.Equal(t, tt.want, IsSensitive(e.NewContext(req, httptest.NewRecorder())))
		})
	}
}

func TestNewLimiters(t *testing.T) {
	cfg := testutils.GetTestConfig().RateLimit
	cfg.Max = 3
	cfg.SensitiveMax = 1

	limiters, err := NewLimiters(nil, &cfg, "", nil, nil, nil)
	require.NoError(t, err)

	e := echo.New()
	e.Use(limiters.Global, limiters.Sensitive)
	e.POST("/api/auth/register", okHandler)
	e.POST("/api/auth/login", okHandler)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/api/auth/register", "203.0.113.9").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/api/auth/register", "203.0.113.9").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/api/auth/login", "203.0.113.9").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/api/auth/login", "203.0.113.9").Code,
		"register attempts also count against the global budget")
}

func TestNewLimiters_Disabled(t *testing.T) {
	cfg := testutils.GetTestConfig().RateLimit
	cfg.Enabled = false
	cfg.Max = 1

	limiters, err := NewLimiters(nil, &cfg, "", nil, nil, nil)
	require.NoError(t, err)

	e := echo.New()
	e.Use(limiters.Global)
	e.GET("/", okHandler)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/", "203.0.113.9").Code)
	}
}

func TestNewStore(t *testing.T) {
	_, client := testutils.SetupTestRedis(t)

	store, err := NewStore(&config.RateLimitConfig{Store: "redis", KeyPrefix: "rl:"}, client)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, store)

	_, err = NewStore(&config.RateLimitConfig{Store: "redis"}, nil)
	assert.Error(t, err)

	store, err = NewStore(&config.RateLimitConfig{Store: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
	_ = store.(*MemoryStore).Close()

	_, err = NewStore(&config.RateLimitConfig{Store: "etcd"}, nil)
	assert.Error(t, err)
}

func TestNewGlobalLimiter_Strategy(t *testing.T) {
	cfg := testutils.GetTestConfig().RateLimit
	store := newMemoryStore(time.Now, 0)

	assert.IsType(t, &FixedWindow{}, NewGlobalLimiter(&cfg, store))

	cfg.Strategy = config.StrategyPoints
	assert.IsType(t, &PointsBucket{}, NewGlobalLimiter(&cfg, store))
	assert.IsType(t, &FixedWindow{}, NewSensitiveLimiter(&cfg, store))
}
