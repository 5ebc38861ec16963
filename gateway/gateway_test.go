package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/middleware/ratelimit"
	"github.com/tech-arch1tect/authrelay/server"
	"github.com/tech-arch1tect/authrelay/testutils"
)

type upstream struct {
	mu    sync.Mutex
	paths []string
	srv   *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.paths = append(u.paths, r.URL.RequestURI())
		u.mu.Unlock()

		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "path": r.URL.Path, "body": string(body)})
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) seen() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.paths...)
}

func newGateway(t *testing.T, cfg *config.Config) *server.Server {
	srv := server.New(cfg, nil)
	limiters, err := ratelimit.NewLimiters(nil, &cfg.RateLimit, "gateway", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, Mount(srv, limiters, cfg, nil))
	return srv
}

func do(srv *server.Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func TestGateway_RewritesVersionedAuthPaths(t *testing.T) {
	up := newUpstream(t)
	cfg := testutils.GetTestConfig()
	cfg.Gateway.IdentityURL = up.srv.URL
	srv := newGateway(t, cfg)

	rec := do(srv, http.MethodPost, "/v1/auth/login", `{"email":"a@b.co"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"path":"/api/auth/login"`)
	assert.Contains(t, rec.Body.String(), `a@b.co`)

	rec = do(srv, http.MethodPost, "/v2/auth/refresh?trace=1", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"/api/auth/login", "/api/auth/refresh?trace=1"}, up.seen())
}

func TestGateway_UnknownRoute(t *testing.T) {
	up := newUpstream(t)
	cfg := testutils.GetTestConfig()
	cfg.Gateway.IdentityURL = up.srv.URL
	srv := newGateway(t, cfg)

	for _, path := range []string{"/auth/login", "/vx/auth/login", "/v1/posts"} {
		rec := do(srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.JSONEq(t, `{"success":false,"message":"Not found"}`, rec.Body.String(), path)
	}
	assert.Empty(t, up.seen())
}

func TestGateway_HealthzNotProxied(t *testing.T) {
	up := newUpstream(t)
	cfg := testutils.GetTestConfig()
	cfg.Gateway.IdentityURL = up.srv.URL
	srv := newGateway(t, cfg)

	rec := do(srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, up.seen())
}

func TestGateway_BadGateway(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	cfg := testutils.GetTestConfig()
	cfg.Gateway.IdentityURL = deadURL
	srv := newGateway(t, cfg)

	rec := do(srv, http.MethodPost, "/v1/auth/login", `{}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Bad gateway"}`, rec.Body.String())
}

func TestGateway_SensitiveLimiterOnRegister(t *testing.T) {
	up := newUpstream(t)
	cfg := testutils.GetTestConfig()
	cfg.Gateway.IdentityURL = up.srv.URL
	cfg.RateLimit.SensitiveMax = 2
	srv := newGateway(t, cfg)

	for i := 0; i < 2; i++ {
		rec := do(srv, http.MethodPost, "/v1/auth/register", `{}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(srv, http.MethodPost, "/v1/auth/register", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Too many requests"}`, rec.Body.String())

	rec = do(srv, http.MethodPost, "/v1/auth/login", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, up.seen(), 3)
}

func TestNewProxy_InvalidURL(t *testing.T) {
	_, err := NewProxy(&config.GatewayConfig{IdentityURL: "not a url", IdentityPrefix: "/api/auth"}, nil)
	assert.Error(t, err)

	_, err = NewProxy(&config.GatewayConfig{IdentityURL: "://", IdentityPrefix: "/api/auth"}, nil)
	assert.Error(t, err)
}

func TestVersionedAuthPath(t *testing.T) {
	assert.True(t, VersionedAuthPath.MatchString("/v1/auth/login"))
	assert.True(t, VersionedAuthPath.MatchString("/v12/auth/register"))
	assert.False(t, VersionedAuthPath.MatchString("/api/auth/login"))
	assert.False(t, VersionedAuthPath.MatchString("/v1/authx/login"))
}
