package gateway

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"go.uber.org/zap"
)

// VersionedAuthPath matches the public auth routes, /v{n}/auth/...
var VersionedAuthPath = regexp.MustCompile(`^/v[0-9]+/auth/(.*)$`)

// NewProxy returns middleware forwarding /v{n}/auth/* to the identity
// service under cfg.IdentityPrefix. Other paths fall through to the router.
func NewProxy(cfg *config.GatewayConfig, logger *logging.Service) (echo.MiddlewareFunc, error) {
	target, err := url.Parse(cfg.IdentityURL)
	if err != nil {
		return nil, fmt.Errorf("invalid identity service url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("identity service url must be absolute: %q", cfg.IdentityURL)
	}

	prefix := strings.TrimSuffix(cfg.IdentityPrefix, "/")

	return middleware.ProxyWithConfig(middleware.ProxyConfig{
		Skipper: func(c echo.Context) bool {
			return !VersionedAuthPath.MatchString(c.Request().URL.Path)
		},
		Balancer: middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{
			{Name: "identity", URL: target},
		}),
		RegexRewrite: map[*regexp.Regexp]string{
			VersionedAuthPath: prefix + "/$1",
		},
		Transport: newTransport(cfg.ProxyTimeout),
		ErrorHandler: func(c echo.Context, err error) error {
			logger.Error("identity service unreachable",
				zap.String("path", c.Request().URL.Path),
				zap.Error(err))
			return c.JSON(http.StatusBadGateway, map[string]any{
				"success": false,
				"message": "Bad gateway",
			})
		},
	}), nil
}

func newTransport(timeout time.Duration) http.RoundTripper {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   32,
	}
}
