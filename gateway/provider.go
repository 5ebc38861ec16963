package gateway

import (
	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/handlers/authhandler"
	"github.com/tech-arch1tect/authrelay/middleware/ratelimit"
	"github.com/tech-arch1tect/authrelay/server"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Mount puts the limiters in front of the proxy so rejected requests never
// reach the identity service.
func Mount(srv *server.Server, limiters *ratelimit.Limiters, cfg *config.Config, logger *logging.Service) error {
	logger = logger.Named("gateway")

	proxy, err := NewProxy(&cfg.Gateway, logger)
	if err != nil {
		return err
	}

	e := srv.Echo()
	e.HTTPErrorHandler = authhandler.ErrorHandler(logger)
	e.Use(limiters.Global, limiters.Sensitive, proxy)

	logger.Info("proxying identity routes",
		zap.String("target", cfg.Gateway.IdentityURL),
		zap.String("prefix", cfg.Gateway.IdentityPrefix))
	return nil
}

var Module = fx.Options(
	fx.Invoke(Mount),
)
