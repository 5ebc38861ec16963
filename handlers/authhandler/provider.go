package authhandler

import (
	"github.com/tech-arch1tect/authrelay/config"
	jwtmiddleware "github.com/tech-arch1tect/authrelay/middleware/jwt"
	"github.com/tech-arch1tect/authrelay/middleware/ratelimit"
	"github.com/tech-arch1tect/authrelay/server"
	"github.com/tech-arch1tect/authrelay/services/identity"
	"github.com/tech-arch1tect/authrelay/services/jwt"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"go.uber.org/fx"
)

const Prefix = "/api/auth"

func ProvideHandler(manager *identity.Manager, jwtService *jwt.Service) *Handler {
	return NewHandler(manager, jwtmiddleware.RequireAccessToken(jwtService))
}

// Mount installs the error handler, the limiters and the auth routes on srv.
func Mount(srv *server.Server, h *Handler, limiters *ratelimit.Limiters, cfg *config.Config, logger *logging.Service) {
	e := srv.Echo()
	e.HTTPErrorHandler = ErrorHandler(logger)
	e.Use(limiters.Global, limiters.Sensitive)

	g := e.Group(Prefix)
	h.RegisterRoutes(g)

	doc := Document(cfg.App.Name+" identity", cfg.App.Version, Prefix)
	g.GET("/openapi.json", doc.JSONHandler())
	g.GET("/openapi.yaml", doc.YAMLHandler())
}

var Module = fx.Options(
	fx.Provide(ProvideHandler),
	fx.Invoke(Mount),
)
