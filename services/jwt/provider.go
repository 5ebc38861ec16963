package jwt

import (
	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"go.uber.org/fx"
)

func NewJWTService(cfg *config.Config, logger *logging.Service) *Service {
	return NewService(&cfg.JWT, logger.Named("jwt"))
}

var Options = fx.Options(
	fx.Provide(NewJWTService),
)
