package refreshtoken

import (
	"context"

	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideRefreshTokenService(db *gorm.DB, cfg *config.Config, logger *logging.Service) *Service {
	return NewService(db, &cfg.RefreshToken, logger.Named("refreshtoken"))
}

func registerCleanupWorker(lc fx.Lifecycle, service *Service, cfg *config.Config) {
	worker := NewCleanupWorker(service, cfg.RefreshToken.CleanupInterval)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			worker.Start()
			return nil
		},
		OnStop: worker.Stop,
	})
}

var Options = fx.Options(
	fx.Provide(ProvideRefreshTokenService),
	fx.Invoke(registerCleanupWorker),
)
