package logging

import (
	"context"

	"github.com/tech-arch1tect/authrelay/config"
	"go.uber.org/fx"
)

// Module flushes the supplied logger on shutdown.
var Module = fx.Options(
	fx.Invoke(registerSync),
)

func NewLoggingService(cfg *config.Config) (*Service, error) {
	return NewService(Config{
		Level:      LogLevel(cfg.Log.Level),
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	})
}

func registerSync(lc fx.Lifecycle, logger *Service) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// stdout sync returns EINVAL on some platforms; nothing useful to do with it
			_ = logger.Sync()
			return nil
		},
	})
}
