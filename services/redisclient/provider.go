package redisclient

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"go.uber.org/fx"
)

func ProvideClient(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service) (redis.UniversalClient, error) {
	client, err := New(cfg.Redis)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = Ping(ctx, client, logger)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client, nil
}

var Module = fx.Options(
	fx.Provide(ProvideClient),
)
