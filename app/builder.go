package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/database"
	"github.com/tech-arch1tect/authrelay/gateway"
	"github.com/tech-arch1tect/authrelay/handlers/authhandler"
	"github.com/tech-arch1tect/authrelay/metrics"
	"github.com/tech-arch1tect/authrelay/middleware/ratelimit"
	"github.com/tech-arch1tect/authrelay/server"
	"github.com/tech-arch1tect/authrelay/services/auth"
	"github.com/tech-arch1tect/authrelay/services/identity"
	"github.com/tech-arch1tect/authrelay/services/jwt"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"github.com/tech-arch1tect/authrelay/services/redisclient"
	"github.com/tech-arch1tect/authrelay/services/refreshtoken"
	"github.com/tech-arch1tect/authrelay/services/users"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"
)

type Role string

const (
	RoleIdentity Role = "identity"
	RoleGateway  Role = "gateway"
)

// Models lists every table owned by the identity service.
func Models() []any {
	return []any{&users.User{}, &refreshtoken.RefreshToken{}}
}

type AppBuilder struct {
	config    *config.Config
	logger    *logging.Service
	role      Role
	redis     redis.UniversalClient
	fxOptions []fx.Option
	errors    []error
}

func NewApp(role Role) *AppBuilder {
	b := &AppBuilder{role: role}
	if role != RoleIdentity && role != RoleGateway {
		b.addError(fmt.Sprintf("unknown role %q", role))
	}
	return b
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

// WithLogger replaces the logger built from the log config.
func (b *AppBuilder) WithLogger(logger *logging.Service) *AppBuilder {
	b.logger = logger
	return b
}

// WithRedis supplies an existing client instead of dialing REDIS_URL.
func (b *AppBuilder) WithRedis(client redis.UniversalClient) *AppBuilder {
	b.redis = client
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

// Build wires the fx graph. Failure to reach the credential store or any
// other provider error is returned here, before anything is started.
func (b *AppBuilder) Build() (*App, error) {
	if b.config == nil && len(b.errors) == 0 {
		b.WithAutoConfig()
	}
	if err := b.validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		var err error
		logger, err = logging.NewLoggingService(b.config)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	app := &App{
		role:   b.role,
		config: b.config,
		logger: logger,
	}

	options := b.buildFxOptions(logger)
	options = append(options, fx.Populate(&app.server))

	app.fx = fx.New(options...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to build %s app: %w", b.role, err)
	}

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, errors.New(msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(b.errors...))
	}
	return nil
}

func (b *AppBuilder) buildFxOptions(logger *logging.Service) []fx.Option {
	registry := metrics.New(string(b.role))

	options := []fx.Option{
		fx.Supply(b.config, logger, registry),
		fx.Provide(
			func(r *metrics.Registry) ratelimit.Recorder { return r },
			func(r *metrics.Registry) identity.Recorder { return r },
		),
		fx.StopTimeout(stopTimeout(b.config)),
		fxLogger(logger),
		logging.Module,
		server.NewProvider(),
		fx.Invoke(func(srv *server.Server, r *metrics.Registry) {
			srv.Echo().Use(r.Middleware())
			srv.Get("/metrics", r.Handler())
		}),
	}

	if b.config.RateLimit.Enabled && b.config.RateLimit.Store == "redis" {
		if b.redis != nil {
			client := b.redis
			options = append(options, fx.Provide(func() redis.UniversalClient { return client }))
		} else {
			options = append(options, redisclient.Module)
		}
	}
	options = append(options, fx.Supply(ratelimit.Namespace(b.role)), ratelimit.Module)

	switch b.role {
	case RoleIdentity:
		options = append(options,
			fx.Supply(database.WithModels(Models()...)),
			database.Module,
			users.Module,
			auth.Module,
			jwt.Options,
			refreshtoken.Options,
			identity.Module,
			authhandler.Module,
		)
	case RoleGateway:
		options = append(options, gateway.Module)
	}

	return append(options, b.fxOptions...)
}

func fxLogger(logger *logging.Service) fx.Option {
	if zl := logger.Logger(); zl != nil {
		return fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: zl.Named("fx")}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		})
	}
	return fx.NopLogger
}

func stopTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 30 * time.Second
}
