package identity

import (
	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/services/auth"
	"github.com/tech-arch1tect/authrelay/services/jwt"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"github.com/tech-arch1tect/authrelay/services/refreshtoken"
	"github.com/tech-arch1tect/authrelay/services/users"
	"go.uber.org/fx"
)

type ManagerParams struct {
	fx.In

	Config    *config.Config
	Users     *users.Repository
	Tokens    *refreshtoken.Service
	Access    *jwt.Service
	Passwords *auth.Service
	Logger    *logging.Service
	Recorder  Recorder `optional:"true"`
}

func ProvideManager(p ManagerParams) *Manager {
	return NewManager(Dependencies{
		Users:     p.Users,
		Tokens:    p.Tokens,
		Access:    p.Access,
		Passwords: p.Passwords,
		Validator: p.Passwords,
		Logger:    p.Logger.Named("identity"),
		Recorder:  p.Recorder,
		Timeout:   p.Config.Auth.OperationTimeout,
	})
}

var Module = fx.Options(
	fx.Provide(ProvideManager),
)
